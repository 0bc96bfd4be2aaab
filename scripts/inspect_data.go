//go:build ignore

package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"imu-svm/internal/storage"
)

func main() {
	var (
		dataPath    = flag.String("data", "./data", "Data directory path")
		fingerprint = flag.String("fingerprint", "", "Extractor fingerprint whose cached vectors to list")
		days        = flag.Int("days", 30, "Evaluation history window in days")
	)
	flag.Parse()

	fmt.Printf("Inspecting data in: %s\n", *dataPath)

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	if *fingerprint != "" {
		records, err := store.ListFeatures(*fingerprint)
		if err != nil {
			log.Fatalf("Failed to list cached features: %v", err)
		}
		fmt.Printf("\nCached feature vectors: %d\n", len(records))
		for _, r := range records {
			fmt.Printf("  %s  %s  %d values  stored %s\n", r.File, r.ContentHash[:12], len(r.Values), r.StoredAt.Format(time.RFC3339))
		}
	}

	end := time.Now()
	evals, err := store.GetEvaluationsInRange(end.AddDate(0, 0, -*days), end)
	if err != nil {
		log.Fatalf("Failed to read evaluation history: %v", err)
	}
	fmt.Printf("\nEvaluations in the last %d days: %d\n", *days, len(evals))
	for _, e := range evals {
		fmt.Printf("  %s  version=%s  samples=%d  accuracy=%.4f  macro_f1=%.4f  excluded=%d\n",
			e.Timestamp.Format(time.RFC3339), e.ModelVersion, e.Samples, e.Accuracy, e.MacroF1, len(e.Excluded))
	}
}

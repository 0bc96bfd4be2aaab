// Package pipeline wires parsing, feature extraction, selection, training
// and inference into directory-level operations.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"imu-svm/internal/features"
	"imu-svm/internal/ml"
	"imu-svm/internal/report"
	"imu-svm/internal/signal"
	"imu-svm/internal/storage"

	"github.com/rs/zerolog/log"
)

// ErrNoUsableRecordings is returned when every recording of a batch failed.
var ErrNoUsableRecordings = errors.New("no usable recordings")

// MissingInputError reports an input directory without recordings.
type MissingInputError struct {
	Dir       string
	Extension string
	Err       error
}

func (e *MissingInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no %s recordings in %s: %v", e.Extension, e.Dir, e.Err)
	}
	return fmt.Sprintf("no %s recordings in %s", e.Extension, e.Dir)
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// MetricsInterface defines the metrics hooks used across the pipeline.
type MetricsInterface interface {
	ml.MetricsInterface
	RecordingProcessedInc()
	RecordingExcludedInc()
	ExtractionDurationObserve(float64)
	CacheHitInc()
	CacheMissInc()
}

// Cache stores feature vectors across runs. *storage.Store implements it.
type Cache interface {
	GetFeatures(fingerprint, file, contentHash string) (*storage.FeatureRecord, bool, error)
	StoreFeatures(record storage.FeatureRecord) error
}

// Recording is one raw recording, either read from disk or received over
// the network.
type Recording struct {
	Name    string
	Content []byte
}

// BatchReport summarizes what happened to each recording of a batch.
type BatchReport struct {
	Total     int
	Processed int
	CacheHits int
	Excluded  []report.Exclusion
}

// ExtractionOptions configures an Extraction.
type ExtractionOptions struct {
	SamplingRate   float64
	TimeOffset     int64
	LabelDelimiter string
	Workers        int
	Cache          Cache
	Metrics        MetricsInterface
}

// Extraction turns recordings into labeled feature tables.
type Extraction struct {
	parser    *signal.Parser
	extractor *features.Extractor
	delimiter string
	workers   int
	cache     Cache
	metrics   MetricsInterface
}

// NewExtraction creates an extraction stage; workers <= 0 uses GOMAXPROCS.
func NewExtraction(opts ExtractionOptions) *Extraction {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.LabelDelimiter == "" {
		opts.LabelDelimiter = features.DefaultLabelDelimiter
	}
	return &Extraction{
		parser:    signal.NewParser(opts.TimeOffset),
		extractor: features.NewExtractor(opts.SamplingRate),
		delimiter: opts.LabelDelimiter,
		workers:   opts.Workers,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
	}
}

// NewExtractionForArtifact reproduces the extraction a model was trained with.
func NewExtractionForArtifact(a *ml.Artifact, workers int, cache Cache, metrics MetricsInterface) *Extraction {
	return NewExtraction(ExtractionOptions{
		SamplingRate:   a.Extraction.SamplingRate,
		TimeOffset:     a.Extraction.TimeOffset,
		LabelDelimiter: a.Extraction.LabelDelimiter,
		Workers:        workers,
		Cache:          cache,
		Metrics:        metrics,
	})
}

// Params returns the extraction parameters to record in an artifact.
func (e *Extraction) Params() ml.ExtractionParams {
	return ml.ExtractionParams{
		SamplingRate:   e.extractor.SamplingRate(),
		TimeOffset:     e.parser.TimeOffset(),
		LabelDelimiter: e.delimiter,
	}
}

// ListRecordings returns the files in dir ending in ext, sorted by name.
func ListRecordings(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &MissingInputError{Dir: dir, Extension: ext, Err: err}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, &MissingInputError{Dir: dir, Extension: ext}
	}
	sort.Strings(paths)
	return paths, nil
}

type source struct {
	name string
	load func() ([]byte, error)
}

type outcome struct {
	vector features.Vector
	hit    bool
	err    error
}

// ExtractDir extracts every recording in dir with extension ext.
func (e *Extraction) ExtractDir(ctx context.Context, dir, ext string) (features.Table, BatchReport, error) {
	paths, err := ListRecordings(dir, ext)
	if err != nil {
		return features.Table{}, BatchReport{}, err
	}

	sources := make([]source, len(paths))
	for i, path := range paths {
		path := path
		sources[i] = source{name: filepath.Base(path), load: func() ([]byte, error) { return os.ReadFile(path) }}
	}

	log.Info().Str("dir", dir).Int("recordings", len(paths)).Msg("Extracting features")
	return e.run(ctx, sources)
}

// ExtractRecordings extracts in-memory recordings.
func (e *Extraction) ExtractRecordings(ctx context.Context, recs []Recording) (features.Table, BatchReport, error) {
	sources := make([]source, len(recs))
	for i, rec := range recs {
		rec := rec
		sources[i] = source{name: rec.Name, load: func() ([]byte, error) { return rec.Content, nil }}
	}
	return e.run(ctx, sources)
}

// run processes sources on a bounded pool. A failing recording is logged
// and excluded; the rest of the batch continues. Rows come back sorted by
// file name whatever order workers finish in.
func (e *Extraction) run(ctx context.Context, sources []source) (features.Table, BatchReport, error) {
	rep := BatchReport{Total: len(sources)}
	results := make([]outcome, len(sources))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i := range sources {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return features.Table{}, rep, err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.process(sources[i])
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return features.Table{}, rep, err
	}

	var rows []features.Vector
	for i, res := range results {
		if res.err != nil {
			log.Warn().Err(res.err).Str("recording", sources[i].name).Msg("Recording excluded")
			rep.Excluded = append(rep.Excluded, report.Exclusion{File: sources[i].name, Reason: res.err.Error()})
			if e.metrics != nil {
				e.metrics.RecordingExcludedInc()
			}
			continue
		}
		rep.Processed++
		if res.hit {
			rep.CacheHits++
		}
		if e.metrics != nil {
			e.metrics.RecordingProcessedInc()
		}
		rows = append(rows, res.vector)
	}

	sort.SliceStable(rows, func(a, b int) bool { return rows[a].File < rows[b].File })
	sort.SliceStable(rep.Excluded, func(a, b int) bool { return rep.Excluded[a].File < rep.Excluded[b].File })

	if len(rows) == 0 && len(sources) > 0 {
		return features.Table{}, rep, fmt.Errorf("%w: all %d recordings failed", ErrNoUsableRecordings, len(sources))
	}

	table, err := features.NewTable(e.extractor.FeatureNames(), rows)
	if err != nil {
		return features.Table{}, rep, fmt.Errorf("assemble feature table: %w", err)
	}

	log.Info().
		Int("total", rep.Total).
		Int("processed", rep.Processed).
		Int("excluded", len(rep.Excluded)).
		Int("cache_hits", rep.CacheHits).
		Msg("Feature extraction complete")
	return table, rep, nil
}

func (e *Extraction) process(src source) outcome {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ExtractionDurationObserve(time.Since(start).Seconds())
		}
	}()

	content, err := src.load()
	if err != nil {
		return outcome{err: fmt.Errorf("read recording: %w", err)}
	}

	class := features.AssignClass(src.name, e.delimiter)
	fingerprint := e.Fingerprint()
	hash := storage.ContentHash(content)

	if e.cache != nil {
		record, hit, err := e.cache.GetFeatures(fingerprint, src.name, hash)
		if err != nil {
			log.Warn().Err(err).Str("recording", src.name).Msg("Feature cache lookup failed")
		}
		if hit && e.complete(record.Values) {
			if e.metrics != nil {
				e.metrics.CacheHitInc()
			}
			return outcome{vector: features.Vector{File: src.name, Class: class, Values: record.Values}, hit: true}
		}
		if e.metrics != nil {
			e.metrics.CacheMissInc()
		}
	}

	sig, err := e.parser.Parse(src.name, bytes.NewReader(content))
	if err != nil {
		return outcome{err: err}
	}
	vector, err := e.extractor.Extract(sig)
	if err != nil {
		return outcome{err: err}
	}
	vector.Class = class

	if e.cache != nil {
		err := e.cache.StoreFeatures(storage.FeatureRecord{
			File:        src.name,
			ContentHash: hash,
			Fingerprint: fingerprint,
			Values:      vector.Values,
		})
		if err != nil {
			log.Warn().Err(err).Str("recording", src.name).Msg("Failed to cache features")
		}
	}

	log.Debug().Str("recording", src.name).Str("class", class).Int("rows", sig.Len()).Msg("Recording extracted")
	return outcome{vector: vector}
}

// Fingerprint covers everything that changes the vector for given bytes.
func (e *Extraction) Fingerprint() string {
	return fmt.Sprintf("%s;offset=%d", e.extractor.Fingerprint(), e.parser.TimeOffset())
}

func (e *Extraction) complete(values map[string]float64) bool {
	names := e.extractor.FeatureNames()
	if len(values) != len(names) {
		return false
	}
	for _, n := range names {
		if _, ok := values[n]; !ok {
			return false
		}
	}
	return true
}

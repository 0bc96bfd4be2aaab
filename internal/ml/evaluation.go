package ml

// Pair is the outcome of one held-out prediction.
type Pair struct {
	File      string `json:"file"`
	True      string `json:"true"`
	Predicted string `json:"predicted"`
}

// ClassMetrics holds precision, recall and F1 for one label, or an average.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation aggregates leave-one-out results. Pairs are in original row
// order; Labels index both axes of Confusion (rows true, columns predicted).
type Evaluation struct {
	Pairs       []Pair         `json:"pairs"`
	Labels      []string       `json:"labels"`
	Accuracy    float64        `json:"accuracy"`
	Confusion   [][]int        `json:"confusion"`
	PerClass    []ClassMetrics `json:"per_class"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
}

// Correct counts pairs whose prediction matches the true label.
func (e *Evaluation) Correct() int {
	var n int
	for _, p := range e.Pairs {
		if p.True == p.Predicted {
			n++
		}
	}
	return n
}

// Evaluate derives accuracy, the confusion matrix and per-class scores
// over the sorted set of labels seen as either truth or prediction.
// Undefined ratios (no predictions or no support) are reported as 0.
func Evaluate(pairs []Pair) Evaluation {
	e := Evaluation{Pairs: pairs}

	all := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		all = append(all, p.True, p.Predicted)
	}
	e.Labels = uniqueSorted(all)

	index := make(map[string]int, len(e.Labels))
	for i, l := range e.Labels {
		index[l] = i
	}
	e.Confusion = make([][]int, len(e.Labels))
	for i := range e.Confusion {
		e.Confusion[i] = make([]int, len(e.Labels))
	}
	for _, p := range pairs {
		e.Confusion[index[p.True]][index[p.Predicted]]++
	}

	if len(pairs) > 0 {
		e.Accuracy = float64(e.Correct()) / float64(len(pairs))
	}

	e.MacroAvg.Label = "macro avg"
	e.WeightedAvg.Label = "weighted avg"
	for i, label := range e.Labels {
		tp := e.Confusion[i][i]
		var predicted, support int
		for k := range e.Labels {
			predicted += e.Confusion[k][i]
			support += e.Confusion[i][k]
		}

		m := ClassMetrics{Label: label, Support: support}
		m.Precision = ratio(tp, predicted)
		m.Recall = ratio(tp, support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		e.PerClass = append(e.PerClass, m)

		e.MacroAvg.Precision += m.Precision
		e.MacroAvg.Recall += m.Recall
		e.MacroAvg.F1 += m.F1
		w := float64(support)
		e.WeightedAvg.Precision += w * m.Precision
		e.WeightedAvg.Recall += w * m.Recall
		e.WeightedAvg.F1 += w * m.F1
	}

	if n := float64(len(e.Labels)); n > 0 {
		e.MacroAvg.Precision /= n
		e.MacroAvg.Recall /= n
		e.MacroAvg.F1 /= n
	}
	e.MacroAvg.Support = len(pairs)
	e.WeightedAvg.Support = len(pairs)
	if total := float64(len(pairs)); total > 0 {
		e.WeightedAvg.Precision /= total
		e.WeightedAvg.Recall /= total
		e.WeightedAvg.F1 /= total
	}
	return e
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	pairs := []Pair{
		{File: "jump_01.txt", True: "jump", Predicted: "jump"},
		{File: "jump_02.txt", True: "jump", Predicted: "walk"},
		{File: "walk_01.txt", True: "walk", Predicted: "walk"},
		{File: "walk_02.txt", True: "walk", Predicted: "walk"},
		{File: "run_01.txt", True: "run", Predicted: "jump"},
	}

	e := Evaluate(pairs)

	assert.Equal(t, pairs, e.Pairs)
	assert.Equal(t, []string{"jump", "run", "walk"}, e.Labels)
	assert.Equal(t, 3, e.Correct())
	assert.InDelta(t, 0.6, e.Accuracy, 1e-12)
	assert.Equal(t, [][]int{
		{1, 0, 1},
		{1, 0, 0},
		{0, 0, 2},
	}, e.Confusion)

	jump := e.PerClass[0]
	assert.Equal(t, "jump", jump.Label)
	assert.InDelta(t, 0.5, jump.Precision, 1e-12)
	assert.InDelta(t, 0.5, jump.Recall, 1e-12)
	assert.InDelta(t, 0.5, jump.F1, 1e-12)
	assert.Equal(t, 2, jump.Support)

	run := e.PerClass[1]
	assert.Equal(t, 0.0, run.Precision)
	assert.Equal(t, 0.0, run.Recall)
	assert.Equal(t, 0.0, run.F1)
	assert.Equal(t, 1, run.Support)

	walk := e.PerClass[2]
	assert.InDelta(t, 2.0/3.0, walk.Precision, 1e-12)
	assert.InDelta(t, 1.0, walk.Recall, 1e-12)
	assert.InDelta(t, 0.8, walk.F1, 1e-12)

	assert.InDelta(t, (0.5+0+2.0/3.0)/3, e.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, (0.5+0+1.0)/3, e.MacroAvg.Recall, 1e-12)
	assert.InDelta(t, (2*0.5+1*0+2*0.8)/5, e.WeightedAvg.F1, 1e-12)
	assert.Equal(t, 5, e.WeightedAvg.Support)
}

func TestEvaluate_PredictedOnlyLabelIsCounted(t *testing.T) {
	e := Evaluate([]Pair{{True: "walk", Predicted: "jump"}})

	assert.Equal(t, []string{"jump", "walk"}, e.Labels)
	assert.Equal(t, [][]int{{0, 0}, {1, 0}}, e.Confusion)
	assert.Equal(t, 0.0, e.Accuracy)
}

func TestEvaluate_Empty(t *testing.T) {
	e := Evaluate(nil)
	assert.Equal(t, 0.0, e.Accuracy)
	assert.Empty(t, e.Labels)
}

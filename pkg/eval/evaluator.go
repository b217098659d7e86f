package eval

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/pkg/gp"
)

// AUROC computes the area under the ROC curve for binary true labels
// against prediction scores. It returns -Inf when the labels are
// degenerate (a single class), which keeps selection totally ordered.
func AUROC(yTrue []int, scores []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(scores) {
		return math.Inf(-1)
	}

	pos := 0
	classes := make([]bool, len(yTrue))
	ranked := make([]float64, len(scores))
	copy(ranked, scores)
	for i, label := range yTrue {
		classes[i] = label == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(yTrue) {
		return math.Inf(-1)
	}

	stat.SortWeightedLabeled(ranked, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, ranked, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// EvaluatePerformance compiles the genotype and scores its boolean
// predictions against the sample set with AUROC. Any failure degrades to
// -Inf instead of aborting the search loop.
func EvaluatePerformance(ind *gp.Individual, ps *gp.PrimitiveSet, X [][]float64, y []int) float64 {
	fn, err := gp.Compile(ind, ps)
	if err != nil {
		return math.Inf(-1)
	}
	return EvaluateFunc(fn, X, y)
}

// EvaluateFunc scores an already compiled genotype.
func EvaluateFunc(fn func([]float64) float64, X [][]float64, y []int) float64 {
	preds := make([]float64, len(X))
	for i, sample := range X {
		v := fn(sample)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(-1)
		}
		if v >= 1 {
			preds[i] = 1
		}
	}
	return AUROC(y, preds)
}

// EvaluateLoss is the alternate scoring surface: sigmoid of the raw
// output, binary cross-entropy against the labels, plus a per-node
// complexity penalty. Returns +Inf on any failure; lower is better.
// It does not drive the search loop.
func EvaluateLoss(ind *gp.Individual, ps *gp.PrimitiveSet, X [][]float64, y []int, alpha float64) float64 {
	fn, err := gp.Compile(ind, ps)
	if err != nil {
		return math.Inf(1)
	}
	if len(X) == 0 || len(X) != len(y) {
		return math.Inf(1)
	}

	var sum float64
	for i, sample := range X {
		raw := fn(sample)
		if math.IsNaN(raw) {
			return math.Inf(1)
		}
		prob := 1 / (1 + math.Exp(-raw))
		prob = math.Min(math.Max(prob, constants.ProbEpsilon), 1-constants.ProbEpsilon)
		if y[i] == 1 {
			sum += -math.Log(prob)
		} else {
			sum += -math.Log(1 - prob)
		}
	}

	bce := sum / float64(len(X))
	return bce + alpha*float64(ind.Size())
}

// F1Score computes the F1 score of binary predictions for reporting.
func F1Score(yTrue, yPred []int) float64 {
	var tp, fp, fn float64
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := tp / (tp + fp)
	recall := tp / (tp + fn)
	return 2 * precision * recall / (precision + recall)
}

// Predict runs a compiled genotype over a sample set and thresholds the
// outputs into binary predictions.
func Predict(fn func([]float64) float64, X [][]float64) []int {
	preds := make([]int, len(X))
	for i, sample := range X {
		if fn(sample) >= 1 {
			preds[i] = 1
		}
	}
	return preds
}

package nn

import (
	"fmt"

	"micrograd/internal/engine"
)

// LossFunc reduces predictions against targets to a scalar node.
type LossFunc func(preds []*engine.Value, targets []float64) (*engine.Value, error)

func GetLoss(name string) (LossFunc, error) {
	switch normalizeName(name) {
	case "", "hinge", "svm":
		return Hinge, nil
	case "mse":
		return MSE, nil
	default:
		return nil, fmt.Errorf("unsupported loss: %s", name)
	}
}

// MSE is mean((pred - target)^2).
func MSE(preds []*engine.Value, targets []float64) (*engine.Value, error) {
	if err := checkLossInputs(preds, targets); err != nil {
		return nil, err
	}
	terms := make([]*engine.Value, len(preds))
	for i, pred := range preds {
		terms[i] = pred.SubScalar(targets[i]).Pow(2)
	}
	return engine.Sum(terms...).MulScalar(1 / float64(len(terms))), nil
}

// Hinge is the max-margin loss mean(relu(1 - target*pred)) for targets in {-1, +1}.
func Hinge(preds []*engine.Value, targets []float64) (*engine.Value, error) {
	if err := checkLossInputs(preds, targets); err != nil {
		return nil, err
	}
	terms := make([]*engine.Value, len(preds))
	for i, pred := range preds {
		terms[i] = pred.MulScalar(-targets[i]).AddScalar(1).ReLU()
	}
	return engine.Sum(terms...).MulScalar(1 / float64(len(terms))), nil
}

// L2 is alpha * sum(p^2) over params.
func L2(params []*engine.Value, alpha float64) *engine.Value {
	terms := make([]*engine.Value, len(params))
	for i, p := range params {
		terms[i] = p.Mul(p)
	}
	return engine.Sum(terms...).MulScalar(alpha)
}

// Accuracy is the fraction of predictions whose sign matches the target's.
func Accuracy(preds []*engine.Value, targets []float64) float64 {
	if len(preds) == 0 || len(preds) != len(targets) {
		return 0
	}
	hits := 0
	for i, pred := range preds {
		if (pred.Data() > 0) == (targets[i] > 0) {
			hits++
		}
	}
	return float64(hits) / float64(len(preds))
}

func checkLossInputs(preds []*engine.Value, targets []float64) error {
	if len(preds) == 0 {
		return fmt.Errorf("loss requires at least one prediction")
	}
	if len(preds) != len(targets) {
		return fmt.Errorf("prediction/target length mismatch: %d != %d", len(preds), len(targets))
	}
	return nil
}

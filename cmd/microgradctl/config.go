package main

import (
	"encoding/json"
	"fmt"
	"os"

	mg "micrograd/pkg/micrograd"
)

func loadTrainRequestFromConfig(path string) (mg.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mg.TrainRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return mg.TrainRequest{}, err
	}

	var req mg.TrainRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["dataset"]); ok {
		req.Dataset = v
	}
	if v, ok := asInt(raw["samples"]); ok {
		req.Samples = v
	}
	if v, ok := asFloat64(raw["noise"]); ok {
		req.Noise = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := raw["hidden"]; ok {
		widths, err := asIntSlice(v)
		if err != nil {
			return mg.TrainRequest{}, fmt.Errorf("hidden: %w", err)
		}
		req.Hidden = widths
	}
	if v, ok := asString(raw["loss"]); ok {
		req.Loss = v
	}
	if v, ok := asInt(raw["epochs"]); ok {
		req.Epochs = v
	}
	if v, ok := asInt(raw["batch_size"]); ok {
		req.BatchSize = v
	}
	if v, ok := asFloat64(raw["learning_rate"]); ok {
		req.LearningRate = v
	}
	if v, ok := asFloat64(raw["final_learning_rate"]); ok {
		req.FinalLearningRate = v
	}
	if v, ok := asFloat64(raw["momentum"]); ok {
		req.Momentum = v
	}
	if v, ok := asFloat64(raw["l2"]); ok {
		req.L2 = v
	}

	// "activation" is either a bare name or {"name": ..., "alpha": ..., "beta": ...}.
	switch act := raw["activation"].(type) {
	case string:
		req.Activation = act
	case map[string]any:
		if v, ok := asString(act["name"]); ok {
			req.Activation = v
		}
		if v, ok := asFloat64(act["alpha"]); ok {
			req.Alpha = v
		}
		if v, ok := asFloat64(act["beta"]); ok {
			req.Beta = v
		}
	case nil:
	default:
		return mg.TrainRequest{}, fmt.Errorf("activation must be a string or object, got %T", act)
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asIntSlice(v any) ([]int, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		n, ok := asInt(item)
		if !ok {
			return nil, fmt.Errorf("element %d: expected number, got %T", i, item)
		}
		out = append(out, n)
	}
	return out, nil
}

func overrideFromFlags(req *mg.TrainRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "dataset":
			req.Dataset = v.(string)
		case "samples":
			req.Samples = v.(int)
		case "noise":
			req.Noise = v.(float64)
		case "seed":
			req.Seed = v.(int64)
		case "hidden":
			req.Hidden = v.([]int)
		case "activation":
			req.Activation = v.(string)
		case "alpha":
			req.Alpha = v.(float64)
		case "beta":
			req.Beta = v.(float64)
		case "loss":
			req.Loss = v.(string)
		case "epochs":
			req.Epochs = v.(int)
		case "batch-size":
			req.BatchSize = v.(int)
		case "lr":
			req.LearningRate = v.(float64)
		case "final-lr":
			req.FinalLearningRate = v.(float64)
		case "momentum":
			req.Momentum = v.(float64)
		case "l2":
			req.L2 = v.(float64)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}

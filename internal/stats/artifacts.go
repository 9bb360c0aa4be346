package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"micrograd/internal/model"
)

const (
	configFile      = "config.json"
	historyJSONFile = "history.json"
	historyCSVFile  = "history.csv"
	snapshotFile    = "snapshot.json"
	graphFile       = "model.dot"
)

// RunArtifacts is everything exported for one training run.
type RunArtifacts struct {
	Run      model.Run
	History  []model.EpochMetrics
	Snapshot model.Snapshot
	// Graph, when set, writes model.dot.
	Graph func(io.Writer) error
}

// WriteRunArtifacts writes the run under baseDir/<run id> and returns that
// directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, historyJSONFile), map[string]any{
		"epochs":         artifacts.History,
		"final_loss":     artifacts.Run.FinalLoss,
		"final_accuracy": artifacts.Run.FinalAccuracy,
	}); err != nil {
		return "", err
	}
	if err := WriteHistorySeries(runDir, artifacts.History); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, snapshotFile), artifacts.Snapshot); err != nil {
		return "", err
	}
	if artifacts.Graph != nil {
		if err := writeWith(filepath.Join(runDir, graphFile), artifacts.Graph); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

func ReadRunConfig(baseDir, runID string) (model.Run, bool, error) {
	var run model.Run
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &run)
	return run, ok, err
}

func ReadSnapshot(baseDir, runID string) (model.Snapshot, bool, error) {
	var snapshot model.Snapshot
	ok, err := readJSON(filepath.Join(baseDir, runID, snapshotFile), &snapshot)
	return snapshot, ok, err
}

func WriteHistorySeries(runDir string, history []model.EpochMetrics) error {
	path := filepath.Join(runDir, historyCSVFile)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "loss", "accuracy", "learning_rate"}); err != nil {
		return err
	}
	for _, m := range history {
		if err := writer.Write([]string{
			strconv.Itoa(m.Epoch),
			strconv.FormatFloat(m.Loss, 'f', -1, 64),
			strconv.FormatFloat(m.Accuracy, 'f', -1, 64),
			strconv.FormatFloat(m.LearningRate, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadHistorySeries(baseDir, runID string) ([]model.EpochMetrics, bool, error) {
	path := filepath.Join(baseDir, runID, historyCSVFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.EpochMetrics{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 4 {
		return nil, false, fmt.Errorf("history series header must have 4 columns")
	}

	series := make([]model.EpochMetrics, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 4 {
			return nil, false, fmt.Errorf("history series row must have 4 columns")
		}
		epoch, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, err
		}
		var values [3]float64
		for i := range values {
			if values[i], err = strconv.ParseFloat(record[i+1], 64); err != nil {
				return nil, false, err
			}
		}
		series = append(series, model.EpochMetrics{
			Epoch:        epoch,
			Loss:         values[0],
			Accuracy:     values[1],
			LearningRate: values[2],
		})
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeWith(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

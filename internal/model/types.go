package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// LayerSpec describes one dense layer of an MLP.
type LayerSpec struct {
	Outputs    int     `json:"outputs"`
	Activation string  `json:"activation"`
	Alpha      float64 `json:"alpha,omitempty"`
	Beta       float64 `json:"beta,omitempty"`
}

type Architecture struct {
	Inputs int         `json:"inputs"`
	Layers []LayerSpec `json:"layers"`
}

// ParameterCount is the number of weights and biases the architecture holds.
func (a Architecture) ParameterCount() int {
	total := 0
	in := a.Inputs
	for _, layer := range a.Layers {
		total += layer.Outputs * (in + 1)
		in = layer.Outputs
	}
	return total
}

// Snapshot is a trained parameter vector together with the architecture it
// belongs to. Parameters are ordered layer by layer, neuron by neuron,
// weights before bias.
type Snapshot struct {
	VersionedRecord
	ID           string       `json:"id"`
	RunID        string       `json:"run_id"`
	Architecture Architecture `json:"architecture"`
	Parameters   []float64    `json:"parameters"`
}

type Run struct {
	VersionedRecord
	ID            string       `json:"id"`
	CreatedAtUTC  string       `json:"created_at_utc"`
	Dataset       string       `json:"dataset"`
	Samples       int          `json:"samples"`
	Noise         float64      `json:"noise"`
	Seed          int64        `json:"seed"`
	Epochs        int          `json:"epochs"`
	BatchSize     int          `json:"batch_size"`
	LearningRate  float64      `json:"learning_rate"`
	Momentum      float64      `json:"momentum"`
	Loss          string       `json:"loss"`
	L2            float64      `json:"l2"`
	Architecture  Architecture `json:"architecture"`
	FinalLoss     float64      `json:"final_loss"`
	FinalAccuracy float64      `json:"final_accuracy"`
	SnapshotID    string       `json:"snapshot_id"`
}

type EpochMetrics struct {
	Epoch        int     `json:"epoch"`
	Loss         float64 `json:"loss"`
	Accuracy     float64 `json:"accuracy"`
	LearningRate float64 `json:"learning_rate"`
}

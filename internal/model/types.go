package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genome is the parameter set of a feed-forward policy network. Neurons are
// evaluated in slice order.
type Genome struct {
	VersionedRecord
	ID        string    `json:"id"`
	Neurons   []Neuron  `json:"neurons"`
	Synapses  []Synapse `json:"synapses"`
	InputIDs  []string  `json:"input_ids"`
	OutputIDs []string  `json:"output_ids"`
}

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

// EvaluationSummary aggregates a batch of evaluation episodes.
type EvaluationSummary struct {
	VersionedRecord
	RunID       string  `json:"run_id"`
	PolicyID    string  `json:"policy_id"`
	Episodes    int     `json:"episodes"`
	MeanReturn  float64 `json:"mean_return"`
	StdReturn   float64 `json:"std_return"`
	MeanSteps   float64 `json:"mean_steps"`
	SuccessRate float64 `json:"success_rate"`
	Truncations int     `json:"truncations"`
}

// TraceRow is one step of one evaluation episode.
type TraceRow struct {
	Episode     int     `json:"episode"`
	Step        int     `json:"step"`
	TargetX     float64 `json:"target_x"`
	TargetY     float64 `json:"target_y"`
	TargetWidth float64 `json:"target_width"`
	FixationX   float64 `json:"fixation_x"`
	FixationY   float64 `json:"fixation_y"`
	ActionX     float64 `json:"action_x"`
	ActionY     float64 `json:"action_y"`
	BeliefX     float64 `json:"belief_x"`
	BeliefY     float64 `json:"belief_y"`
	BeliefStd   float64 `json:"belief_std"`
	Reward      float64 `json:"reward"`
	Done        bool    `json:"done"`
	Truncated   bool    `json:"truncated"`
}

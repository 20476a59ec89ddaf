package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"gazepomdp/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	fitnessHistoryFile = "fitness_history.json"
	policyFile         = "policy.json"
	summaryFile        = "summary.json"
	TraceFile          = "trace.csv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	RunKindTrain    = "train"
	RunKindEvaluate = "evaluate"
)

// RunConfig is the resolved configuration a run executed with.
type RunConfig struct {
	RunID                 string    `json:"run_id"`
	Kind                  string    `json:"kind"`
	Scape                 string    `json:"scape"`
	PolicyID              string    `json:"policy_id,omitempty"`
	Seed                  uint64    `json:"seed"`
	Workers               int       `json:"workers"`
	MaxSteps              int       `json:"max_steps"`
	TargetWidth           float64   `json:"target_width"`
	TargetLocStd          float64   `json:"target_loc_std"`
	FixedTarget           []float64 `json:"fixed_target,omitempty"`
	OculomotorNoiseWeight float64   `json:"oculomotor_noise_weight"`
	StimulusNoiseWeight   float64   `json:"stimulus_noise_weight"`
	StepCost              float64   `json:"step_cost"`
	PriorStd              float64   `json:"prior_std"`
	TrackFixation         bool      `json:"track_fixation"`
	Timesteps             int       `json:"timesteps,omitempty"`
	EvalEpisodes          int       `json:"eval_episodes,omitempty"`
	Episodes              int       `json:"episodes,omitempty"`
	AttemptsPerRound      int       `json:"attempts_per_round,omitempty"`
	CandidateSelection    string    `json:"candidate_selection,omitempty"`
	HiddenNeurons         int       `json:"hidden_neurons,omitempty"`
	GoalFitness           *float64  `json:"goal_fitness,omitempty"`
}

// FitnessHistory records the best fitness after every training round.
type FitnessHistory struct {
	BestByRound      []float64 `json:"best_by_round"`
	InitialFitness   float64   `json:"initial_fitness"`
	FinalBestFitness float64   `json:"final_best_fitness"`
	StepsUsed        int       `json:"steps_used"`
	GoalReached      bool      `json:"goal_reached"`
}

type RunArtifacts struct {
	Config  RunConfig
	History *FitnessHistory
	Policy  *model.Genome
	Summary *model.EvaluationSummary
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Kind         string  `json:"kind"`
	Scape        string  `json:"scape"`
	PolicyID     string  `json:"policy_id,omitempty"`
	Seed         uint64  `json:"seed"`
	Workers      int     `json:"workers"`
	Fitness      float64 `json:"fitness"`
	Episodes     int     `json:"episodes,omitempty"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// RunDir is where the artifacts of runID live under baseDir.
func RunDir(baseDir, runID string) string {
	return filepath.Join(baseDir, runID)
}

// WriteRunArtifacts writes config.json plus whichever of the optional
// documents are present and returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := RunDir(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if artifacts.History != nil {
		if err := writeJSON(filepath.Join(runDir, fitnessHistoryFile), artifacts.History); err != nil {
			return "", err
		}
	}
	if artifacts.Policy != nil {
		if err := writeJSON(filepath.Join(runDir, policyFile), artifacts.Policy); err != nil {
			return "", err
		}
	}
	if artifacts.Summary != nil {
		if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// readRunIndex returns the index in append order.
func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	found, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !found {
		return []RunIndexEntry{}, nil
	}
	return entries, nil
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Later appends win ties.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies every artifact present for runID into outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := RunDir(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	if err := copyFile(filepath.Join(src, configFile), filepath.Join(dst, configFile)); err != nil {
		return "", err
	}
	for _, file := range []string{fitnessHistoryFile, policyFile, summaryFile, TraceFile} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	found, err := readJSON(filepath.Join(RunDir(baseDir, runID), configFile), &cfg)
	return cfg, found, err
}

func ReadFitnessHistory(baseDir, runID string) (FitnessHistory, bool, error) {
	var history FitnessHistory
	found, err := readJSON(filepath.Join(RunDir(baseDir, runID), fitnessHistoryFile), &history)
	return history, found, err
}

func ReadPolicy(baseDir, runID string) (model.Genome, bool, error) {
	var genome model.Genome
	found, err := readJSON(filepath.Join(RunDir(baseDir, runID), policyFile), &genome)
	return genome, found, err
}

func ReadSummary(baseDir, runID string) (model.EvaluationSummary, bool, error) {
	var summary model.EvaluationSummary
	found, err := readJSON(filepath.Join(RunDir(baseDir, runID), summaryFile), &summary)
	return summary, found, err
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
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

package stats

import (
	"gonum.org/v1/gonum/stat"

	"gazepomdp/internal/genotype"
	"gazepomdp/internal/model"
	"gazepomdp/internal/scape"
)

// Summarize aggregates per-episode results. StdReturn is the sample standard
// deviation and is zero for a single episode.
func Summarize(runID, policyID string, episodes []scape.EpisodeSummary) model.EvaluationSummary {
	summary := model.EvaluationSummary{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: genotype.CurrentSchemaVersion,
			CodecVersion:  genotype.CurrentCodecVersion,
		},
		RunID:    runID,
		PolicyID: policyID,
		Episodes: len(episodes),
	}
	if len(episodes) == 0 {
		return summary
	}

	returns := make([]float64, len(episodes))
	steps := make([]float64, len(episodes))
	successes := 0
	for i, ep := range episodes {
		returns[i] = ep.Return
		steps[i] = float64(ep.Steps)
		if ep.Success {
			successes++
		}
		if ep.Truncated {
			summary.Truncations++
		}
	}
	summary.MeanReturn, summary.StdReturn = stat.MeanStdDev(returns, nil)
	if len(episodes) == 1 {
		summary.StdReturn = 0
	}
	summary.MeanSteps = stat.Mean(steps, nil)
	summary.SuccessRate = float64(successes) / float64(len(episodes))
	return summary
}

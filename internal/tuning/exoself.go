package tuning

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"gazepomdp/internal/genotype"
	"gazepomdp/internal/model"
)

// Exoself is a hill climber over policy parameters. Each attempt perturbs
// one or more candidate bases, evaluates them and keeps the best candidate
// if it beats the incumbent by more than MinImprovement.
type Exoself struct {
	Rand               *rand.Rand
	Steps              int
	StepSize           float64
	PerturbationRange  float64
	AnnealingFactor    float64
	MinImprovement     float64
	GoalFitness        *float64
	CandidateSelection string
	Logger             *zap.Logger
}

const (
	CandidateSelectBestSoFar = "best_so_far"
	CandidateSelectOriginal  = "original"
	CandidateSelectDynamic   = "dynamic"
	CandidateSelectDynamicRd = "dynamic_random"
	CandidateSelectRecent    = "recent"
	CandidateSelectAll       = "all"
	CandidateSelectAllRandom = "all_random"
)

var ErrUnsupportedSelection = errors.New("unsupported candidate selection")

func (e *Exoself) Name() string {
	return "exoself_hillclimb"
}

// NormalizeCandidateSelectionName maps the empty name to best_so_far.
func NormalizeCandidateSelectionName(name string) string {
	if name == "" {
		return CandidateSelectBestSoFar
	}
	return name
}

// ValidateCandidateSelection reports whether name is a known selection mode.
func ValidateCandidateSelection(name string) error {
	switch NormalizeCandidateSelectionName(name) {
	case CandidateSelectBestSoFar, CandidateSelectOriginal, CandidateSelectDynamic, CandidateSelectDynamicRd,
		CandidateSelectRecent, CandidateSelectAll, CandidateSelectAllRandom:
		return nil
	default:
		return ErrUnsupportedSelection
	}
}

func (e *Exoself) Tune(ctx context.Context, genome model.Genome, attempts int, fitness FitnessFn) (model.Genome, TuneReport, error) {
	report := TuneReport{AttemptsPlanned: attempts}
	if err := ctx.Err(); err != nil {
		return model.Genome{}, report, err
	}
	if e == nil || e.Rand == nil {
		return model.Genome{}, report, errors.New("random source is required")
	}
	if e.Steps <= 0 {
		return model.Genome{}, report, errors.New("steps must be > 0")
	}
	if e.StepSize <= 0 {
		return model.Genome{}, report, errors.New("step size must be > 0")
	}
	if e.PerturbationRange < 0 {
		return model.Genome{}, report, errors.New("perturbation range must be >= 0")
	}
	if e.AnnealingFactor < 0 {
		return model.Genome{}, report, errors.New("annealing factor must be >= 0")
	}
	if e.MinImprovement < 0 {
		return model.Genome{}, report, errors.New("min improvement must be >= 0")
	}
	if err := ValidateCandidateSelection(e.CandidateSelection); err != nil {
		return model.Genome{}, report, err
	}
	if fitness == nil {
		return model.Genome{}, report, errors.New("fitness function is required")
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	perturbationRange := e.PerturbationRange
	if perturbationRange == 0 {
		perturbationRange = 1.0
	}
	annealingFactor := e.AnnealingFactor
	if annealingFactor == 0 {
		annealingFactor = 1.0
	}

	best := genotype.Clone(genome)
	bestFitness, err := fitness(ctx, best)
	if err != nil {
		return model.Genome{}, report, err
	}
	report.CandidateEvaluations++
	report.InitialFitness = bestFitness
	report.BestFitness = bestFitness
	if e.goalReached(bestFitness) {
		report.GoalReached = true
		return best, report, nil
	}
	if attempts <= 0 || tunableCount(best) == 0 {
		return best, report, nil
	}
	recent := genotype.Clone(best)

	for a := 0; a < attempts; a++ {
		if err := ctx.Err(); err != nil {
			return model.Genome{}, report, err
		}
		report.AttemptsExecuted++

		localBest := genotype.Clone(best)
		localBestFitness := bestFitness
		for _, base := range e.candidateBases(best, genome, recent) {
			candidate := e.perturbCandidate(base, perturbationRange, annealingFactor)
			candidateFitness, err := fitness(ctx, candidate)
			if err != nil {
				return model.Genome{}, report, err
			}
			report.CandidateEvaluations++
			if candidateFitness > localBestFitness+e.MinImprovement {
				localBest = candidate
				localBestFitness = candidateFitness
			}
		}
		recent = genotype.Clone(localBest)
		if localBestFitness > bestFitness+e.MinImprovement {
			best = localBest
			bestFitness = localBestFitness
			report.AcceptedCandidates++
			logger.Debug("candidate accepted", zap.Int("attempt", a), zap.Float64("fitness", bestFitness))
		} else {
			report.RejectedCandidates++
		}
		if e.goalReached(bestFitness) {
			report.GoalReached = true
			break
		}
	}

	report.BestFitness = bestFitness
	return best, report, nil
}

func (e *Exoself) goalReached(fitness float64) bool {
	return e.GoalFitness != nil && fitness >= *e.GoalFitness
}

func (e *Exoself) candidateBases(best, original, recent model.Genome) []model.Genome {
	var pool []model.Genome
	random := false
	switch NormalizeCandidateSelectionName(e.CandidateSelection) {
	case CandidateSelectOriginal:
		pool = []model.Genome{original}
	case CandidateSelectDynamic:
		pool = []model.Genome{best, original}
	case CandidateSelectDynamicRd:
		pool, random = []model.Genome{best, original}, true
	case CandidateSelectRecent:
		pool = []model.Genome{recent}
	case CandidateSelectAll:
		pool = []model.Genome{best, original, recent}
	case CandidateSelectAllRandom:
		pool, random = []model.Genome{best, original, recent}, true
	default:
		pool = []model.Genome{best}
	}
	if random {
		pool = e.randomSubset(pool)
	}
	return pool
}

func (e *Exoself) randomSubset(pool []model.Genome) []model.Genome {
	if len(pool) <= 1 {
		return pool
	}
	keepP := 1 / math.Sqrt(float64(len(pool)))
	chosen := make([]model.Genome, 0, len(pool))
	for i := range pool {
		if e.Rand.Float64() < keepP {
			chosen = append(chosen, pool[i])
		}
	}
	if len(chosen) > 0 {
		return chosen
	}
	return []model.Genome{pool[e.Rand.IntN(len(pool))]}
}

// perturbCandidate nudges Steps randomly chosen parameters (synapse weights
// or non-input biases) by a uniform delta whose spread anneals per step.
func (e *Exoself) perturbCandidate(base model.Genome, perturbationRange, annealingFactor float64) model.Genome {
	candidate := genotype.Clone(base)
	params := tunableParams(&candidate)
	if len(params) == 0 {
		return candidate
	}
	for s := 0; s < e.Steps; s++ {
		idx := e.Rand.IntN(len(params))
		spread := e.StepSize * perturbationRange * math.Pow(annealingFactor, float64(s))
		*params[idx] += (e.Rand.Float64()*2 - 1) * spread
	}
	return candidate
}

func tunableParams(g *model.Genome) []*float64 {
	inputs := make(map[string]struct{}, len(g.InputIDs))
	for _, id := range g.InputIDs {
		inputs[id] = struct{}{}
	}
	params := make([]*float64, 0, len(g.Synapses)+len(g.Neurons))
	for i := range g.Synapses {
		if g.Synapses[i].Enabled {
			params = append(params, &g.Synapses[i].Weight)
		}
	}
	for i := range g.Neurons {
		if _, isInput := inputs[g.Neurons[i].ID]; !isInput {
			params = append(params, &g.Neurons[i].Bias)
		}
	}
	return params
}

func tunableCount(g model.Genome) int {
	return len(tunableParams(&g))
}

package genotype

import (
	"fmt"
	"math/rand/v2"

	"gazepomdp/internal/model"
	"gazepomdp/internal/nn"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

// Policy input and output neuron IDs, in observation/action order.
var (
	PolicyInputIDs  = []string{"belief_x", "belief_y", "belief_std"}
	PolicyOutputIDs = []string{"fix_x", "fix_y"}
)

// ConstructPolicy builds a feed-forward policy genome: the observation feeds
// an optional tanh hidden layer, which feeds two tanh outputs. With hidden
// == 0 inputs connect straight to outputs. Weights and biases are drawn
// uniformly from [-0.5, 0.5].
func ConstructPolicy(id string, hidden int, rng *rand.Rand) (model.Genome, error) {
	if id == "" {
		return model.Genome{}, fmt.Errorf("genome id is required")
	}
	if hidden < 0 {
		return model.Genome{}, fmt.Errorf("hidden neurons must be >= 0, got %d", hidden)
	}
	if rng == nil {
		return model.Genome{}, fmt.Errorf("random source is required")
	}

	genome := model.Genome{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		InputIDs:        append([]string(nil), PolicyInputIDs...),
		OutputIDs:       append([]string(nil), PolicyOutputIDs...),
	}
	for _, in := range PolicyInputIDs {
		genome.Neurons = append(genome.Neurons, model.Neuron{ID: in, Activation: "identity"})
	}

	sources := PolicyInputIDs
	if hidden > 0 {
		hiddenIDs := make([]string, hidden)
		for i := range hiddenIDs {
			hiddenIDs[i] = fmt.Sprintf("h%d", i)
			genome.Neurons = append(genome.Neurons, model.Neuron{ID: hiddenIDs[i], Activation: "tanh", Bias: randomCentered(rng)})
		}
		genome.Synapses = append(genome.Synapses, connect(sources, hiddenIDs, rng)...)
		sources = hiddenIDs
	}
	for _, out := range PolicyOutputIDs {
		genome.Neurons = append(genome.Neurons, model.Neuron{ID: out, Activation: "tanh", Bias: randomCentered(rng)})
	}
	genome.Synapses = append(genome.Synapses, connect(sources, PolicyOutputIDs, rng)...)

	if err := nn.Validate(genome); err != nil {
		return model.Genome{}, err
	}
	return genome, nil
}

// Clone returns a deep copy of g.
func Clone(g model.Genome) model.Genome {
	out := g
	out.Neurons = append([]model.Neuron(nil), g.Neurons...)
	out.Synapses = append([]model.Synapse(nil), g.Synapses...)
	out.InputIDs = append([]string(nil), g.InputIDs...)
	out.OutputIDs = append([]string(nil), g.OutputIDs...)
	return out
}

func connect(from, to []string, rng *rand.Rand) []model.Synapse {
	synapses := make([]model.Synapse, 0, len(from)*len(to))
	for _, dst := range to {
		for _, src := range from {
			synapses = append(synapses, model.Synapse{
				ID:      src + "->" + dst,
				From:    src,
				To:      dst,
				Weight:  randomCentered(rng),
				Enabled: true,
			})
		}
	}
	return synapses
}

func randomCentered(rng *rand.Rand) float64 {
	return rng.Float64() - 0.5
}

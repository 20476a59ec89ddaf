package nn

import (
	"fmt"

	"gazepomdp/internal/model"
)

// Forward evaluates genome once. Input neurons are pinned to the supplied
// values; every other neuron sums its bias and enabled inbound synapses in
// slice order and applies its activation.
func Forward(genome model.Genome, inputByNeuron map[string]float64) (map[string]float64, error) {
	values := make(map[string]float64, len(genome.Neurons))
	for neuronID, value := range inputByNeuron {
		values[neuronID] = value
	}

	incoming := make(map[string][]model.Synapse, len(genome.Neurons))
	for _, synapse := range genome.Synapses {
		if !synapse.Enabled {
			continue
		}
		incoming[synapse.To] = append(incoming[synapse.To], synapse)
	}

	for _, neuron := range genome.Neurons {
		if _, fixedInput := inputByNeuron[neuron.ID]; fixedInput {
			continue
		}

		total := neuron.Bias
		for _, synapse := range incoming[neuron.ID] {
			total += values[synapse.From] * synapse.Weight
		}

		fn, err := GetActivation(neuron.Activation)
		if err != nil {
			return nil, fmt.Errorf("neuron %s: %w", neuron.ID, err)
		}
		values[neuron.ID] = fn(total)
	}

	return values, nil
}

// Validate checks that every synapse endpoint and declared input/output
// refers to a neuron of the genome.
func Validate(genome model.Genome) error {
	known := make(map[string]struct{}, len(genome.Neurons))
	for _, neuron := range genome.Neurons {
		if _, dup := known[neuron.ID]; dup {
			return fmt.Errorf("duplicate neuron %s", neuron.ID)
		}
		if _, err := GetActivation(neuron.Activation); err != nil {
			return fmt.Errorf("neuron %s: %w", neuron.ID, err)
		}
		known[neuron.ID] = struct{}{}
	}
	for _, synapse := range genome.Synapses {
		if _, ok := known[synapse.From]; !ok {
			return fmt.Errorf("synapse %s: unknown source %s", synapse.ID, synapse.From)
		}
		if _, ok := known[synapse.To]; !ok {
			return fmt.Errorf("synapse %s: unknown target %s", synapse.ID, synapse.To)
		}
	}
	for _, id := range append(append([]string(nil), genome.InputIDs...), genome.OutputIDs...) {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("unknown io neuron %s", id)
		}
	}
	return nil
}

package agent

import (
	"context"
	"fmt"

	"gazepomdp/internal/model"
	"gazepomdp/internal/nn"
)

// Cortex runs a policy genome: one observation in, one action out.
type Cortex struct {
	id              string
	genome          model.Genome
	inputNeuronIDs  []string
	outputNeuronIDs []string
}

func NewCortex(id string, genome model.Genome) (*Cortex, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if len(genome.InputIDs) == 0 {
		return nil, fmt.Errorf("input neuron ids are required")
	}
	if len(genome.OutputIDs) == 0 {
		return nil, fmt.Errorf("output neuron ids are required")
	}
	if err := nn.Validate(genome); err != nil {
		return nil, fmt.Errorf("genome %s: %w", genome.ID, err)
	}

	return &Cortex{
		id:              id,
		genome:          genome,
		inputNeuronIDs:  append([]string(nil), genome.InputIDs...),
		outputNeuronIDs: append([]string(nil), genome.OutputIDs...),
	}, nil
}

func (c *Cortex) ID() string {
	return c.id
}

func (c *Cortex) Genome() model.Genome {
	return c.genome
}

func (c *Cortex) RunStep(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != len(c.inputNeuronIDs) {
		return nil, fmt.Errorf("input size mismatch: got=%d want=%d", len(inputs), len(c.inputNeuronIDs))
	}

	inputByNeuron := make(map[string]float64, len(c.inputNeuronIDs))
	for i, neuronID := range c.inputNeuronIDs {
		inputByNeuron[neuronID] = inputs[i]
	}

	values, err := nn.Forward(c.genome, inputByNeuron)
	if err != nil {
		return nil, err
	}

	outputs := make([]float64, len(c.outputNeuronIDs))
	for i, neuronID := range c.outputNeuronIDs {
		outputs[i] = values[neuronID]
	}
	return outputs, nil
}

package scape

import (
	"fmt"
	"math"
)

// Box is a continuous space with per-dimension bounds.
type Box struct {
	Low  []float64 `json:"low"`
	High []float64 `json:"high"`
}

// NewBox builds a box of dim dimensions sharing one pair of bounds.
func NewBox(dim int, low, high float64) Box {
	b := Box{Low: make([]float64, dim), High: make([]float64, dim)}
	for i := 0; i < dim; i++ {
		b.Low[i] = low
		b.High[i] = high
	}
	return b
}

func (b Box) Dim() int {
	return len(b.Low)
}

func (b Box) Contains(values []float64) bool {
	if len(values) != b.Dim() {
		return false
	}
	for i, v := range values {
		if v < b.Low[i] || v > b.High[i] {
			return false
		}
	}
	return true
}

// Clip checks the shape and finiteness of values and clamps each component
// into the box.
func (b Box) Clip(values []float64) ([]float64, error) {
	if len(values) != b.Dim() {
		return nil, fmt.Errorf("%w: want %d components, got %d", ErrInvalidAction, b.Dim(), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: component %d is not finite", ErrInvalidAction, i)
		}
		out[i] = math.Max(b.Low[i], math.Min(b.High[i], v))
	}
	return out, nil
}

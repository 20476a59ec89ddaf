// Package geometry holds the 2D point type shared by the task and the theory.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DomainMin and DomainMax bound every coordinate of the pointing task.
	DomainMin = -1.0
	DomainMax = 1.0
)

// Corner is the fixed starting fixation of every episode.
var Corner = Point2D{X: DomainMin, Y: DomainMin}

// Point2D is a position on the task plane.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Slice returns the point as a two-element vector.
func (p Point2D) Slice() []float64 {
	return []float64{p.X, p.Y}
}

// IsFinite reports whether both coordinates are neither NaN nor infinite.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// FromSlice builds a point from a vector of exactly two values.
func FromSlice(values []float64) (Point2D, error) {
	if len(values) != 2 {
		return Point2D{}, fmt.Errorf("point requires 2 values, got %d", len(values))
	}
	return Point2D{X: values[0], Y: values[1]}, nil
}

// Distance is the Euclidean norm of a-b.
func Distance(a, b Point2D) float64 {
	return floats.Distance(a.Slice(), b.Slice(), 2)
}

// Clip clamps each coordinate of p to [lo, hi].
func Clip(p Point2D, lo, hi float64) Point2D {
	return Point2D{X: clamp(p.X, lo, hi), Y: clamp(p.Y, lo, hi)}
}

// ClipDomain clamps p to the task domain [-1, 1]².
func ClipDomain(p Point2D) Point2D {
	return Clip(p, DomainMin, DomainMax)
}

// InDomain reports whether both coordinates lie in [-1, 1].
func InDomain(p Point2D) bool {
	return p.X >= DomainMin && p.X <= DomainMax && p.Y >= DomainMin && p.Y <= DomainMax
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

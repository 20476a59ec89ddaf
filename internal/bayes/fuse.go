// Package bayes combines independent Gaussian estimates of the same quantity.
package bayes

import (
	"errors"
	"fmt"
	"math"

	"gazepomdp/internal/geometry"
)

var (
	ErrInvalidArgument = errors.New("invalid fusion argument")
	// ErrNumericDegeneracy is returned when two zero-variance estimates
	// disagree, leaving the precision-weighted mean undefined.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

// agreementTolerance bounds how far two certain estimates may differ and
// still be treated as the same value.
const agreementTolerance = 1e-12

// Fuse returns the posterior of a stimulus estimate and a prior estimate,
// each given as mean and standard deviation.
func Fuse(stimulusMean, stimulusStd, priorMean, priorStd float64) (float64, float64, error) {
	if err := checkEstimate(stimulusMean, stimulusStd); err != nil {
		return 0, 0, fmt.Errorf("stimulus: %w", err)
	}
	if err := checkEstimate(priorMean, priorStd); err != nil {
		return 0, 0, fmt.Errorf("prior: %w", err)
	}

	stimulusVar := stimulusStd * stimulusStd
	priorVar := priorStd * priorStd
	total := stimulusVar + priorVar
	if total == 0 {
		if math.Abs(stimulusMean-priorMean) > agreementTolerance {
			return 0, 0, fmt.Errorf("%w: zero-variance estimates %g and %g disagree", ErrNumericDegeneracy, stimulusMean, priorMean)
		}
		return stimulusMean, 0, nil
	}

	stimulusWeight := priorVar / total
	priorWeight := stimulusVar / total
	mean := stimulusWeight*stimulusMean + priorWeight*priorMean
	std := math.Sqrt(stimulusVar * priorVar / total)
	return mean, std, nil
}

// FusePoint fuses each axis of a 2D estimate independently. Both axes share
// one standard deviation, so the posterior std is the same for X and Y.
func FusePoint(stimulus geometry.Point2D, stimulusStd float64, prior geometry.Point2D, priorStd float64) (geometry.Point2D, float64, error) {
	x, std, err := Fuse(stimulus.X, stimulusStd, prior.X, priorStd)
	if err != nil {
		return geometry.Point2D{}, 0, fmt.Errorf("x axis: %w", err)
	}
	y, _, err := Fuse(stimulus.Y, stimulusStd, prior.Y, priorStd)
	if err != nil {
		return geometry.Point2D{}, 0, fmt.Errorf("y axis: %w", err)
	}
	return geometry.Point2D{X: x, Y: y}, std, nil
}

func checkEstimate(mean, std float64) error {
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return fmt.Errorf("%w: mean must be finite, got %g", ErrInvalidArgument, mean)
	}
	if math.IsNaN(std) || math.IsInf(std, 0) || std < 0 {
		return fmt.Errorf("%w: std must be finite and >= 0, got %g", ErrInvalidArgument, std)
	}
	return nil
}

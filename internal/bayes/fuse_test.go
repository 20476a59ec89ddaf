package bayes

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gazepomdp/internal/geometry"
)

func TestFuseEqualPrecisionAveragesMeans(t *testing.T) {
	mean, std, err := Fuse(1.0, 0.2, 0.0, 0.2)
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if math.Abs(mean-0.5) > 1e-12 {
		t.Fatalf("expected mean 0.5, got %f", mean)
	}
	want := 0.2 / math.Sqrt2
	if math.Abs(std-want) > 1e-12 {
		t.Fatalf("expected std %f, got %f", want, std)
	}
}

func TestFuseCommutativeAndShrinksUncertainty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		m1 := rng.Float64()*4 - 2
		m2 := rng.Float64()*4 - 2
		s1 := 0.001 + rng.Float64()
		s2 := 0.001 + rng.Float64()

		meanA, stdA, err := Fuse(m1, s1, m2, s2)
		if err != nil {
			t.Fatalf("fuse a: %v", err)
		}
		meanB, stdB, err := Fuse(m2, s2, m1, s1)
		if err != nil {
			t.Fatalf("fuse b: %v", err)
		}
		if math.Abs(meanA-meanB) > 1e-12 || math.Abs(stdA-stdB) > 1e-12 {
			t.Fatalf("fuse not commutative: (%f,%f) vs (%f,%f)", meanA, stdA, meanB, stdB)
		}
		if stdA >= s1 || stdA >= s2 {
			t.Fatalf("posterior std %f not below inputs %f %f", stdA, s1, s2)
		}
	}
}

func TestFuseZeroStimulusVarianceTrustsStimulus(t *testing.T) {
	mean, std, err := Fuse(0.3, 0, 0, 0.1)
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if mean != 0.3 || std != 0 {
		t.Fatalf("expected (0.3, 0), got (%f, %f)", mean, std)
	}
}

func TestFuseBothZeroVariance(t *testing.T) {
	mean, std, err := Fuse(0.4, 0, 0.4, 0)
	if err != nil {
		t.Fatalf("agreeing certain estimates: %v", err)
	}
	if mean != 0.4 || std != 0 {
		t.Fatalf("expected (0.4, 0), got (%f, %f)", mean, std)
	}

	_, _, err = Fuse(0.4, 0, 0.1, 0)
	if !errors.Is(err, ErrNumericDegeneracy) {
		t.Fatalf("expected numeric degeneracy, got %v", err)
	}
}

func TestFuseRejectsInvalidStd(t *testing.T) {
	if _, _, err := Fuse(0, -0.1, 0, 0.1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for negative std, got %v", err)
	}
	if _, _, err := Fuse(math.NaN(), 0.1, 0, 0.1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for NaN mean, got %v", err)
	}
}

func TestFusePointAppliesPerAxis(t *testing.T) {
	got, std, err := FusePoint(geometry.Point2D{X: 1, Y: -1}, 0.1, geometry.Point2D{}, 0.1)
	if err != nil {
		t.Fatalf("fuse point: %v", err)
	}
	if math.Abs(got.X-0.5) > 1e-12 || math.Abs(got.Y+0.5) > 1e-12 {
		t.Fatalf("unexpected posterior mean: %v", got)
	}
	if math.Abs(std-0.1/math.Sqrt2) > 1e-12 {
		t.Fatalf("unexpected posterior std: %f", std)
	}
}

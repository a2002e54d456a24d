package linear

import (
	"errors"
	"math"
	"testing"

	"truthlens/internal/features"
	"truthlens/internal/model"
)

func fv(idx []int, vals []float64) features.FeatureVector {
	return features.FeatureVector{Indices: idx, Values: vals}
}

func separable() ([]features.FeatureVector, []int) {
	// feature 0 marks REAL documents, feature 1 marks FAKE ones
	xs := []features.FeatureVector{
		fv([]int{0}, []float64{1}),
		fv([]int{0, 2}, []float64{0.8, 0.6}),
		fv([]int{0}, []float64{1}),
		fv([]int{1}, []float64{1}),
		fv([]int{1, 2}, []float64{0.8, 0.6}),
		fv([]int{1}, []float64{1}),
	}
	ys := []int{1, 1, 1, 0, 0, 0}
	return xs, ys
}

func TestTrainSeparable(t *testing.T) {
	xs, ys := separable()
	m, rep, err := Train(xs, ys, 3, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Converged {
		t.Fatalf("expected convergence, got %+v", rep)
	}
	if m.Dim() != 3 || m.PositiveLabel != model.LabelReal {
		t.Fatalf("unexpected model shape %+v", m)
	}
	if m.Weights[0] <= 0 || m.Weights[1] >= 0 {
		t.Fatalf("weights point the wrong way: %v", m.Weights)
	}
	for i, x := range xs {
		p := m.Score(x)
		if (p >= 0.5) != (ys[i] == 1) {
			t.Fatalf("row %d misclassified, p=%v", i, p)
		}
	}
}

func TestZeroVectorScoresBias(t *testing.T) {
	xs, ys := separable()
	m, _, err := Train(xs, ys, 3, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	p := m.Score(features.FeatureVector{})
	if want := Sigmoid(m.Bias); p != want {
		t.Fatalf("zero vector score %v want %v", p, want)
	}
	if p <= 0 || p >= 1 {
		t.Fatalf("probability out of range %v", p)
	}
}

func TestBalancedBiasNearZero(t *testing.T) {
	// 1 REAL vs 5 FAKE documents with identical (empty) features: balanced
	// weighting must keep the prior at 0.5.
	xs := make([]features.FeatureVector, 6)
	ys := []int{1, 0, 0, 0, 0, 0}
	m, _, err := Train(xs, ys, 1, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.Bias) > 1e-4 {
		t.Fatalf("balanced bias should be ~0, got %v", m.Bias)
	}
	unbalanced := DefaultOptions()
	unbalanced.Balanced = false
	m, _, err = Train(xs, ys, 1, unbalanced)
	if err != nil {
		t.Fatal(err)
	}
	if m.Bias >= 0 {
		t.Fatalf("unbalanced bias should favour FAKE, got %v", m.Bias)
	}
}

func TestTrainIterationLimitIsWarningNotError(t *testing.T) {
	xs, ys := separable()
	opts := DefaultOptions()
	opts.MaxIterations = 1
	opts.GradTolerance = 1e-300
	m, rep, err := Train(xs, ys, 3, opts)
	if err != nil {
		t.Fatalf("non-convergence must not be an error: %v", err)
	}
	if m == nil {
		t.Fatalf("expected best-effort model")
	}
	if rep.Converged || rep.Warning == "" {
		t.Fatalf("expected a non-convergence warning, got %+v", rep)
	}
}

func TestTrainInputErrors(t *testing.T) {
	if _, _, err := Train(nil, nil, 1, DefaultOptions()); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	xs, ys := separable()
	if _, _, err := Train(xs, ys[:2], 3, DefaultOptions()); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	if _, _, err := Train(xs, []int{1, 1, 1, 1, 1, 1}, 3, DefaultOptions()); !errors.Is(err, ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
	if _, _, err := Train(xs, ys, 2, DefaultOptions()); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension for out-of-range index, got %v", err)
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		p     float64
		label model.Label
		conf  float64
	}{
		{0.5, model.LabelReal, 0.5},
		{0.93, model.LabelReal, 0.93},
		{0.2, model.LabelFake, 0.8},
		{0.4999, model.LabelFake, 0.5001},
	}
	for _, tc := range cases {
		l, c := Decide(tc.p)
		if l != tc.label || math.Abs(c-tc.conf) > 1e-12 {
			t.Fatalf("Decide(%v) = %v %v", tc.p, l, c)
		}
		if c < 0.5 || c > 1 {
			t.Fatalf("confidence out of bounds %v", c)
		}
	}
}

func TestSigmoidStable(t *testing.T) {
	if s := Sigmoid(-1000); s < 0 || math.IsNaN(s) {
		t.Fatalf("sigmoid(-1000) = %v", s)
	}
	if s := Sigmoid(1000); s > 1 || math.IsNaN(s) {
		t.Fatalf("sigmoid(1000) = %v", s)
	}
	if softplus(1000) != 1000 {
		t.Fatalf("softplus overflowed")
	}
}

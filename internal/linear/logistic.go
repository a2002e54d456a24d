// Package linear implements an L2-regularised, class-balanced logistic
// regression over sparse feature vectors.
package linear

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"truthlens/internal/features"
	"truthlens/internal/model"
)

var (
	ErrEmpty       = errors.New("linear: no training samples")
	ErrDimension   = errors.New("linear: dimension mismatch")
	ErrSingleClass = errors.New("linear: training labels contain a single class")
)

// Options tunes training. C is the inverse regularisation strength.
type Options struct {
	C             float64 `yaml:"c"`
	MaxIterations int     `yaml:"maxIterations"`
	GradTolerance float64 `yaml:"gradTolerance"`
	Balanced      bool    `yaml:"balanced"`
}

// DefaultOptions is C=5, 1000 iterations and balanced class weights.
func DefaultOptions() Options {
	return Options{C: 5.0, MaxIterations: 1000, GradTolerance: 1e-6, Balanced: true}
}

// Model is a trained weight vector plus bias. Score returns the probability of
// PositiveLabel. A Model is never mutated after Train returns.
type Model struct {
	Weights       []float64   `json:"weights"`
	Bias          float64     `json:"bias"`
	PositiveLabel model.Label `json:"positive_label"`
}

// Report describes how training ended.
type Report struct {
	Converged  bool
	Iterations int
	Loss       float64
	Status     string
	Warning    string
}

// Dim is the number of weights.
func (m *Model) Dim() int { return len(m.Weights) }

// Score returns P(REAL | fv) = sigmoid(w·x + b), strictly inside (0,1) for
// finite inputs. A zero vector yields sigmoid(bias).
func (m *Model) Score(fv features.FeatureVector) float64 {
	return Sigmoid(fv.Dot(m.Weights) + m.Bias)
}

// Decide maps a probability of REAL to a label and the winning side's
// probability.
func Decide(pReal float64) (model.Label, float64) {
	if pReal >= 0.5 {
		return model.LabelReal, pReal
	}
	return model.LabelFake, 1 - pReal
}

// Sigmoid is the numerically stable logistic function.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log(1+exp(z)) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Train fits a model on labels in {0,1} where 1 means REAL. dim is the
// feature dimension (vocabulary size).
func Train(xs []features.FeatureVector, ys []int, dim int, opts Options) (*Model, Report, error) {
	if len(xs) == 0 {
		return nil, Report{}, ErrEmpty
	}
	if len(xs) != len(ys) {
		return nil, Report{}, fmt.Errorf("%w: %d vectors, %d labels", ErrDimension, len(xs), len(ys))
	}
	if opts.C <= 0 {
		opts.C = DefaultOptions().C
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.GradTolerance <= 0 {
		opts.GradTolerance = DefaultOptions().GradTolerance
	}

	var pos int
	for i, y := range ys {
		if y != 0 && y != 1 {
			return nil, Report{}, fmt.Errorf("linear: label %d at row %d is not 0 or 1", y, i)
		}
		for _, j := range xs[i].Indices {
			if j < 0 || j >= dim {
				return nil, Report{}, fmt.Errorf("%w: index %d outside [0,%d)", ErrDimension, j, dim)
			}
		}
		pos += y
	}
	neg := len(ys) - pos
	if pos == 0 || neg == 0 {
		return nil, Report{}, ErrSingleClass
	}

	sw := make([]float64, len(ys))
	for i, y := range ys {
		sw[i] = 1
		if opts.Balanced {
			if y == 1 {
				sw[i] = float64(len(ys)) / (2 * float64(pos))
			} else {
				sw[i] = float64(len(ys)) / (2 * float64(neg))
			}
		}
	}

	obj := &objective{xs: xs, ys: ys, sw: sw, dim: dim, c: opts.C}
	problem := optimize.Problem{Func: obj.loss, Grad: obj.grad}
	settings := &optimize.Settings{
		MajorIterations:   opts.MaxIterations,
		GradientThreshold: opts.GradTolerance,
	}
	init := make([]float64, dim+1)

	res, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	rep := Report{}
	x := init
	if res != nil {
		x = res.X
		rep.Iterations = res.Stats.MajorIterations
		rep.Loss = res.F
		rep.Status = res.Status.String()
	}
	rep.Converged = err == nil && res != nil && !limitReached(res.Status)
	if !rep.Converged {
		reason := rep.Status
		if err != nil {
			reason = err.Error()
		}
		rep.Warning = fmt.Sprintf("training did not converge after %d iterations: %s", rep.Iterations, reason)
	}
	if !allFinite(x) {
		// keep the starting point rather than hand out NaN weights
		x = init
		rep.Converged = false
		rep.Warning = "training diverged to non-finite weights; using the prior"
	}

	m := &Model{
		Weights:       append([]float64(nil), x[:dim]...),
		Bias:          x[dim],
		PositiveLabel: model.LabelReal,
	}
	return m, rep, nil
}

func limitReached(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.Failure:
		return true
	}
	return false
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// objective is 0.5*||w||^2 + C * sum_i s_i * logloss_i. The bias is the last
// coordinate and is not penalised.
type objective struct {
	xs  []features.FeatureVector
	ys  []int
	sw  []float64
	dim int
	c   float64
}

func (o *objective) loss(x []float64) float64 {
	w, b := x[:o.dim], x[o.dim]
	sum := 0.0
	for i, fv := range o.xs {
		z := fv.Dot(w) + b
		// -[y log σ(z) + (1-y) log(1-σ(z))] = softplus(z) - y*z
		sum += o.sw[i] * (softplus(z) - float64(o.ys[i])*z)
	}
	return 0.5*floats.Dot(w, w) + o.c*sum
}

func (o *objective) grad(g, x []float64) {
	w, b := x[:o.dim], x[o.dim]
	copy(g[:o.dim], w)
	g[o.dim] = 0
	for i, fv := range o.xs {
		r := o.c * o.sw[i] * (Sigmoid(fv.Dot(w)+b) - float64(o.ys[i]))
		for k, j := range fv.Indices {
			g[j] += r * fv.Values[k]
		}
		g[o.dim] += r
	}
}

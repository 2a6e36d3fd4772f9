// Package fit fits a Weibull delay distribution to each group summary and
// runs those fits across a bounded worker pool.
package fit

import (
	"math"

	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Search bounds and the fallback pair. Every Params returned by Fit lies
// inside the bounds.
const (
	MinShape = 0.5
	MaxShape = 8.0
	MinScale = 1.0
	MaxScale = 100.0

	DefaultShape = 2.0
	DefaultScale = 10.0
)

// Objective weights.
const (
	onTimeWeight = 10.0
	tailWeight   = 10.0
	modeWeight   = 0.1
	shapeWeight  = 0.01
)

// Input carries the group statistics the fit is matched against.
type Input struct {
	PLessThan15    *float64
	PGreaterThan60 *float64
	DelayMedian    *float64
	DelayStd       *float64
}

// InputFrom picks the fit inputs out of a summary.
func InputFrom(s *domain.GroupSummary) Input {
	return Input{
		PLessThan15:    s.PLessThan15,
		PGreaterThan60: s.PGreaterThan60,
		DelayMedian:    s.DelayMedian,
		DelayStd:       s.DelayStd,
	}
}

// Params is a fitted (shape, scale) pair. Fallback marks the default pair.
type Params struct {
	Shape    float64
	Scale    float64
	Fallback bool
}

// Default returns the pair used when no start converges.
func Default() Params {
	return Params{Shape: DefaultShape, Scale: DefaultScale, Fallback: true}
}

// Spikiness buckets a group's delay standard deviation.
type Spikiness int

const (
	SpikinessLow Spikiness = iota
	SpikinessMedium
	SpikinessHigh
)

// SpikinessOf returns low below 10 minutes, medium below 20, high otherwise.
func SpikinessOf(std float64) Spikiness {
	switch {
	case std < 10:
		return SpikinessLow
	case std < 20:
		return SpikinessMedium
	default:
		return SpikinessHigh
	}
}

// PreferredShape is the shape the fit is pulled toward for the tier.
func (s Spikiness) PreferredShape() float64 {
	switch s {
	case SpikinessLow:
		return 1.5
	case SpikinessMedium:
		return 2.5
	default:
		return 4.0
	}
}

func (s Spikiness) String() string {
	switch s {
	case SpikinessLow:
		return "low"
	case SpikinessMedium:
		return "medium"
	default:
		return "high"
	}
}

// Minimizer searches for a local minimum of objective over
// (shape, scale) within the package bounds, starting at start. ok is false
// when the search did not converge.
type Minimizer func(objective func(x []float64) float64, start []float64) (x []float64, f float64, ok bool)

// Fitter fits Weibull parameters to group statistics. It is stateless and
// safe for concurrent use.
type Fitter struct {
	minimize Minimizer
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithMinimizer replaces the default bounded Nelder-Mead search.
func WithMinimizer(m Minimizer) Option {
	return func(f *Fitter) { f.minimize = m }
}

// NewFitter returns a Fitter using bounded Nelder-Mead unless overridden.
func NewFitter(opts ...Option) *Fitter {
	f := &Fitter{minimize: BoundedNelderMead}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit returns the lowest-objective converged result across the start points,
// or Default when nothing converges, an input is null, or the search panics.
func (f *Fitter) Fit(in Input) (p Params) {
	defer func() {
		if r := recover(); r != nil {
			p = Default()
		}
	}()

	if in.PLessThan15 == nil || in.PGreaterThan60 == nil || in.DelayMedian == nil || in.DelayStd == nil {
		return Default()
	}

	preferred := SpikinessOf(*in.DelayStd).PreferredShape()
	objective := func(x []float64) float64 {
		return Objective(x[0], x[1], *in.PLessThan15, *in.PGreaterThan60, *in.DelayMedian, preferred)
	}

	bestF := math.Inf(1)
	found := false
	for _, start := range Starts(preferred) {
		x, fx, ok := f.minimize(objective, start)
		if !ok || len(x) != 2 || !inBounds(x[0], x[1]) || math.IsNaN(fx) {
			continue
		}
		if !found || fx < bestF {
			found = true
			bestF = fx
			p = Params{Shape: x[0], Scale: x[1]}
		}
	}

	if !found {
		return Default()
	}
	return p
}

// Starts returns the four start points for a preferred shape, clamped into bounds.
func Starts(preferred float64) [][]float64 {
	raw := [][2]float64{
		{preferred, 10},
		{preferred * 0.7, 15},
		{preferred * 1.3, 8},
		{2.0, 12},
	}
	starts := make([][]float64, len(raw))
	for i, s := range raw {
		starts[i] = []float64{clamp(s[0], MinShape, MaxShape), clamp(s[1], MinScale, MaxScale)}
	}
	return starts
}

// Objective scores a (shape, scale) pair against the observed on-time rate,
// severe-delay rate and median delay, with a weak pull toward preferred.
func Objective(shape, scale, observed15, observed60, medianDelay, preferred float64) float64 {
	w := distuv.Weibull{K: shape, Lambda: scale}
	cdf15 := w.CDF(15)
	tail60 := w.Survival(60)

	var modeErr float64
	if shape > 1 {
		mode := scale * math.Pow((shape-1)/shape, 1/shape)
		modeErr = (mode - medianDelay) * (mode - medianDelay)
	} else {
		modeErr = medianDelay * medianDelay
	}
	shapeErr := shape - preferred

	return onTimeWeight*(cdf15-observed15)*(cdf15-observed15) +
		tailWeight*(tail60-observed60)*(tail60-observed60) +
		modeWeight*modeErr +
		shapeWeight*shapeErr*shapeErr
}

// BoundedNelderMead minimizes objective with gonum's Nelder-Mead over a
// logistic reparametrization, so every evaluated point lies strictly inside
// the shape and scale bounds.
func BoundedNelderMead(objective func(x []float64) float64, start []float64) ([]float64, float64, bool) {
	lo := [2]float64{MinShape, MinScale}
	hi := [2]float64{MaxShape, MaxScale}

	toBounded := func(u []float64) []float64 {
		x := make([]float64, 2)
		for i := range x {
			x[i] = lo[i] + (hi[i]-lo[i])/(1+math.Exp(-u[i]))
		}
		return x
	}

	u0 := make([]float64, 2)
	for i := range u0 {
		eps := (hi[i] - lo[i]) * 1e-6
		x := clamp(start[i], lo[i]+eps, hi[i]-eps)
		u0[i] = math.Log((x - lo[i]) / (hi[i] - x))
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 { return objective(toBounded(u)) },
	}
	settings := &optimize.Settings{
		FuncEvaluations: 5000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, u0, settings, &optimize.NelderMead{})
	if err != nil || res == nil || !converged(res.Status) {
		return nil, 0, false
	}

	x := toBounded(res.X)
	f := objective(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, 0, false
	}
	return x, f, true
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

func inBounds(shape, scale float64) bool {
	return shape >= MinShape && shape <= MaxShape && scale >= MinScale && scale <= MaxScale
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

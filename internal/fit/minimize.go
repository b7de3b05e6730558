package fit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

// Default parameter box: a floor keeping rate constants positive and a
// generous ceiling.
const (
	DefaultLowerBound = 1e-12
	DefaultUpperBound = 1e6
)

// Method selects the gonum optimization algorithm behind a MinimizeFn.
type Method int

const (
	MethodNelderMead Method = iota
	MethodLBFGS
	MethodGradient
)

func MethodFromString(s string) Method {
	switch s {
	case "lbfgs":
		return MethodLBFGS
	case "gradient":
		return MethodGradient
	default:
		return MethodNelderMead
	}
}

func (m Method) gonum() optimize.Method {
	switch m {
	case MethodLBFGS:
		return &optimize.LBFGS{}
	case MethodGradient:
		return &optimize.GradientDescent{}
	default:
		return &optimize.NelderMead{}
	}
}

// ParamNames returns the parameter names of a guess in the deterministic
// order used to zip them with optimizer decision vectors.
func ParamNames(p0 InitialGuess) []string {
	names := make([]string, 0, len(p0))
	for name := range p0 {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Minimizer builds a MinimizeFn around a gonum method with every
// parameter clamped to [lower, upper]. Non-convergence is signalled by a
// NaN-filled map, never by an error.
func Minimizer(method Method, lower, upper float64) MinimizeFn {
	return func(residual ResidualFn, p0 InitialGuess) map[string]float64 {
		names := ParamNames(p0)
		x0 := make([]float64, len(names))
		for i, name := range names {
			x0[i] = clamp(p0[name], lower, upper)
		}

		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				boxed := make([]float64, len(x))
				for i, v := range x {
					boxed[i] = clamp(v, lower, upper)
				}
				return residual(boxed)
			},
		}
		settings := &optimize.Settings{
			MajorIterations: 1000,
			FuncEvaluations: 10000,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Iterations: 100,
			},
		}

		result, err := optimize.Minimize(problem, x0, settings, method.gonum())
		if err != nil || result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
			return nanMap(names)
		}

		fitted := make(map[string]float64, len(names))
		for i, name := range names {
			fitted[name] = clamp(result.X[i], lower, upper)
		}
		return fitted
	}
}

// DefaultMinimize is the stock strategy: Nelder-Mead inside the default
// parameter box.
var DefaultMinimize = Minimizer(MethodNelderMead, DefaultLowerBound, DefaultUpperBound)

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func nanMap(names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	for _, name := range names {
		out[name] = math.NaN()
	}
	return out
}

package fit

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GridSearch builds a MinimizeFn that evaluates the residual on a
// geometric grid of pointsPerAxis values per parameter spanning
// [lower, upper] and keeps the best point. It needs no gradient and no
// finite starting residual, which makes it a robust, if coarse, fallback
// when the simulation fails across large parts of the box.
func GridSearch(pointsPerAxis int, lower, upper float64) MinimizeFn {
	if pointsPerAxis < 2 {
		pointsPerAxis = 2
	}
	return func(residual ResidualFn, p0 InitialGuess) map[string]float64 {
		names := ParamNames(p0)
		axis := floats.LogSpan(make([]float64, pointsPerAxis), lower, upper)

		best := math.Inf(1)
		var bestX []float64
		x := make([]float64, len(names))
		gridWalk(axis, x, 0, func(candidate []float64) {
			if r := residual(candidate); r < best {
				best = r
				bestX = append([]float64{}, candidate...)
			}
		})

		if bestX == nil || math.IsInf(best, 1) {
			return nanMap(names)
		}
		fitted := make(map[string]float64, len(names))
		for i, name := range names {
			fitted[name] = bestX[i]
		}
		return fitted
	}
}

// gridWalk enumerates the full cartesian grid, reusing x as scratch.
func gridWalk(axis, x []float64, depth int, visit func([]float64)) {
	if depth == len(x) {
		visit(x)
		return
	}
	for _, v := range axis {
		x[depth] = v
		gridWalk(axis, x, depth+1, visit)
	}
}

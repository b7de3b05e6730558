package model

// Common rate laws for building reaction networks.

// MassAction returns k * prod(substrates).
func MassAction(k string, substrates ...string) RateFn {
	return func(pars map[string]float64, concs map[string]float64) float64 {
		v := pars[k]
		for _, s := range substrates {
			v *= concs[s]
		}
		return v
	}
}

// MichaelisMenten returns vmax * s / (km + s).
func MichaelisMenten(vmax, km, substrate string) RateFn {
	return func(pars map[string]float64, concs map[string]float64) float64 {
		s := concs[substrate]
		return pars[vmax] * s / (pars[km] + s)
	}
}

// Constant returns the parameter value itself, e.g. a fixed influx.
func Constant(k string) RateFn {
	return func(pars map[string]float64, concs map[string]float64) float64 {
		return pars[k]
	}
}

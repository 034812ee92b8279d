package prs

import (
	"math"
	"math/rand/v2"
)

// DomainKind is the sampling distribution of one hyperparameter domain.
type DomainKind int

const (
	// LogRandInt draws an integer log-uniformly between Low and High.
	LogRandInt DomainKind = iota
	// RandInt draws an integer uniformly between Low and High.
	RandInt
	// Uniform draws a float uniformly between Low and High.
	Uniform
	// LogUniform draws a float log-uniformly between Low and High.
	LogUniform
	// Choice draws uniformly from Choices.
	Choice
)

// ParamDomain describes the tuning domain of one hyperparameter: its
// distribution, bounds or choices, and the default and low-cost starting
// points.
type ParamDomain struct {
	Kind        DomainKind
	Low, High   float64
	Choices     []string
	Init        interface{}
	LowCostInit interface{}
}

// Sample draws one value from the domain.
func (d ParamDomain) Sample(rng *rand.Rand) interface{} {
	switch d.Kind {
	case LogRandInt:
		return int(math.Round(sampleLogUniform(rng, d.Low, d.High)))
	case RandInt:
		return d.sampleRandInt(rng)
	case Uniform:
		return d.Low + rng.Float64()*(d.High-d.Low)
	case LogUniform:
		return sampleLogUniform(rng, d.Low, d.High)
	case Choice:
		return d.Choices[rng.IntN(len(d.Choices))]
	}
	return d.Init
}

func (d ParamDomain) sampleRandInt(rng *rand.Rand) int {
	lo, hi := int(d.Low), int(d.High)
	return lo + rng.IntN(hi-lo+1)
}

func sampleLogUniform(rng *rand.Rand, low, high float64) float64 {
	logLow, logHigh := math.Log(low), math.Log(high)
	return math.Exp(logLow + rng.Float64()*(logHigh-logLow))
}

// LGBMSearchSpace returns the tuning domains of the tree variants.
func LGBMSearchSpace() map[string]ParamDomain {
	return map[string]ParamDomain{
		"num_leaves": {
			Kind: LogRandInt, Low: 7, High: 4095,
			Init: 7, LowCostInit: 7,
		},
		"max_depth": {
			Kind: RandInt, Low: 2, High: 64,
		},
		"min_child_samples": {
			Kind: LogRandInt, Low: 250, High: 8000,
			Init: 2000,
		},
		"colsample_bytree": {
			Kind: Uniform, Low: 0.4, High: 1.0,
			Init: 1.0,
		},
		"subsample": {
			Kind: Uniform, Low: 0.4, High: 1.0,
			Init: 1.0,
		},
		"reg_alpha": {
			Kind: LogUniform, Low: 1e-12, High: 1,
			Init: 1e-9,
		},
		"reg_lambda": {
			Kind: LogUniform, Low: 1e-12, High: 1000,
			Init: 1e-10,
		},
		"early_stopping_rounds": {
			Kind: RandInt, Low: 10, High: 250,
			Init: 50, LowCostInit: 10,
		},
	}
}

// ElasticNetSearchSpace returns the tuning domains of the elastic-net
// variants.
func ElasticNetSearchSpace() map[string]ParamDomain {
	return map[string]ParamDomain{
		"alpha": {
			Kind: LogUniform, Low: 1e-10, High: 2.0,
			Init: 1e-4,
		},
		"l1_ratio": {
			Kind: Uniform, Low: 0, High: 1,
			Init: 1.0,
		},
		"max_iter": {
			Kind: LogRandInt, Low: 800, High: 10000,
			Init: 2500, LowCostInit: 800,
		},
		"tol": {
			Kind: LogUniform, Low: 1e-8, High: 5e-3,
			Init: 1e-4,
		},
		"selection": {
			Kind:    Choice,
			Choices: []string{"cyclic", "random"},
			Init:    "cyclic",
		},
	}
}

// SGDSearchSpace returns the tuning domains of the SGD variants.
func SGDSearchSpace() map[string]ParamDomain {
	return map[string]ParamDomain{
		"alpha": {
			Kind: LogUniform, Low: 1e-10, High: 2.0,
			Init: 1e-4,
		},
		"l1_ratio": {
			Kind: Uniform, Low: 0, High: 1,
			Init: 1.0,
		},
		"n_iter_no_change": {
			Kind: LogRandInt, Low: 3, High: 100,
			Init: 10, LowCostInit: 3,
		},
		"tol": {
			Kind: LogUniform, Low: 1e-7, High: 5e-3,
			Init: 1e-3,
		},
		"learning_rate": {
			Kind:    Choice,
			Choices: []string{"optimal", "invscaling", "adaptive"},
			Init:    "invscaling",
		},
		"eta0": {
			Kind: LogUniform, Low: 1e-7, High: 0.05,
			Init: 0.01,
		},
	}
}

// SearchSpace returns the tuning domains for the estimator's variant
// family.
func (e *Estimator) SearchSpace() map[string]ParamDomain {
	switch e.kind {
	case kindElasticNet:
		return ElasticNetSearchSpace()
	case kindSGD:
		return SGDSearchSpace()
	default:
		return LGBMSearchSpace()
	}
}

// InitParams returns the default starting configuration of a search
// space: every domain's Init value where one is set.
func InitParams(space map[string]ParamDomain) map[string]interface{} {
	params := make(map[string]interface{})
	for name, domain := range space {
		if domain.Init != nil {
			params[name] = domain.Init
		}
	}
	return params
}

// SampleParams draws one configuration from a search space.
func SampleParams(space map[string]ParamDomain, rng *rand.Rand) map[string]interface{} {
	params := make(map[string]interface{}, len(space))
	for name, domain := range space {
		params[name] = domain.Sample(rng)
	}
	return params
}

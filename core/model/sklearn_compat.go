package model

import (
	"gonum.org/v1/gonum/mat"
)

// SKLearnCompatible is the scikit-learn style parameter surface. Clone
// returns a fresh untrained instance with identical hyperparameters,
// which is what the partitioned ensemble uses to stamp out its members.
type SKLearnCompatible interface {
	// GetParams returns the model's hyperparameters.
	GetParams(deep bool) map[string]interface{}

	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error

	// Clone creates a new unfitted instance with the same parameters.
	Clone() SKLearnCompatible
}

// RegressorMixin marks regression models that can score themselves with R².
type RegressorMixin interface {
	Estimator

	// Score computes the coefficient of determination R².
	Score(X, y mat.Matrix) (float64, error)
}

// TransformerMixin is the interface for fitted data transformers.
type TransformerMixin interface {
	// Transform applies the learned transformation.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform learns the transformation and applies it in one step.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

package model

import "gonum.org/v1/gonum/mat"

// Fitter is the interface for trainable models.
type Fitter interface {
	// Fit trains the model on the given data.
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that can predict.
type Predictor interface {
	// Predict returns predictions for the input data.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator combines fitting and prediction, the minimal surface a
// trained model exposes.
type Estimator interface {
	Fitter
	Predictor
}

// LinearModel is the interface for linear models exposing their
// coefficients.
type LinearModel interface {
	// Weights returns the learned coefficients.
	Weights() []float64
	// Intercept returns the learned intercept.
	Intercept() float64
	// Score computes the coefficient of determination R².
	Score(X, y mat.Matrix) (float64, error)
}

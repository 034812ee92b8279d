// Package automlprs provides polygenic risk score (PRS) estimators with
// automated preprocessing: p-value threshold feature filtering, min-max
// scaling, validation splitting with early stopping, and partitioned
// ensembles, over gradient-boosted tree and linear learners.
//
// # Quick Start
//
// Fit the tree-based estimator on a feature table:
//
//	table, _ := dataset.NewEagerTable(cols, data)
//	est, err := prs.NewLGBMEstimator(prs.TaskRegression,
//	    prs.WithParams(map[string]interface{}{
//	        "num_leaves":            31,
//	        "early_stopping_rounds": 50,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	seconds, err := est.Fit(table, y, prs.WithValFrac(0.1), prs.WithSeed(42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	scores, err := est.Predict(table)
//
// # Packages
//
//   - prs: estimator variants, feature subsetting, validation splitting,
//     partitioned ensembles, fit pipeline, search spaces
//   - dataset: column-named table abstraction with eager and lazy backends
//   - preprocessing: fit-once min-max scaling
//   - gbdt: histogram-based gradient-boosted trees with early stopping
//   - linear: elastic net (coordinate descent) and SGD regression
//   - metrics: regression, classification, and ranking metrics
//   - core/model: estimator interfaces and state management
//   - core/parallel: parallel prediction helpers
//   - cmd/fit-automl-prs: CLI for fitting one configuration on a CSV
package automlprs

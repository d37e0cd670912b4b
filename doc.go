// Package scigolab is an experiment service for tabular data: upload a CSV
// or XLSX file, pick a target column and an algorithm, and get back test
// metrics, diagnostic plots and a PDF report.
//
// # Flow
//
//	upload ─► dataset.Table ─► preprocessing plan ─► seeded split
//	       ─► catalog estimator ─► metrics ─► artifacts ─► store ─► report
//
// The task kind (regression or classification) comes from the algorithm's
// catalog entry, never from the target column.
//
// # Packages
//
//   - dataset: CSV/XLSX loading into typed columns with missing cells
//   - preprocessing: median/mode imputation, standard scaling, one-hot encoding
//   - catalog: the closed set of algorithm ids and their estimator factories
//   - sklearn/...: the estimators (linear, logistic, tree, forest, boosting, SVM, KNN)
//   - metrics: regression and classification scores, ROC/AUC
//   - experiment: split, fit, predict and score in one call
//   - artifacts: residual, predicted-vs-actual, confusion-matrix and ROC PNGs
//   - report: paginated PDF assembly
//   - store: badger-backed datasets and experiment records
//   - service, server, auth, config: the HTTP API around the pipeline
//   - cmd/scigolab: serve, run locally, list algorithms, mint tokens
//
// # Quick Start
//
//	tbl, _ := dataset.LoadBytes(csvBytes, dataset.CSV)
//	res, err := experiment.Run(ctx, tbl, experiment.RunConfig{
//	    Target:        "label",
//	    Algorithm:     "random_forest_classifier",
//	    SplitFraction: 0.25,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Metrics.Values)
//
// Runs are deterministic: the same table, configuration and seed give the
// same split, model and metrics.
package scigolab

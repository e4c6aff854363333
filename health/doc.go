// Package health provides the statistical anomaly-detection engine for sensorflow.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - model.go: TrainedModel and Fit, the one-shot training pass over a baseline window
//   - score.go: Scorer and Score, the ordered stateful scan over a machine's samples
//   - classifier.go: AnomalyClassifier state machine (normal → warning → broken)
//
// # Pipeline
//
// raw samples → Standardize (preprocess.go) → Project/Reconstruct (projection.go)
// → ComputeResiduals (residual.go) → Composer (compose.go) → AnomalyClassifier.
//
// Thresholds are calibrated once from the baseline residual distribution
// (threshold.go) and stored in the TrainedModel. A TrainedModel is never
// mutated after Fit returns; retraining produces a new value that callers
// publish through ModelHolder.
//
// # Extension points
//
// The eigendecomposition is abstracted behind Decomposer. Implementations live
// in health/linalg and register themselves through NewDecomposerFunc in an
// init() function, so importing health/linalg is required before Fit.
package health

package health_test

// Blank import triggers health/linalg's init(), which registers NewDecomposerFunc.
// This allows package health's internal test files to call Fit without
// directly importing health/linalg (which would create an import cycle).
import _ "github.com/sensorflow/sensorflow/health/linalg"

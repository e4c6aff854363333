package health

import "fmt"

// Decomposition holds the principal directions of a standardized data matrix.
// Components[i] is a unit-norm direction of length N; Eigenvalues[i] is the
// variance explained by it. Entries are ordered by descending eigenvalue.
type Decomposition struct {
	Components  [][]float64
	Eigenvalues []float64
}

// Decomposer is the single linear-algebra capability the engine depends on.
type Decomposer interface {
	Decompose(data [][]float64) (Decomposition, error)
}

// NewDecomposerFunc creates a Decomposer by method name. It is set by
// health/linalg's init(); importing that package is required before Fit.
var NewDecomposerFunc func(method string) (Decomposer, error)

func newDecomposer(method string) (Decomposer, error) {
	if NewDecomposerFunc == nil {
		return nil, fmt.Errorf("no decomposer registered; import github.com/sensorflow/sensorflow/health/linalg")
	}
	return NewDecomposerFunc(method)
}

// Package linalg provides gonum-backed implementations of health.Decomposer.
// The Decomposer interface is defined in health/ (parent package).
//   - SVDDecomposer: principal components of the data matrix (stat.PC)
//   - EigenDecomposer: eigendecomposition of the covariance matrix (mat.EigenSym)
package linalg

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sensorflow/sensorflow/health"
)

// SVDDecomposer computes principal directions from the singular value
// decomposition of the centered data matrix.
type SVDDecomposer struct{}

func (SVDDecomposer) Decompose(data [][]float64) (health.Decomposition, error) {
	x, err := toDense(data)
	if err != nil {
		return health.Decomposition{}, err
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return health.Decomposition{}, fmt.Errorf("principal component analysis failed to converge")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)
	return fromColumns(&vecs, vars), nil
}

// EigenDecomposer computes principal directions from the symmetric
// eigendecomposition of the sample covariance matrix.
type EigenDecomposer struct{}

func (EigenDecomposer) Decompose(data [][]float64) (health.Decomposition, error) {
	x, err := toDense(data)
	if err != nil {
		return health.Decomposition{}, err
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	var es mat.EigenSym
	if ok := es.Factorize(&cov, true); !ok {
		return health.Decomposition{}, fmt.Errorf("eigendecomposition failed to converge")
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// EigenSym returns ascending eigenvalues; reorder to descending.
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	d := health.Decomposition{
		Components:  make([][]float64, len(order)),
		Eigenvalues: make([]float64, len(order)),
	}
	for i, col := range order {
		d.Components[i] = mat.Col(nil, col, &vecs)
		d.Eigenvalues[i] = max(values[col], 0)
	}
	return d, nil
}

// NewDecomposer creates a Decomposer by method name.
// Valid names: "svd" (default, also ""), "eigen".
func NewDecomposer(method string) (health.Decomposer, error) {
	switch method {
	case "", "svd":
		return SVDDecomposer{}, nil
	case "eigen":
		return EigenDecomposer{}, nil
	default:
		return nil, fmt.Errorf("unknown decomposition method %q; valid methods: [svd, eigen]", method)
	}
}

// ValidMethods is the set of recognized decomposition method names.
var ValidMethods = map[string]bool{"": true, "svd": true, "eigen": true}

func toDense(data [][]float64) (*mat.Dense, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("empty data matrix")
	}
	n := len(data[0])
	x := mat.NewDense(len(data), n, nil)
	for i, row := range data {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", health.ErrDimensionMismatch, i, len(row), n)
		}
		x.SetRow(i, row)
	}
	return x, nil
}

// fromColumns converts eigenvector columns (already in descending order) into rows.
func fromColumns(vecs *mat.Dense, vars []float64) health.Decomposition {
	_, c := vecs.Dims()
	k := min(c, len(vars))
	d := health.Decomposition{
		Components:  make([][]float64, k),
		Eigenvalues: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		d.Components[i] = mat.Col(nil, i, vecs)
		d.Eigenvalues[i] = max(vars[i], 0)
	}
	return d
}

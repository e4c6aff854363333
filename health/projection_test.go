package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/internal/testutil"
)

func TestProjectReconstruct_FullBasis_Identity(t *testing.T) {
	// GIVEN an orthonormal basis of R^3
	basis := [][]float64{{1, 0, 0}, {0, 0.6, 0.8}, {0, 0.8, -0.6}}
	z := []float64{2, -1, 3}

	// WHEN projecting and reconstructing
	scores, err := Project(z, basis)
	require.NoError(t, err)
	back, err := Reconstruct(scores, basis)
	require.NoError(t, err)

	// THEN the vector is recovered exactly
	testutil.AssertSliceAlmostEqual(t, "scores", []float64{2, 1.8, -2.6}, scores, 1e-12)
	testutil.AssertSliceAlmostEqual(t, "reconstruction", z, back, 1e-12)
}

func TestProjectReconstruct_PartialBasis_DropsOrthogonalPart(t *testing.T) {
	basis := [][]float64{{1, 0, 0}}
	scores, err := Project([]float64{2, 5, 7}, basis)
	require.NoError(t, err)
	back, err := Reconstruct(scores, basis)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0}, back)
}

func TestProject_DimensionMismatch(t *testing.T) {
	_, err := Project([]float64{1, 2}, [][]float64{{1, 0, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Reconstruct([]float64{1, 2}, [][]float64{{1, 0, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

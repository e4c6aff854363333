package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sensorflow/sensorflow/health"
)

// Correlation returns the Pearson correlation matrix between sensors.
// Entries involving a constant sensor are NaN.
func Correlation(t *Table) ([][]float64, error) {
	if t.Len() < 2 {
		return nil, fmt.Errorf("%w: correlation needs at least 2 rows, got %d", health.ErrInvalidInput, t.Len())
	}
	if n := MissingCount(t); n > 0 {
		return nil, fmt.Errorf("%w: %d missing readings; impute first", health.ErrInvalidInput, n)
	}
	x := mat.NewDense(t.Len(), len(t.Sensors), nil)
	for i, row := range t.Rows {
		x.SetRow(i, row)
	}
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, x, nil)

	n := len(t.Sensors)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = corr.At(i, j)
		}
	}
	return out, nil
}

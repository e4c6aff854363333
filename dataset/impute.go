package dataset

import "math"

// Impute fills missing readings forward (a sensor holds its last value) and
// then backward for leading gaps. Sensors with no readings at all are removed
// and their names returned. The table is modified in place.
func Impute(t *Table) (dropped []string) {
	keep := make([]int, 0, len(t.Sensors))
	for j := range t.Sensors {
		last := math.NaN()
		firstSeen := -1
		for i, row := range t.Rows {
			if math.IsNaN(row[j]) {
				row[j] = last
				continue
			}
			last = row[j]
			if firstSeen < 0 {
				firstSeen = i
			}
		}
		if firstSeen < 0 {
			dropped = append(dropped, t.Sensors[j])
			continue
		}
		for i := 0; i < firstSeen; i++ {
			t.Rows[i][j] = t.Rows[firstSeen][j]
		}
		keep = append(keep, j)
	}
	if len(dropped) == 0 {
		return nil
	}

	sensors := make([]string, len(keep))
	for k, j := range keep {
		sensors[k] = t.Sensors[j]
	}
	for i, row := range t.Rows {
		trimmed := make([]float64, len(keep))
		for k, j := range keep {
			trimmed[k] = row[j]
		}
		t.Rows[i] = trimmed
	}
	t.Sensors = sensors
	return dropped
}

// MissingCount returns the number of NaN cells in the table.
func MissingCount(t *Table) int {
	n := 0
	for _, row := range t.Rows {
		for _, v := range row {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

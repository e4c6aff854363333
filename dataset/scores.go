package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sensorflow/sensorflow/health"
)

// CSV column headers for scored output.
var scoreColumns = []string{
	"timestamp", "health_score", "pc1", "pc2", "residual", "subspace_distance", "state",
}

// WriteScores writes scored samples as CSV. Timestamps use RFC 3339 with
// nanoseconds so a round trip preserves ordering exactly.
func WriteScores(w io.Writer, scored []health.ScoredSample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(scoreColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, s := range scored {
		row := []string{
			s.Timestamp.Format(time.RFC3339Nano),
			strconv.FormatFloat(s.HealthScore, 'g', -1, 64),
			strconv.FormatFloat(s.Coordinate[0], 'g', -1, 64),
			strconv.FormatFloat(s.Coordinate[1], 'g', -1, 64),
			strconv.FormatFloat(s.ResidualMagnitude, 'g', -1, 64),
			strconv.FormatFloat(s.SubspaceDistance, 'g', -1, 64),
			string(s.State),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadScores parses the output of WriteScores.
func ReadScores(r io.Reader) ([]health.ScoredSample, error) {
	reader := csv.NewReader(r)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	var out []health.ScoredSample
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) < len(scoreColumns) {
			return nil, fmt.Errorf("line %d has %d columns, expected %d", line, len(row), len(scoreColumns))
		}
		s, err := parseScore(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseScore(row []string) (health.ScoredSample, error) {
	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return health.ScoredSample{}, err
	}
	var f [5]float64
	for i := range f {
		if f[i], err = strconv.ParseFloat(row[i+1], 64); err != nil {
			return health.ScoredSample{}, fmt.Errorf("column %s: %w", scoreColumns[i+1], err)
		}
	}
	state := health.AnomalyState(row[6])
	switch state {
	case health.StateNormal, health.StateWarning, health.StateBroken:
	default:
		return health.ScoredSample{}, fmt.Errorf("unknown state %q", row[6])
	}
	return health.ScoredSample{
		Timestamp:         ts,
		HealthScore:       f[0],
		Coordinate:        [2]float64{f[1], f[2]},
		ResidualMagnitude: f[3],
		SubspaceDistance:  f[4],
		State:             state,
	}, nil
}

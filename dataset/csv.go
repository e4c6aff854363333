package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TimestampLayouts are tried in order when parsing the timestamp column.
// Slash and dash dates are day-first.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"2006-01-02",
	"02/01/2006",
}

const (
	timestampLayout = "2006-01-02 15:04:05"
	labelColumn     = "machine_status"
)

// LoadCSV reads a sensor log from path. See ReadCSV.
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sensor log: %w", err)
	}
	defer func() { _ = file.Close() }()
	t, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a sensor log. Headers are normalized to lower snake case;
// "unnamed*" index columns are dropped; the timestamp comes from "timestamp"
// (or "date"); sensors are the columns whose name contains "sensor"; an
// optional machine_status column becomes Labels. Empty cells load as NaN.
// Rows with unparseable timestamps are skipped, and the result is sorted by time.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	tsCol, labelCol := -1, -1
	var sensorCols []int
	t := &Table{}
	for i, raw := range header {
		name := normalizeColumn(raw)
		switch {
		case strings.HasPrefix(name, "unnamed") || name == "":
		case name == "timestamp" || (name == "date" && tsCol < 0):
			tsCol = i
		case name == labelColumn:
			labelCol = i
		case strings.Contains(name, "sensor"):
			sensorCols = append(sensorCols, i)
			t.Sensors = append(t.Sensors, name)
		}
	}
	if tsCol < 0 {
		return nil, fmt.Errorf("no timestamp column in header %v", header)
	}
	if len(sensorCols) == 0 {
		return nil, fmt.Errorf("no sensor columns in header %v", header)
	}
	if labelCol >= 0 {
		t.Labels = []string{}
	}

	skipped := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) < len(header) {
			return nil, fmt.Errorf("line %d has %d columns, expected %d", line, len(row), len(header))
		}
		ts, ok := ParseTimestamp(row[tsCol])
		if !ok {
			skipped++
			continue
		}
		values := make([]float64, len(sensorCols))
		for j, col := range sensorCols {
			v, err := parseReading(row[col])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, t.Sensors[j], err)
			}
			values[j] = v
		}
		t.Timestamps = append(t.Timestamps, ts)
		t.Rows = append(t.Rows, values)
		if labelCol >= 0 {
			t.Labels = append(t.Labels, strings.ToUpper(strings.TrimSpace(row[labelCol])))
		}
	}
	if skipped > 0 {
		logrus.Warnf("skipped %d rows with unparseable timestamps", skipped)
	}
	sortByTime(t)
	logrus.Infof("loaded %d rows, %d sensors", t.Len(), len(t.Sensors))
	return t, nil
}

// ParseTimestamp tries each of TimestampLayouts in turn.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func normalizeColumn(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func parseReading(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func sortByTime(t *Table) {
	if sort.SliceIsSorted(t.Timestamps, func(a, b int) bool { return t.Timestamps[a].Before(t.Timestamps[b]) }) {
		return
	}
	order := make([]int, t.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return t.Timestamps[order[a]].Before(t.Timestamps[order[b]]) })
	ts := make([]time.Time, len(order))
	rows := make([][]float64, len(order))
	var labels []string
	if t.Labels != nil {
		labels = make([]string, len(order))
	}
	for i, o := range order {
		ts[i] = t.Timestamps[o]
		rows[i] = t.Rows[o]
		if labels != nil {
			labels[i] = t.Labels[o]
		}
	}
	t.Timestamps, t.Rows, t.Labels = ts, rows, labels
}

// WriteCSV writes the table in the layout ReadCSV accepts.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	header := append([]string{"timestamp"}, t.Sensors...)
	if t.Labels != nil {
		header = append(header, labelColumn)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, row := range t.Rows {
		record := make([]string, 0, len(header))
		record = append(record, t.Timestamps[i].Format(timestampLayout))
		for _, v := range row {
			if math.IsNaN(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if t.Labels != nil {
			record = append(record, t.Labels[i])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

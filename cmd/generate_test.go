package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/dataset"
)

func TestParseFault(t *testing.T) {
	tests := []struct {
		in      string
		want    dataset.Fault
		wantErr bool
	}{
		{in: "3:500:560:40", want: dataset.Fault{Sensor: 3, StartRow: 500, EndRow: 560, Offset: 40}},
		{in: "0:10:20:-2.5", want: dataset.Fault{Sensor: 0, StartRow: 10, EndRow: 20, Offset: -2.5}},
		{in: "1:5:9:flat", want: dataset.Fault{Sensor: 1, StartRow: 5, EndRow: 9, Flatline: true}},
		{in: "1:5:9", wantErr: true},
		{in: "x:5:9:1", wantErr: true},
		{in: "1:5:nine:1", wantErr: true},
		{in: "1:5:9:big", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseFault(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

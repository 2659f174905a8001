package convert_test

import (
	"testing"

	"github.com/stats-collector/pkg/convert"
	"github.com/stretchr/testify/assert"
)

func TestSizeStringToKiB(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2m", 2048},
		{"1g", 1048576},
		{"500", 500},
		{"1t", 1073741824},
		{"3k", 3},
		{"1.5m", 1536},
		{"2M", 2048},
		{"", 0},
		{"abc", 0},
		{"7x", 7},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, convert.SizeStringToKiB(tt.in))
		})
	}
}

func TestBytesConversions(t *testing.T) {
	assert.Equal(t, 4.0, convert.BytesToKiB(4096))
	assert.Equal(t, 0.5, convert.BytesToKiB(512))
	assert.Equal(t, 2.0, convert.BytesToMiB(2*1024*1024))
	assert.Equal(t, 1.23, convert.Round2(1.2345))
}

func TestCoerceOrDefault(t *testing.T) {
	assert.Equal(t, 7.5, convert.Float64OrDefault(nil, 7.5))
	assert.Equal(t, 7.5, convert.Float64OrDefault("None", 7.5))
	assert.Equal(t, 7.5, convert.Float64OrDefault("oops", 7.5))
	assert.Equal(t, 1.25, convert.Float64OrDefault("1.25", 0))
	assert.Equal(t, 3.0, convert.Float64OrDefault([]byte("3"), 0))
	assert.Equal(t, 42.0, convert.Float64OrDefault(int64(42), 0))

	assert.Equal(t, int64(0), convert.Int64OrDefault(nil, 0))
	assert.Equal(t, int64(12), convert.Int64OrDefault("12", 0))
	assert.Equal(t, int64(12), convert.Int64OrDefault("12.9", 0))
	assert.Equal(t, int64(-1), convert.Int64OrDefault("n/a", -1))

	assert.Equal(t, "None", convert.StringOrDefault(nil, "None"))
	assert.Equal(t, "InnoDB", convert.StringOrDefault([]byte("InnoDB"), "0"))
	assert.Equal(t, "5", convert.StringOrDefault(5, ""))
}

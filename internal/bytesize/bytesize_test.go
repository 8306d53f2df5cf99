package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ByteSize
	}{
		{"plain zero", "0", 0},
		{"plain bytes", "1024", 1024},
		{"bytes suffix", "1024B", 1024},

		{"kibibytes", "1Ki", KiB},
		{"mebibytes", "8Mi", 8 * MiB},
		{"mebibytes long", "8MiB", 8 * MiB},
		{"gibibytes", "1Gi", GiB},
		{"tebibytes", "1TiB", TiB},

		{"kilobytes", "1KB", KB},
		{"megabytes", "32MB", 32 * MB},
		{"gigabytes", "1G", GB},
		{"terabytes", "1T", TB},

		{"lowercase unit", "1gi", GiB},
		{"uppercase unit", "1GI", GiB},

		{"leading space", "  1Gi", GiB},
		{"trailing space", "1Gi  ", GiB},
		{"space before unit", "1 Gi", GiB},

		{"fractional mebibytes", "1.5Mi", ByteSize(1.5 * float64(MiB))},
		{"fractional gibibytes", "0.5Gi", ByteSize(0.5 * float64(GiB))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "1Xi", "-1Gi", "Gi", "abc"} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("16Mi")))
	assert.Equal(t, 16*MiB, b)

	require.NoError(t, b.UnmarshalText([]byte("1024")))
	assert.Equal(t, ByteSize(1024), b)

	assert.Error(t, b.UnmarshalText([]byte("invalid")))
}

func TestString(t *testing.T) {
	tests := []struct {
		input ByteSize
		want  string
	}{
		{512, "512B"},
		{2 * KiB, "2.00KiB"},
		{100 * MiB, "100.00MiB"},
		{GiB, "1.00GiB"},
		{2 * TiB, "2.00TiB"},
		{ByteSize(1.5 * float64(GiB)), "1.50GiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.input.String())
	}
}

func TestConversions(t *testing.T) {
	size := GiB

	assert.Equal(t, uint64(1024*1024*1024), size.Uint64())
	assert.Equal(t, int64(1024*1024*1024), size.Int64())
}

func TestConstants(t *testing.T) {
	assert.Equal(t, ByteSize(1024), KiB)
	assert.Equal(t, ByteSize(1024*1024), MiB)
	assert.Equal(t, ByteSize(1024*1024*1024), GiB)
	assert.Equal(t, ByteSize(1024*1024*1024*1024), TiB)

	assert.Equal(t, ByteSize(1000), KB)
	assert.Equal(t, ByteSize(1000*1000), MB)
	assert.Equal(t, ByteSize(1000*1000*1000), GB)
	assert.Equal(t, ByteSize(1000*1000*1000*1000), TB)
}

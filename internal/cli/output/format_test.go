package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "json", want: FormatJSON},
		{input: "JSON", want: FormatJSON},
		{input: "yaml", want: FormatYAML},
		{input: "yml", want: FormatYAML},
		{input: "  table  ", want: FormatTable},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "table", FormatTable.String())
	assert.Equal(t, "json", FormatJSON.String())
	assert.Equal(t, "yaml", FormatYAML.String())
}

func TestPrinterPassthrough(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, FormatTable, true)

	assert.Equal(t, FormatTable, printer.Format())
	assert.True(t, printer.ColorEnabled())

	printer.Println("已上传 3 张表情包")
	assert.Contains(t, buf.String(), "已上传 3 张表情包")
}

func TestPrinterStatusLines(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, FormatTable, false)

	printer.Success("uploaded")
	printer.Warning("duplicate skipped")
	printer.Error("server unreachable")

	out := buf.String()
	assert.Contains(t, out, "uploaded")
	assert.Contains(t, out, "duplicate skipped")
	assert.Contains(t, out, "server unreachable")
	// Color off: no ANSI escapes in the output.
	assert.NotContains(t, out, "\033[")
}

func TestPrinterColorCodes(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, FormatTable, true)

	printer.Success("ok")
	assert.Contains(t, buf.String(), "\033[32m")
}

func TestDefaultPrinter(t *testing.T) {
	printer := DefaultPrinter()
	assert.NotNil(t, printer)
	assert.Equal(t, FormatTable, printer.Format())
	assert.True(t, printer.ColorEnabled())
}

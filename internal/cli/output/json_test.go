package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleImage struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func TestPrintJSON(t *testing.T) {
	data := sampleImage{Name: "笑死", Tags: []string{"开心"}}

	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, data))

	out := buf.String()
	assert.Contains(t, out, `"name": "笑死"`)
	assert.Contains(t, out, `"开心"`)
}

func TestPrintJSONCompact(t *testing.T) {
	data := sampleImage{Name: "笑死", Tags: []string{"开心"}}

	var buf bytes.Buffer
	require.NoError(t, PrintJSONCompact(&buf, data))

	// No indentation in compact mode.
	assert.Contains(t, buf.String(), `"name":"笑死"`)
}

func TestPrintJSONList(t *testing.T) {
	data := []sampleImage{
		{Name: "cat"},
		{Name: "dog"},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, data))

	out := buf.String()
	assert.Contains(t, out, `"name": "cat"`)
	assert.Contains(t, out, `"name": "dog"`)
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextSuppressesDebugByDefault(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(Options{Output: &buf})

	log.Debug("hidden")
	log.Info("also hidden")
	log.Warn("shown", "path", "a.txt")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "path=a.txt")
}

func TestNew_DebugEnablesDebug(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(Options{Debug: true, Output: &buf})

	log.Debug("fetching", "url", "https://example.com")

	assert.Contains(t, buf.String(), "fetching")
}

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(Options{Format: "JSON", Output: &buf})

	log.Error("boom", "status", 500)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "boom", rec["msg"])
	assert.Equal(t, float64(500), rec["status"])
}

func TestWithRun_AddsRunID(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := WithRun(New(Options{Output: &buf}))

	log.Warn("one")
	log.Warn("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	first := lines[0][strings.Index(lines[0], "run="):]
	second := lines[1][strings.Index(lines[1], "run="):]
	assert.Equal(t, first, second)
	assert.Len(t, strings.TrimPrefix(first, "run="), 36)
}

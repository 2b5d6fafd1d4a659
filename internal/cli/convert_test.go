package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/ir"
)

const (
	widgetV1Payload         = "testdata/payloads/widget_v1.json"
	widgetNormalizedPayload = "testdata/payloads/widget_normalized.json"
)

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConvertToNormalized(t *testing.T) {
	out, stderr, err := executeCommand(t, "convert", widgetsDir, widgetV1Payload,
		"--version", "2021-01-01", "--type", "Widget")
	require.NoError(t, err)

	assert.Equal(t, `{"color":"red","size":7,"spec":{"note":"hi"}}`+"\n", out)
	assert.Empty(t, stderr)
}

func TestConvertToVersionedReportsSoftErrors(t *testing.T) {
	out, stderr, err := executeCommand(t, "convert", widgetsDir, widgetNormalizedPayload,
		"--version", "2021-01-01", "--type", "Widget", "--direction", "to_versioned")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "conversion reported 1 error(s)")

	lines := strings.SplitN(out, "\n", 2)
	assert.Equal(t, `{"colour":"blue","size":3}`, lines[0])
	assert.Contains(t, out, "✗ 1 conversion error(s)")
	assert.Contains(t, out, "C004")
	assert.Contains(t, out, "path=note")

	assert.Contains(t, stderr, "level=ERROR")
	assert.Contains(t, stderr, "code=C004")
}

func TestConvertJSON(t *testing.T) {
	out, _, err := executeCommand(t, "--format", "json", "convert", widgetsDir, widgetV1Payload,
		"--version", "2021-01-01", "--type", "Widget")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		RunID  string        `json:"run_id"`
		Data   ConvertResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, resp.Data.RunID)

	assert.Equal(t, "widgets", resp.Data.API)
	assert.Equal(t, "to_normalized", resp.Data.Direction)
	assert.Empty(t, resp.Data.Errors)
	assert.True(t, ir.Equal(ir.IRObject{
		"color": ir.IRString("red"),
		"size":  ir.IRInt(7),
		"spec":  ir.IRObject{"note": ir.IRString("hi")},
	}, resp.Data.Payload))

	actions := make([]string, len(resp.Data.Trace))
	for i, step := range resp.Data.Trace {
		actions[i] = step.Action
		assert.Equal(t, int64(i+1), step.Seq)
	}
	assert.Equal(t, []string{"rename", "skip", "move", "default"}, actions)
}

func TestConvertFromStdin(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(`{"colour": "green", "size": 2}`))
	cmd.SetArgs([]string{"convert", widgetsDir, "-", "--version", "2021-01-01", "--type", "Widget"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, `{"color":"green","size":2}`+"\n", stdout.String())
}

func TestConvertValidate(t *testing.T) {
	out, _, err := executeCommand(t, "convert", widgetsDir, writePayload(t, `{}`),
		"--version", "2021-01-01", "--type", "Widget", "--validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, `{"size":7}`)
	assert.Contains(t, out, "validation error(s)")
	assert.Contains(t, out, string(engine.ErrCodeRequired))
}

func TestConvertRecordsToDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "adl.db")

	out, _, err := executeCommand(t, "convert", widgetsDir, widgetV1Payload,
		"--version", "2021-01-01", "--type", "Widget", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded as seq 1")

	out, _, err = executeCommand(t, "convert", widgetsDir, widgetV1Payload,
		"--version", "2021-01-01", "--type", "Widget", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded as seq 2")
}

func TestConvertCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantOut string
	}{
		{
			name:    "bad direction",
			args:    []string{widgetsDir, widgetV1Payload, "--version", "2021-01-01", "--type", "Widget", "--direction", "sideways"},
			wantOut: "unknown direction",
		},
		{
			name:    "unknown version",
			args:    []string{widgetsDir, widgetV1Payload, "--version", "1999-01-01", "--type", "Widget"},
			wantOut: `unknown version "1999-01-01"`,
		},
		{
			name:    "unknown type",
			args:    []string{widgetsDir, widgetV1Payload, "--version", "2021-01-01", "--type", "Gadget"},
			wantOut: `unknown type "Gadget"`,
		},
		{
			name:    "missing payload",
			args:    []string{widgetsDir, "/nonexistent/payload.json", "--version", "2021-01-01", "--type", "Widget"},
			wantOut: "reading payload",
		},
		{
			name:    "float payload",
			args:    []string{widgetsDir, writePayload(t, `{"size": 1.5}`), "--version", "2021-01-01", "--type", "Widget"},
			wantOut: "floats are not allowed",
		},
		{
			name:    "array payload",
			args:    []string{widgetsDir, writePayload(t, `[1]`), "--version", "2021-01-01", "--type", "Widget"},
			wantOut: "expected JSON object",
		},
		{
			name:    "unknown api",
			args:    []string{widgetsDir, widgetV1Payload, "--version", "2021-01-01", "--type", "Widget", "--api", "gadgets"},
			wantOut: `api "gadgets" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := executeCommand(t, append([]string{"convert"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [")
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestConvertRequiresAPIWhenSeveralLoaded(t *testing.T) {
	dir := writeSchema(t, `
api: widgets: normalized: Widget: {color: string}
api: gadgets: normalized: Gadget: {name: string}
`)

	out, _, err := executeCommand(t, "convert", dir, widgetV1Payload, "--version", "v1", "--type", "Widget")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeBadInput)
	assert.Contains(t, out, "select one with --api")
}

func TestConvertRequiredFlags(t *testing.T) {
	_, _, err := executeCommand(t, "convert", widgetsDir, widgetV1Payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestConvertVerboseTrace(t *testing.T) {
	_, stderr, err := executeCommand(t, "-v", "convert", widgetsDir, widgetV1Payload,
		"--version", "2021-01-01", "--type", "Widget")
	require.NoError(t, err)

	assert.Contains(t, stderr, "level=DEBUG")
	assert.Contains(t, stderr, "Trace:")
	assert.Contains(t, stderr, "[1] rename color colour")
}

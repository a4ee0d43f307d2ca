package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withStore points the CLI at a fresh database through the environment.
func withStore(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("FOLIO_STORE_PATH", filepath.Join(t.TempDir(), "folio.db"))
	t.Setenv("FOLIO_LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "folio %v", args)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCLI_ImportLocalizeRollback(t *testing.T) {
	withStore(t)

	imported := runJSON(t, "import", "testdata/seed.json")
	assert.Empty(t, imported["errors"])

	status := runJSON(t, "status")
	assert.Equal(t, 2.0, status["pending"], "shop and go still hold plain strings")

	dry := runJSON(t, "localize", "--dry-run")
	assert.Equal(t, 1.0, dry["projects"])
	assert.Equal(t, true, dry["dryRun"])

	res := runJSON(t, "localize")
	assert.Equal(t, 1.0, res["projects"])
	assert.Equal(t, 1.0, res["technologies"])
	assert.Equal(t, []any{}, res["errors"])

	status = runJSON(t, "status")
	assert.Equal(t, 0.0, status["pending"])

	res = runJSON(t, "rollback", "--collection", "technologies")
	assert.Equal(t, 1.0, res["technologies"])
	assert.NotContains(t, res, "projects")

	status = runJSON(t, "status")
	assert.Equal(t, 1.0, status["pending"])
}

func TestCLI_UnknownCollection(t *testing.T) {
	withStore(t)

	_, err := run(t, "localize", "--collection", "invoices")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration failed")
	assert.Contains(t, err.Error(), "invoices")
}

func TestCLI_Test(t *testing.T) {
	// No store or config needed.
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	got := runJSON(t, "test", `{"en":"Hello","fr":""}`, "--lang", "fr")
	assert.Equal(t, "Hello", got["output"])
	assert.Equal(t, false, got["hasContent"])
	assert.Equal(t, []any{"en"}, got["availableLanguages"])

	got = runJSON(t, "test", "plain text")
	assert.Equal(t, "plain text", got["output"])
	assert.Equal(t, true, got["hasContent"])

	_, err := run(t, "test", "x", "--lang", "de")
	assert.Error(t, err)
}

func TestCLI_BadConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := run(t, "status")
	assert.Error(t, err)
}

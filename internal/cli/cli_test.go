package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/weatherinsight/internal/buildinfo"
)

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Execute(context.Background(), []string{"version"}, &out))
	assert.Equal(t, buildinfo.String()+"\n", out.String())
}

func TestCheckContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KEY=1"), 0o600))

	var out bytes.Buffer
	err := Execute(context.Background(), []string{"check-context", dir}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "secret file in build context: .env")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dockerignore"), []byte(".env\n"), 0o644))
	out.Reset()
	require.NoError(t, Execute(context.Background(), []string{"check-context", dir}, &out))
	assert.Contains(t, out.String(), "no secret files")
}

func TestCheckContext_MissingCopySource(t *testing.T) {
	dir := t.TempDir()
	recipe := "FROM golang:1.23\nCOPY go.mod go.sum ./\nRUN go mod download\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(recipe), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/app\n"), 0o644))

	var out bytes.Buffer
	err := Execute(context.Background(), []string{"check-context", dir}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Dockerfile source missing from build context: go.sum")

	recipe = "FROM golang:1.23\nCOPY go.mod go.sum* ./\nRUN go mod download\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(recipe), 0o644))
	out.Reset()
	require.NoError(t, Execute(context.Background(), []string{"check-context", dir}, &out))
}

func TestServe_RequiresAPIKeys(t *testing.T) {
	for _, key := range []string{"WEATHERAPI_API_KEY", "GOOGLE_GEMINI_API_KEY", "CONFIG_FILE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), "missing.env")
	err := Execute(context.Background(), []string{"--env-file", envFile, "serve", "--port", "18080"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHERAPI_API_KEY")
}

func TestUnknownCommand(t *testing.T) {
	err := Execute(context.Background(), []string{"bogus", "extra", "args"}, &bytes.Buffer{})
	assert.Error(t, err)
}

package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StatePath = filepath.Join(t.TempDir(), "state", "state.db")
	return cfg
}

func TestSetup_MemoryBackendRunsREPL(t *testing.T) {
	captureOutput(t)
	cfg := testConfig(t)
	cfg.Backend = config.BackendMemory

	var out bytes.Buffer
	app, cleanup, err := Setup(context.Background(), cfg, logging.NewNop(), strings.NewReader("help\nexit\n"), &out)
	require.NoError(t, err)
	defer cleanup()

	app.Run(context.Background())

	assert.Contains(t, out.String(), "Welcome to notekeeper")
	assert.FileExists(t, cfg.StatePath)
}

func TestSetup_RESTBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.SupabaseURL = "https://abc.supabase.co"
	cfg.AnonKey = "anon"

	app, cleanup, err := Setup(context.Background(), cfg, logging.NewNop(), strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, app)
}

func TestSetup_InvalidBackendURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.SupabaseURL = "ftp://abc"
	cfg.AnonKey = "anon"

	_, _, err := Setup(context.Background(), cfg, logging.NewNop(), strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
}

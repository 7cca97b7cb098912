package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendREST, c.Backend)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "state.db", filepath.Base(c.StatePath))
	assert.Equal(t, 5*time.Second, c.ReadyTimeout)
	assert.Equal(t, 10*time.Second, c.FetchTimeout)
	assert.Equal(t, 15*time.Second, c.SaveTimeout)
	assert.Equal(t, 10*time.Second, c.DeleteTimeout)
	assert.Equal(t, uint(3), c.MaxRetries)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"supabase_url":      "https://json.supabase.co",
		"supabase_anon_key": "json-key",
		"log_level":         "warn",
	})
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("VITE_SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "env-key")
	t.Setenv("LOG_LEVEL", "error")

	os.Args = []string{"testbin", "-c", path, "-l", "debug"}
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "https://json.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "env-key", cfg.AnonKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "ok", cfg: Config{Backend: BackendREST, SupabaseURL: "https://abc.supabase.co", AnonKey: "k"}},
		{name: "memory needs nothing", cfg: Config{Backend: BackendMemory}},
		{name: "unknown backend", cfg: Config{Backend: "grpc"}, wantErr: ErrUnknownBackend},
		{name: "missing url", cfg: Config{Backend: BackendREST, AnonKey: "k"}, wantErr: ErrMissingURL},
		{name: "missing key", cfg: Config{Backend: BackendREST, SupabaseURL: "https://abc.supabase.co", AnonKey: "  "}, wantErr: ErrMissingKey},
		{name: "placeholder url", cfg: Config{Backend: BackendREST, SupabaseURL: "your_supabase_project_url", AnonKey: "k"}, wantErr: ErrPlaceholderURL},
		{name: "placeholder project url", cfg: Config{Backend: BackendREST, SupabaseURL: "https://your-project-id.supabase.co", AnonKey: "k"}, wantErr: ErrPlaceholderURL},
		{name: "placeholder key", cfg: Config{Backend: BackendREST, SupabaseURL: "https://abc.supabase.co", AnonKey: "your_supabase_anon_key"}, wantErr: ErrPlaceholderKey},
		{name: "placeholder actual key", cfg: Config{Backend: BackendREST, SupabaseURL: "https://abc.supabase.co", AnonKey: "your_actual_anon_key"}, wantErr: ErrPlaceholderKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_BadURL(t *testing.T) {
	c := Config{Backend: BackendREST, SupabaseURL: "not a url", AnonKey: "k"}
	assert.ErrorContains(t, c.Validate(), "invalid backend URL")
}

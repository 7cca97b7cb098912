package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/filex"
)

const (
	BackendREST   = "rest"
	BackendMemory = "memory"
)

var (
	ErrMissingURL     = errors.New("backend URL is not set")
	ErrMissingKey     = errors.New("backend anon key is not set")
	ErrPlaceholderURL = errors.New("backend URL is still a placeholder")
	ErrPlaceholderKey = errors.New("backend anon key is still a placeholder")
	ErrUnknownBackend = errors.New("unknown backend kind")
)

// Values shipped in sample .env files.
var (
	placeholderURLs = []string{"your_supabase_project_url", "https://your-project-id.supabase.co"}
	placeholderKeys = []string{"your_supabase_anon_key", "your_actual_anon_key"}
)

// Backup describes the optional S3 bucket used by the export command.
type Backup struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Config holds runtime settings for the notekeeper CLI.
type Config struct {
	SupabaseURL string
	AnonKey     string
	// Backend is BackendREST or BackendMemory.
	Backend   string
	LogLevel  string
	StatePath string

	// DatabaseURL, when set, serves tables straight from Postgres instead
	// of the REST API. Meant for self-hosted and development setups.
	DatabaseURL string

	ReadyTimeout  time.Duration
	PingTimeout   time.Duration
	FetchTimeout  time.Duration
	SaveTimeout   time.Duration
	DeleteTimeout time.Duration
	HTTPTimeout   time.Duration
	MaxRetries    uint

	Backup Backup
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendREST
	c.LogLevel = "info"
	c.StatePath = filex.DefaultStatePath("state.db")
	c.ReadyTimeout = 5 * time.Second
	c.PingTimeout = 5 * time.Second
	c.FetchTimeout = 10 * time.Second
	c.SaveTimeout = 15 * time.Second
	c.DeleteTimeout = 10 * time.Second
	c.HTTPTimeout = 30 * time.Second
	c.MaxRetries = 3
}

// Validate reports whether c can reach a backend. The memory backend needs
// no URL or key.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendREST:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	u := strings.TrimSpace(c.SupabaseURL)
	k := strings.TrimSpace(c.AnonKey)
	if u == "" {
		return ErrMissingURL
	}
	if k == "" {
		return ErrMissingKey
	}
	for _, p := range placeholderURLs {
		if u == p {
			return ErrPlaceholderURL
		}
	}
	for _, p := range placeholderKeys {
		if k == p {
			return ErrPlaceholderKey
		}
	}
	if _, err := url.ParseRequestURI(u); err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

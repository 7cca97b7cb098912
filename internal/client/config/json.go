package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// leave the corresponding Config field untouched.
type JsonConfig struct {
	SupabaseURL string `json:"supabase_url"`
	AnonKey     string `json:"supabase_anon_key"`
	Backend     string `json:"backend"`
	LogLevel    string `json:"log_level"`
	StatePath   string `json:"state_path"`
	DatabaseURL string `json:"database_url"`

	ReadyTimeout  timex.Duration `json:"ready_timeout"`
	PingTimeout   timex.Duration `json:"ping_timeout"`
	FetchTimeout  timex.Duration `json:"fetch_timeout"`
	SaveTimeout   timex.Duration `json:"save_timeout"`
	DeleteTimeout timex.Duration `json:"delete_timeout"`
	HTTPTimeout   timex.Duration `json:"http_timeout"`
	MaxRetries    *uint          `json:"max_retries"`

	Backup *struct {
		Bucket          string `json:"bucket"`
		Region          string `json:"region"`
		Endpoint        string `json:"endpoint"`
		AccessKeyID     string `json:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key"`
		UsePathStyle    bool   `json:"use_path_style"`
	} `json:"backup"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.SupabaseURL, jc.SupabaseURL)
	setString(&cfg.AnonKey, jc.AnonKey)
	setString(&cfg.Backend, jc.Backend)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.StatePath, jc.StatePath)
	setString(&cfg.DatabaseURL, jc.DatabaseURL)

	setDuration(&cfg.ReadyTimeout, jc.ReadyTimeout)
	setDuration(&cfg.PingTimeout, jc.PingTimeout)
	setDuration(&cfg.FetchTimeout, jc.FetchTimeout)
	setDuration(&cfg.SaveTimeout, jc.SaveTimeout)
	setDuration(&cfg.DeleteTimeout, jc.DeleteTimeout)
	setDuration(&cfg.HTTPTimeout, jc.HTTPTimeout)
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}

	if b := jc.Backup; b != nil {
		setString(&cfg.Backup.Bucket, b.Bucket)
		setString(&cfg.Backup.Region, b.Region)
		setString(&cfg.Backup.Endpoint, b.Endpoint)
		setString(&cfg.Backup.AccessKeyID, b.AccessKeyID)
		setString(&cfg.Backup.SecretAccessKey, b.SecretAccessKey)
		cfg.Backup.UsePathStyle = cfg.Backup.UsePathStyle || b.UsePathStyle
	}
}

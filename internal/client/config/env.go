package config

import (
	"os"
	"strconv"
)

// lookup returns the first non-empty variable among names.
func lookup(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// parseEnv overlays Config with environment variables. Unset variables leave
// fields untouched.
func parseEnv(cfg *Config) {
	setString(&cfg.SupabaseURL, lookup("SUPABASE_URL", "VITE_SUPABASE_URL"))
	setString(&cfg.AnonKey, lookup("SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY"))
	setString(&cfg.Backend, lookup("NOTEKEEPER_BACKEND"))
	setString(&cfg.LogLevel, lookup("LOG_LEVEL"))
	setString(&cfg.StatePath, lookup("NOTEKEEPER_STATE"))
	setString(&cfg.DatabaseURL, lookup("DATABASE_URL"))

	setString(&cfg.Backup.Bucket, lookup("NOTEKEEPER_BACKUP_BUCKET"))
	setString(&cfg.Backup.Endpoint, lookup("NOTEKEEPER_BACKUP_ENDPOINT"))
	setString(&cfg.Backup.Region, lookup("AWS_REGION", "AWS_DEFAULT_REGION"))
	setString(&cfg.Backup.AccessKeyID, lookup("AWS_ACCESS_KEY_ID"))
	setString(&cfg.Backup.SecretAccessKey, lookup("AWS_SECRET_ACCESS_KEY"))
	if v, err := strconv.ParseBool(lookup("NOTEKEEPER_BACKUP_PATH_STYLE")); err == nil {
		cfg.Backup.UsePathStyle = v
	}
}

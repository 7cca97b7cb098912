// Package config loads runtime configuration for the notekeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-u string   backend project URL
//	-k string   backend anon key
//	-b string   backend kind: "rest" (default) or "memory"
//	-l string   log level: debug, info, warn, error
//	-s string   path of the local state database
//	-d string   Postgres DSN; tables are then read and written directly
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "5s" or
// integer nanoseconds:
//
//	{
//	  "supabase_url": "https://abc.supabase.co",
//	  "supabase_anon_key": "eyJ...",
//	  "ready_timeout": "5s",
//	  "fetch_timeout": "10s",
//	  "backup": {"bucket": "notes", "region": "eu-central-1"}
//	}
//
// # Environment
//
//	SUPABASE_URL, SUPABASE_ANON_KEY   (VITE_ prefixed forms are accepted too)
//	NOTEKEEPER_BACKEND, NOTEKEEPER_STATE, LOG_LEVEL, DATABASE_URL
//	NOTEKEEPER_BACKUP_BUCKET, NOTEKEEPER_BACKUP_ENDPOINT, AWS_REGION,
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
package config

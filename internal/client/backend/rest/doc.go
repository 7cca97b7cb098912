// Package rest implements backend.Auth and backend.Tables over the hosted
// backend's HTTP API: GoTrue under /auth/v1 and PostgREST under /rest/v1.
//
// The client keeps the current session in memory, persists it through an
// optional SessionStore, refreshes expired access tokens on demand and
// notifies auth listeners synchronously on the goroutine that caused the
// change. Idempotent reads are retried with exponential backoff while the
// backend reports itself unavailable.
package rest

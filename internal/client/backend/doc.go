// Package backend is the contract between the client services and the hosted
// backend-as-a-service: managed authentication (Auth) and managed relational
// tables (Tables).
//
// # Implementations
//
//   - rest:     GoTrue + PostgREST over HTTP, the production transport.
//   - postgres: Tables only, talking to the database directly with pgx.
//   - memory:   an in-process fake of both, used by tests and demo mode.
//
// # Error Handling
//
// Implementations translate transport failures into the sentinel errors of
// this package so callers can match them with errors.Is: ErrNotFound,
// ErrUnauthorized, ErrUnavailable. Structured failures reported by the
// service are returned as *APIError, which also matches those sentinels.
package backend

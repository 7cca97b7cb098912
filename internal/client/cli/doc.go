// Package cli provides the interactive notekeeper command-line client.
//
// It drives the auth and entries services from a simple REPL: sign up, log
// in, list, add and delete text entries, inspect and revoke login sessions and
// export a backup. Startup waits until the auth service is ready (or its ready
// timeout elapses) before the first prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

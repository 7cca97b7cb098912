// Package common contains small helpers and constants shared by the client
// packages and the command-line tools.
package common

// ClientInfo is sent with every backend request in the X-Client-Info header so
// the hosted service can tell this client apart from the web frontend.
const ClientInfo = "notekeeper-cli"

// DefaultUserAgent identifies the terminal client in login telemetry records.
const DefaultUserAgent = "notekeeper-cli/1.0 (terminal; desktop)"

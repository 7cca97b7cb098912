package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrInvalidQuery = errors.New("invalid query")
)

// CodeNoRows is the PostgREST error code for a single-row request that
// matched zero or several rows.
const CodeNoRows = "PGRST116"

// APIError is a structured failure reported by the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

// Is maps the error onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNoRows
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// NoRows builds the error returned for an unmatched single-row query.
func NoRows(n int) error {
	return &APIError{
		Status:  http.StatusNotAcceptable,
		Code:    CodeNoRows,
		Message: "JSON object requested, multiple (or no) rows returned",
		Details: fmt.Sprintf("The result contains %d rows", n),
	}
}

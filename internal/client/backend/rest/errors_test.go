package rest

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   backend.APIError
	}{
		{
			name:   "postgrest",
			status: http.StatusConflict,
			body:   `{"code":"23505","message":"duplicate key","details":"Key (id)=(1) already exists.","hint":null}`,
			want:   backend.APIError{Status: 409, Code: "23505", Message: "duplicate key", Details: "Key (id)=(1) already exists."},
		},
		{
			name:   "gotrue numeric code",
			status: http.StatusUnprocessableEntity,
			body:   `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`,
			want:   backend.APIError{Status: 422, Code: "user_already_exists", Message: "User already registered"},
		},
		{
			name:   "oauth style",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant","error_description":"Invalid login credentials"}`,
			want:   backend.APIError{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"},
		},
		{
			name:   "numeric code only",
			status: http.StatusTooManyRequests,
			body:   `{"code":429,"msg":"rate limited"}`,
			want:   backend.APIError{Status: 429, Code: "429", Message: "rate limited"},
		},
		{
			name:   "plain text",
			status: http.StatusBadGateway,
			body:   "upstream down\n",
			want:   backend.APIError{Status: 502, Message: "upstream down"},
		},
		{
			name:   "empty",
			status: http.StatusServiceUnavailable,
			body:   "",
			want:   backend.APIError{Status: 503, Message: "Service Unavailable"},
		},
		{
			name:   "object details",
			status: http.StatusBadRequest,
			body:   `{"message":"bad","details":{"column":"x"}}`,
			want:   backend.APIError{Status: 400, Message: "bad", Details: `{"column":"x"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.status, []byte(tt.body))
			apiErr, ok := err.(*backend.APIError)
			if assert.True(t, ok) {
				assert.Equal(t, tt.want, *apiErr)
			}
		})
	}
}

func TestFilterValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, "is.null", filterValue(nil))
	assert.Equal(t, "eq.abc", filterValue("abc"))
	assert.Equal(t, "eq.false", filterValue(false))
	assert.Equal(t, "eq.42", filterValue(42))
	assert.Equal(t, "eq.2024-05-01T09:00:00Z", filterValue(ts))
}

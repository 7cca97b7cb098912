package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

// errorBody covers both the PostgREST and the GoTrue error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Details          json.RawMessage `json:"details"`
	Hint             string          `json:"hint"`
}

func decodeError(status int, body []byte) error {
	apiErr := &backend.APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	apiErr.Code = errorCode(eb)
	apiErr.Message = firstNonEmpty(eb.Message, eb.Msg, eb.ErrorDescription, eb.Error, http.StatusText(status))
	apiErr.Details = rawText(eb.Details)
	apiErr.Hint = eb.Hint
	return apiErr
}

// errorCode prefers a string "code" (PostgREST), then GoTrue's error_code,
// then the OAuth-style "error".
func errorCode(eb errorBody) string {
	var s string
	if len(eb.Code) > 0 && json.Unmarshal(eb.Code, &s) == nil && s != "" {
		return s
	}
	if eb.ErrorCode != "" {
		return eb.ErrorCode
	}
	if eb.Error != "" && eb.ErrorDescription != "" {
		return eb.Error
	}
	var n int
	if len(eb.Code) > 0 && json.Unmarshal(eb.Code, &n) == nil && n != 0 {
		return strconv.Itoa(n)
	}
	return ""
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

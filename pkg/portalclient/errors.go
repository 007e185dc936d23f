package portalclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSessionExpired is returned when the session could not be refreshed and
// the caller must authenticate again.
var ErrSessionExpired = errors.New("portalclient: session expired, please log in again")

// APIError is a non-2xx response from the portal, with the most relevant
// message the server provided.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the portal.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsConflict reports whether err is a 409, e.g. a slot already booked.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 409
}

// extractErrorMessage digs the most useful message out of an error payload.
// Responses are not uniform across endpoints, so fields are tried in a fixed
// priority order: error, detail, date[0], time[0], non_field_errors[0],
// then message.
func extractErrorMessage(body []byte, fallback string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	if s, ok := stringField(payload, "error"); ok {
		return s
	}
	if s, ok := stringField(payload, "detail"); ok {
		return s
	}
	for _, key := range []string{"date", "time", "non_field_errors"} {
		if s, ok := firstListItem(payload, key); ok {
			return s
		}
	}
	if s, ok := stringField(payload, "message"); ok {
		return s
	}
	return fallback
}

func stringField(payload map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func firstListItem(payload map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 || list[0] == "" {
		return "", false
	}
	return list[0], true
}

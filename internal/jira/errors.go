package jira

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredentials is returned before any network call when the base
	// URL, email or API token is not configured.
	ErrMissingCredentials = errors.New("JIRA_URL, JIRA_EMAIL or JIRA_TOKEN is not set")

	// ErrEmptyIssueKey is returned for per-issue calls without a key.
	ErrEmptyIssueKey = errors.New("jira: empty issue key")
)

// APIError is returned for any non-200 response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	RetryAfter string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("jira %s: authentication failed (%d), check JIRA_EMAIL and JIRA_TOKEN", e.Endpoint, e.StatusCode)
	case http.StatusTooManyRequests:
		if e.RetryAfter != "" {
			return fmt.Sprintf("jira %s: rate limit exceeded (429), retry after %s seconds", e.Endpoint, e.RetryAfter)
		}
		return fmt.Sprintf("jira %s: rate limit exceeded (429)", e.Endpoint)
	default:
		return fmt.Sprintf("jira %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

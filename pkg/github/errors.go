package github

import (
	"errors"
	"fmt"
)

var (
	// ErrNoToken means no credential could be resolved from the environment,
	// the config file, or a token file. Fetching is blocked until one exists.
	ErrNoToken = errors.New("no GitHub token available (set GITHUB_TOKEN, github.token, or github.token_file)")

	ErrInvalidRepo   = errors.New("invalid repository, expected owner/name")
	ErrInvalidMetric = errors.New("invalid metric, expected clones, views, referrers or paths")

	// ErrCheckInProgress is returned when a connectivity check is requested
	// while another one is still running.
	ErrCheckInProgress = errors.New("a connectivity check is already running")

	ErrCheckTimeout = errors.New("connectivity check timed out")
)

// ErrorKind classifies API call failures so callers can isolate and record
// them per metric without string matching.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindNotFound       ErrorKind = "not_found"
	KindAPI            ErrorKind = "api"
	KindParse          ErrorKind = "parse"
)

// APIError is a classified failure from a single API call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

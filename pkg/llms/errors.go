package llms

import "fmt"

// BackendError reports a non-retryable failure from the model API: a bad
// request, an auth failure, or a malformed response.
type BackendError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s backend error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s backend error: %s", e.Provider, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

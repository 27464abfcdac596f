package nodeapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is a transport-level failure: DNS, refused connection, reset.
	ErrNetwork = errors.New("network error")
	// ErrAuth is returned (via ServerError.Is) for 401 and 403 responses.
	ErrAuth = errors.New("authentication failed")
	// ErrNotFound is returned (via ServerError.Is) for 404 responses.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidResponse means a 2xx body did not have the expected shape.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrTimeout means the request deadline elapsed before a response.
	ErrTimeout = errors.New("timeout")
)

// ServerError is any non-2xx response from a node agent.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.Status, e.Message)
}

// Is lets callers match auth and not-found responses with errors.Is while
// still receiving the status and body through errors.As.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations
var (
	// ErrNotFound indicates the requested record does not exist remotely
	ErrNotFound = errors.New("record not found")

	// ErrServerOffline indicates the catalog service is unreachable
	ErrServerOffline = errors.New("catalog service is unreachable")

	// ErrUnauthorized indicates the service rejected the request credentials
	ErrUnauthorized = errors.New("request was not authorized")

	// ErrNotEditing indicates a form command was issued while no draft is open
	ErrNotEditing = errors.New("no book is being edited")

	// ErrDeleteDeclined indicates the user did not confirm a delete
	ErrDeleteDeclined = errors.New("delete was not confirmed")
)

// RemoteError is a failed call to the catalog service.
// Message carries the service's human-readable explanation, if any.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// RemoteMessage extracts the service-provided message from err, or returns
// fallback when there is none.
func RemoteMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

package messaging

import (
	"errors"
	"fmt"
)

// CodeUnknownMessage is the surface's error code for a message that no
// longer exists. Editing it can never succeed.
const CodeUnknownMessage = 10008

// APIError is a non-2xx response from the messaging surface.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("messaging: status %d code %d: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("messaging: status %d: %s", e.Status, e.Message)
}

// RetryableError feeds the retry classifier: rate limits and server
// errors are transient, client-side statuses and dead resources are not.
func (e *APIError) RetryableError() bool {
	if e.Code == CodeUnknownMessage {
		return false
	}
	switch {
	case e.Status == 429:
		return true
	case e.Status >= 500:
		return true
	}
	return false
}

// IsPermanent reports whether err is a messaging failure that no retry
// can fix (deleted message, revoked permission, bad auth). The tracker
// deregisters a task on a permanent edit failure.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.RetryableError()
}

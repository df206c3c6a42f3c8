package supplier

import "fmt"

// Error taxonomy for the supplier API. The orchestrator keys its retry and
// abort decisions off these types, so classification happens here and
// nowhere else. Credentials must never end up in any of these messages.

// AuthError means authentication failed for good: bad credentials, an
// unreachable auth endpoint after retries, or a garbled token response.
// Fatal to a sync run.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("supplier auth: %s: %v", e.Reason, e.Err)
	}
	return "supplier auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError covers timeouts, connection failures and 5xx responses.
// The caller may retry the same request.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("supplier %s (transient): %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError covers malformed responses and non-retryable HTTP statuses.
// Retrying will not help; the run aborts.
type FatalError struct {
	Op     string
	Status int
	Err    error
}

func (e *FatalError) Error() string {
	msg := "supplier " + e.Op
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: http %d", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FatalError) Unwrap() error { return e.Err }

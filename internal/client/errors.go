package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteAuth is returned when an authorization failure survives
	// the single refresh-and-retry cycle.
	ErrRemoteAuth = errors.New("erp authorization failed after token refresh")

	// ErrNotFound maps a remote 404. Webhook handling treats it as a
	// deletion signal.
	ErrNotFound = errors.New("erp resource not found")

	// ErrUnknownAccount is returned when a refresh is requested for an
	// account that has no stored credentials.
	ErrUnknownAccount = errors.New("erp account has no stored credentials")

	// ErrRefreshFailed is returned when the token endpoint rejects the
	// refresh-token grant.
	ErrRefreshFailed = errors.New("erp token refresh rejected")
)

// RemoteValidationError carries the structured rejection the ERP returns
// for bad input. It is surfaced to the caller for correction and never
// retried.
type RemoteValidationError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string]string
}

func (e *RemoteValidationError) Error() string {
	return fmt.Sprintf("erp rejected request (%d): %s", e.StatusCode, e.Message)
}

// RemoteTransientError covers network failures and remote 5xx responses.
// Callers decide whether to retry; nothing in the client does.
type RemoteTransientError struct {
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *RemoteTransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("erp transient failure: %v", e.Err)
	}
	return fmt.Sprintf("erp transient failure: status %d", e.StatusCode)
}

func (e *RemoteTransientError) Unwrap() error { return e.Err }

package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Provider errors
	ErrCodeNotConnected  ErrorCode = "NOT_CONNECTED"
	ErrCodeRemoteFailure ErrorCode = "REMOTE_FAILURE"

	// Store errors
	ErrCodeQueueNotFound  ErrorCode = "QUEUE_NOT_FOUND"
	ErrCodeMemberNotFound ErrorCode = "MEMBER_NOT_FOUND"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Daemon errors
	ErrCodeDaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// QueuedError represents a structured error with context
type QueuedError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *QueuedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *QueuedError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *QueuedError) WithDetail(key string, value interface{}) *QueuedError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *QueuedError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new QueuedError
func New(code ErrorCode, message string) *QueuedError {
	return &QueuedError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a QueuedError
func Wrap(err error, code ErrorCode, message string) *QueuedError {
	return &QueuedError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific QueuedError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if qe := find(err); qe != nil {
		return qe.Code
	}
	return ""
}

// Message returns the human-readable part of err. For a QueuedError that is
// its Message without the code prefix; any other error is returned verbatim.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if qe, ok := err.(*QueuedError); ok {
		return qe.Message
	}
	return err.Error()
}

// Find returns the first QueuedError in err's chain, or nil.
func Find(err error) *QueuedError {
	return find(err)
}

func find(err error) *QueuedError {
	for err != nil {
		if qe, ok := err.(*QueuedError); ok {
			return qe
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}

package errors

import "fmt"

// NotConnectedMessage is the message carried by NotConnected errors.
const NotConnectedMessage = "AMI client not connected"

// NotConnected creates the error returned when no provider connection is available
func NotConnected() *QueuedError {
	return New(ErrCodeNotConnected, NotConnectedMessage)
}

// QueueNotFound creates a queue not found error
func QueueNotFound(name string) *QueuedError {
	return New(ErrCodeQueueNotFound, fmt.Sprintf("queue '%s' not found", name)).
		WithDetail("queue", name)
}

// MemberNotFound creates a member not found error
func MemberNotFound(queue, iface string) *QueuedError {
	return New(ErrCodeMemberNotFound, fmt.Sprintf("member '%s' not found in queue '%s'", iface, queue)).
		WithDetail("queue", queue).
		WithDetail("interface", iface)
}

// InvalidInput creates an invalid input error
func InvalidInput(reason string) *QueuedError {
	return New(ErrCodeInvalidInput, reason)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *QueuedError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *QueuedError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// DaemonNotRunning creates the error returned by clients when the daemon socket is unreachable
func DaemonNotRunning(socket string) *QueuedError {
	return New(ErrCodeDaemonNotRunning, "queued daemon is not running; start it with 'queued start'").
		WithDetail("socket", socket)
}

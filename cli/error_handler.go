package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/queued/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a hint for err based on its code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(out, "queued daemon is not running. Start it with 'queued start'.\n")

	case errors.ErrCodeNotConnected:
		fmt.Fprintf(out, "The daemon is not connected to the telephony gateway.\n")
		fmt.Fprintf(out, "Check the provider url in queued.yml and 'queued logs'.\n")

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "Configuration not found. Create a queued.yml or pass --config.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(out, "Invalid configuration: %s\n", errors.Message(err))

	case errors.ErrCodeInvalidInput:
		fmt.Fprintf(out, "Invalid input: %s\n", errors.Message(err))

	case errors.ErrCodeQueueNotFound, errors.ErrCodeMemberNotFound:
		fmt.Fprintf(out, "%s\n", errors.Message(err))
		fmt.Fprintf(out, "Run 'queued queues' to see known queues.\n")

	case errors.ErrCodeRemoteFailure:
		fmt.Fprintf(out, "The gateway rejected the request: %s\n", errors.Message(err))

	default:
		fmt.Fprintf(out, "Error: %v\n", err)
	}

	if h.Verbose {
		if qe := errors.Find(err); qe != nil {
			fmt.Fprintf(out, "\nError details:\n%s\n", qe.ToJSON())
		}
	}
	return err
}

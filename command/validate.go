package command

import (
	"fmt"
	"strings"

	"github.com/grovetools/queued/errors"
)

const (
	// MaxPenalty is the largest penalty accepted from clients.
	MaxPenalty = 1000

	// maxFieldLength bounds queue, interface and reason strings.
	maxFieldLength = 128
)

// validators maps argument kinds to their checks.
var validators = map[string]func(string) error{
	"queue":     validateQueueName,
	"interface": validateInterface,
	"reason":    validateReason,
}

// Validate runs the validator registered for argType.
func Validate(argType, value string) error {
	validator, exists := validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}
	return validator(value)
}

// validateQueueName ensures queue names are non-empty single-line values.
func validateQueueName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.InvalidInput("queue name cannot be empty")
	}
	return validateField("queue name", name)
}

// validateInterface ensures member interfaces are non-empty single-line values.
func validateInterface(iface string) error {
	if strings.TrimSpace(iface) == "" {
		return errors.InvalidInput("interface cannot be empty")
	}
	return validateField("interface", iface)
}

// validateReason allows empty reasons.
func validateReason(reason string) error {
	return validateField("reason", reason)
}

func validatePenalty(penalty int) error {
	if penalty < 0 || penalty > MaxPenalty {
		return errors.InvalidInput(fmt.Sprintf("penalty must be between 0 and %d", MaxPenalty))
	}
	return nil
}

// validateField rejects control characters, which would otherwise let a
// value inject extra lines into the switch's line-oriented protocol.
func validateField(kind, value string) error {
	if len(value) > maxFieldLength {
		return errors.InvalidInput(fmt.Sprintf("%s too long (max %d characters)", kind, maxFieldLength))
	}
	if strings.ContainsFunc(value, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return errors.InvalidInput(fmt.Sprintf("%s contains control characters", kind))
	}
	return nil
}

package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("content not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict means the row was no longer in the expected status when updated,
	// typically because a duplicate callback already handled it.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// ValidationError reports malformed generated or user-provided content.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConfigError lists required settings that are absent.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "configuration missing: " + strings.Join(e.Missing, ", ")
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package auth

import (
	"strings"
)

// FieldError is one failed input rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Message is the first failure, suitable for an inline form message.
func (e *ValidationError) Message() string {
	if len(e.Fields) == 0 {
		return "Invalid input"
	}
	return e.Fields[0].Message
}

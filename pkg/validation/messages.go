package validation

import (
	"fmt"
	"strconv"
)

// Messages produces the text of each built-in error. Override individual
// entries to localise; nil entries fall back to DefaultMessages.
type Messages struct {
	Required      func() string
	InvalidFormat func() string
	MinLength     func(n int) string
	MaxLength     func(n int) string
	Min           func(bound float64) string
	Max           func(bound float64) string
	InvalidNumber func() string
}

// DefaultMessages returns the English catalogue.
func DefaultMessages() Messages {
	return Messages{
		Required:      func() string { return "This field is required" },
		InvalidFormat: func() string { return "Invalid format" },
		MinLength:     func(n int) string { return fmt.Sprintf("Minimum %d characters required", n) },
		MaxLength:     func(n int) string { return fmt.Sprintf("Maximum %d characters allowed", n) },
		Min:           func(bound float64) string { return "Minimum value is " + formatBound(bound) },
		Max:           func(bound float64) string { return "Maximum value is " + formatBound(bound) },
		InvalidNumber: func() string { return "Must be a valid number" },
	}
}

func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	if m.Required == nil {
		m.Required = def.Required
	}
	if m.InvalidFormat == nil {
		m.InvalidFormat = def.InvalidFormat
	}
	if m.MinLength == nil {
		m.MinLength = def.MinLength
	}
	if m.MaxLength == nil {
		m.MaxLength = def.MaxLength
	}
	if m.Min == nil {
		m.Min = def.Min
	}
	if m.Max == nil {
		m.Max = def.Max
	}
	if m.InvalidNumber == nil {
		m.InvalidNumber = def.InvalidNumber
	}
	return m
}

func formatBound(bound float64) string {
	return strconv.FormatFloat(bound, 'f', -1, 64)
}

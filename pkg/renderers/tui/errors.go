package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned by Run when the form is still invalid
	// after the configured number of rounds.
	ErrTooManyAttempts = errors.New("tui: too many invalid attempts")
)

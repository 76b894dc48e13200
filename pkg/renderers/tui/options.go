package tui

// Theme captures optional formatting hints the renderer applies when printing
// messages. Keep minimal to avoid coupling renderer logic to ANSI specifics.
type Theme struct {
	RequiredMarker string
	InfoPrefix     string
	ErrorPrefix    string
}

// DefaultTheme marks required fields with an asterisk and prefixes errors.
func DefaultTheme() Theme {
	return Theme{RequiredMarker: " *", ErrorPrefix: "✗ ", InfoPrefix: ""}
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithMaxAttempts bounds how many fill and submit rounds Run performs before
// giving up. Zero or less means no limit.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		r.maxAttempts = n
	}
}

// WithInlineValidation makes text prompts reject invalid answers before they
// reach the session, using the field's rule. Submit still validates.
func WithInlineValidation() Option {
	return func(r *Renderer) {
		r.inline = true
	}
}

package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for the console renderer's
// elements.
type ColorScheme struct {
	RunName     *color.Color
	Tool        *color.Color
	StatusOK    *color.Color
	StatusWarn  *color.Color
	StatusError *color.Color
	Label       *color.Color
	Value       *color.Color
	Rule        *color.Color
	Bar         *color.Color
	Dim         *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		RunName:     color.New(color.FgWhite, color.Bold),
		Tool:        color.New(color.FgMagenta),
		StatusOK:    color.New(color.FgGreen, color.Bold),
		StatusWarn:  color.New(color.FgYellow, color.Bold),
		StatusError: color.New(color.FgRed, color.Bold),
		Label:       color.New(color.FgYellow),
		Value:       color.New(color.FgCyan),
		Rule:        color.New(color.FgCyan),
		Bar:         color.New(color.FgGreen),
		Dim:         color.New(color.Faint),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	scheme.RunName.DisableColor()
	scheme.Tool.DisableColor()
	scheme.StatusOK.DisableColor()
	scheme.StatusWarn.DisableColor()
	scheme.StatusError.DisableColor()
	scheme.Label.DisableColor()
	scheme.Value.DisableColor()
	scheme.Rule.DisableColor()
	scheme.Bar.DisableColor()
	scheme.Dim.DisableColor()

	return scheme
}

// SuccessIcon returns a checkmark symbol with appropriate color.
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color.
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color.
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}

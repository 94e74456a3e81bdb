package output

import (
	"strings"
	"testing"
)

func TestColorSchemes(t *testing.T) {
	defaultScheme := DefaultColorScheme()
	if defaultScheme.RunName == nil {
		t.Error("DefaultColorScheme.RunName should not be nil")
	}
	if defaultScheme.Tool == nil {
		t.Error("DefaultColorScheme.Tool should not be nil")
	}
	if defaultScheme.StatusOK == nil {
		t.Error("DefaultColorScheme.StatusOK should not be nil")
	}
	if defaultScheme.StatusWarn == nil {
		t.Error("DefaultColorScheme.StatusWarn should not be nil")
	}
	if defaultScheme.StatusError == nil {
		t.Error("DefaultColorScheme.StatusError should not be nil")
	}
	if defaultScheme.Label == nil {
		t.Error("DefaultColorScheme.Label should not be nil")
	}
	if defaultScheme.Value == nil {
		t.Error("DefaultColorScheme.Value should not be nil")
	}
	if defaultScheme.Rule == nil {
		t.Error("DefaultColorScheme.Rule should not be nil")
	}
	if defaultScheme.Bar == nil {
		t.Error("DefaultColorScheme.Bar should not be nil")
	}
	if defaultScheme.Dim == nil {
		t.Error("DefaultColorScheme.Dim should not be nil")
	}

	noColorScheme := NoColorScheme()
	if got := noColorScheme.StatusError.Sprint("failed"); got != "failed" {
		t.Errorf("NoColorScheme should emit plain text, got %q", got)
	}
	if got := noColorScheme.RunName.Sprint("name"); strings.Contains(got, "\033") {
		t.Errorf("NoColorScheme should not emit escape codes, got %q", got)
	}
}

func TestIcons(t *testing.T) {
	if SuccessIcon(true) != "✓" {
		t.Errorf("SuccessIcon(true) = %q, want plain checkmark", SuccessIcon(true))
	}
	if ErrorIcon(true) != "✗" {
		t.Errorf("ErrorIcon(true) = %q, want plain cross", ErrorIcon(true))
	}
	if WarningIcon(true) != "⚠" {
		t.Errorf("WarningIcon(true) = %q, want plain warning sign", WarningIcon(true))
	}
	for _, icon := range []string{SuccessIcon(false), ErrorIcon(false), WarningIcon(false)} {
		if icon == "" {
			t.Error("colored icons should not be empty")
		}
	}
}

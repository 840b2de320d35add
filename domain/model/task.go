package model

import (
	"strings"
	"time"
)

// TaskStatus is the explicit lifecycle state of a processing task.
type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusComplete   TaskStatus = "complete"
	StatusFailed     TaskStatus = "failed"
)

// Style selects one of the two effect presets.
type Style string

const (
	StyleRawDynamics Style = "raw-dynamics"
	StyleLofi        Style = "lofi"
)

// DefaultStyleField is the style form value assumed when the client
// sends none.
const DefaultStyleField = "dilla"

// ResolveStyle maps a client-submitted style string to a preset:
// "dilla" (and the empty string) selects lo-fi, anything else falls back
// to raw-dynamics.
func ResolveStyle(raw string) Style {
	if raw == "" || raw == DefaultStyleField {
		return StyleLofi
	}
	return StyleRawDynamics
}

const maxStyleLabelLen = 32

// StyleLabel sanitizes the submitted style string for use in output
// filenames, so a submission with style "albini" yields an artifact
// named "…_albini…". Falls back to the preset name when nothing of the
// raw string survives sanitization.
func StyleLabel(raw string, style Style) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= maxStyleLabelLen {
			break
		}
	}
	if b.Len() == 0 {
		return string(style)
	}
	return b.String()
}

// Task is one unit of upload-process-download work, keyed by an opaque
// unique id.
type Task struct {
	ID         string
	Style      Style
	StyleLabel string
	InputPath  string
	OutputPath string
	Status     TaskStatus
	Error      string // failure reason, set only when Status == StatusFailed
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

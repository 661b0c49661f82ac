package model

import (
	"fmt"
	"time"
)

// Severity classifies how serious an Issue is.
type Severity string

const (
	// SeverityHint marks informational findings that need no action.
	SeverityHint Severity = "hint"
	// SeverityWarning marks degraded results that are still usable.
	SeverityWarning Severity = "warning"
	// SeverityError marks failures that made part of the result unavailable.
	SeverityError Severity = "error"
)

// Issue is a non-fatal problem recorded against a project or package during
// a run. Issues degrade the result instead of aborting it: a structural
// problem in one dependency tree or a failing advisor chunk must not discard
// the valid remainder of the run.
type Issue struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// NewIssue creates an error-severity Issue attributed to source.
func NewIssue(source, format string, args ...any) Issue {
	return Issue{
		Timestamp: time.Now().UTC(),
		Source:    source,
		Message:   fmt.Sprintf(format, args...),
		Severity:  SeverityError,
	}
}

// NewWarning creates a warning-severity Issue attributed to source.
func NewWarning(source, format string, args ...any) Issue {
	i := NewIssue(source, format, args...)
	i.Severity = SeverityWarning
	return i
}

// String returns "severity (source): message" for log output.
func (i Issue) String() string {
	return fmt.Sprintf("%s (%s): %s", i.Severity, i.Source, i.Message)
}

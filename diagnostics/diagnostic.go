// Package diagnostics collects the problems reported while a session runs.
package diagnostics

import (
	"fmt"
	"io"
)

// Severity levels for diagnostics
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Diagnostic is a message attached to the session step that produced it.
type Diagnostic struct {
	Severity Severity
	Step     string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Step != "" {
		return fmt.Sprintf("%s: %s: %s", d.Step, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// DiagnosticEngine collects and reports diagnostics
type DiagnosticEngine struct {
	diagnostics []Diagnostic
	errorCount  int
	warnCount   int
}

// NewDiagnosticEngine creates a new diagnostic engine
func NewDiagnosticEngine() *DiagnosticEngine {
	return &DiagnosticEngine{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Error reports an error for a step
func (d *DiagnosticEngine) Error(step, message string) {
	d.diagnostics = append(d.diagnostics, Diagnostic{
		Severity: SeverityError,
		Step:     step,
		Message:  message,
	})
	d.errorCount++
}

// Warning reports a warning for a step
func (d *DiagnosticEngine) Warning(step, message string) {
	d.diagnostics = append(d.diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Step:     step,
		Message:  message,
	})
	d.warnCount++
}

// Info records a note that is neither an error nor a warning
func (d *DiagnosticEngine) Info(step, message string) {
	d.diagnostics = append(d.diagnostics, Diagnostic{
		Severity: SeverityInfo,
		Step:     step,
		Message:  message,
	})
}

// HasErrors returns true if any errors were reported
func (d *DiagnosticEngine) HasErrors() bool {
	return d.errorCount > 0
}

// WarningCount returns the number of warnings
func (d *DiagnosticEngine) WarningCount() int {
	return d.warnCount
}

// All returns the diagnostics in the order they were reported.
func (d *DiagnosticEngine) All() []Diagnostic {
	out := make([]Diagnostic, len(d.diagnostics))
	copy(out, d.diagnostics)
	return out
}

// Print writes diagnostics at or above min severity to w.
// Severities are ordered Error < Warning < Info, so SeverityWarning prints
// errors and warnings.
func (d *DiagnosticEngine) Print(w io.Writer, min Severity) {
	for _, diag := range d.diagnostics {
		if diag.Severity > min {
			continue
		}
		fmt.Fprintln(w, diag.String())
	}
}

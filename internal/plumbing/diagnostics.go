package plumbing

import (
	"fmt"

	"go.uber.org/zap"
)

// Severity is the level of a non-fatal diagnostic
type Severity int

const (
	// SeverityInfo is an advisory
	SeverityInfo Severity = iota
	// SeverityWarning is a degraded but recoverable condition
	SeverityWarning
)

// String returns the string representation of Severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic codes
const (
	CodeMissingOptionalFile          = "missing_optional_file"
	CodeUnimplementedBlueprintAction = "unimplemented_blueprint_action"
	CodeNoHooks                      = "no_hooks"
	CodeNoRoutes                     = "no_routes"
	CodeNoControllers                = "no_controllers"
)

// Diagnostic is a recoverable condition found while resolving routes
type Diagnostic struct {
	Severity Severity `json:"-"`
	Level    string   `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Diagnostics collects diagnostics in the order they were raised
type Diagnostics struct {
	items  []Diagnostic
	logger *zap.Logger
}

// NewDiagnostics creates a collector that also logs each entry
func NewDiagnostics(logger *zap.Logger) *Diagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diagnostics{logger: logger}
}

// Warnf records a warning
func (d *Diagnostics) Warnf(code, format string, args ...any) {
	d.add(SeverityWarning, code, fmt.Sprintf(format, args...))
}

// Infof records an advisory
func (d *Diagnostics) Infof(code, format string, args ...any) {
	d.add(SeverityInfo, code, fmt.Sprintf(format, args...))
}

// Merge appends diagnostics raised elsewhere without logging them again
func (d *Diagnostics) Merge(items []Diagnostic) {
	d.items = append(d.items, items...)
}

// Items returns a copy of the collected diagnostics
func (d *Diagnostics) Items() []Diagnostic {
	return append([]Diagnostic(nil), d.items...)
}

// HasCode reports whether any diagnostic carries the code
func (d *Diagnostics) HasCode(code string) bool {
	for _, item := range d.items {
		if item.Code == code {
			return true
		}
	}
	return false
}

func (d *Diagnostics) add(severity Severity, code, message string) {
	d.items = append(d.items, Diagnostic{
		Severity: severity,
		Level:    severity.String(),
		Code:     code,
		Message:  message,
	})

	fields := []zap.Field{zap.String("code", code)}
	switch severity {
	case SeverityWarning:
		d.logger.Warn(message, fields...)
	default:
		d.logger.Info(message, fields...)
	}
}

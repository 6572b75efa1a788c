package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized message with suggestions and help commands
//
// Example output:
//
//	❌ CONTROLLER NOT FOUND: controller "usr_controller" not found for route "/users"
//
//	   Did you mean: user_controller?
//
//	   → Check controller registration: plumber routes --json
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var header *color.Color
	var symbol string
	switch opts.Level {
	case ErrorLevelWarning:
		header = colorFor(opts.NoColor, color.FgYellow, color.Bold)
		symbol = "⚠️"
	case ErrorLevelInfo:
		header = colorFor(opts.NoColor, color.FgCyan, color.Bold)
		symbol = "ℹ️"
	default:
		header = colorFor(opts.NoColor, color.FgRed, color.Bold)
		symbol = "❌"
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		colorFor(opts.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := colorFor(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	return colorFor(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// WriteDiagnostics lists diagnostics, warnings in yellow and advisories in cyan
func WriteDiagnostics(w io.Writer, diags []plumbing.Diagnostic, noColor bool) {
	if len(diags) == 0 {
		return
	}

	warn := colorFor(noColor, color.FgYellow)
	info := colorFor(noColor, color.FgCyan)
	gray := colorFor(noColor, color.FgHiBlack)

	for _, d := range diags {
		c, symbol := info, "ℹ"
		if d.Severity == plumbing.SeverityWarning {
			c, symbol = warn, "⚠"
		}
		c.Fprintf(w, "%s %s", symbol, d.Message)
		gray.Fprintf(w, " [%s]\n", d.Code)
	}
}

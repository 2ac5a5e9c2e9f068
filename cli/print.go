package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dustwatch/dustwatch/module"
)

// printf prints a message with a newline.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a yellow warning to w.
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.FgYellow, color.Bold).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

var severityColors = map[module.Severity]*color.Color{
	module.SeverityNominal:  color.New(color.FgGreen),
	module.SeverityModerate: color.New(color.FgYellow),
	module.SeveritySevere:   color.New(color.FgRed, color.Bold),
}

// colorize renders s in the color of a severity. Unknown severities are left plain.
func colorize(severity module.Severity, s string) string {
	c, ok := severityColors[severity]
	if !ok {
		return s
	}
	return c.Sprint(s)
}

// statusColor highlights device access statuses in device listings.
func statusColor(status string, accessible bool) string {
	if accessible {
		return color.GreenString(status)
	}
	return color.RedString(status)
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

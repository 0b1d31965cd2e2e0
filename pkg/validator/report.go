package validator

import (
	"fmt"
	"strings"
)

// HasErrors reports whether any warning has error severity.
func HasErrors(warnings []Warning) bool {
	for _, w := range warnings {
		if w.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count splits warnings by severity.
func Count(warnings []Warning) (errs, warns int) {
	for _, w := range warnings {
		if w.Severity == SeverityError {
			errs++
		} else {
			warns++
		}
	}
	return errs, warns
}

// Markdown renders warnings as a Markdown report for terminal rendering.
func Markdown(warnings []Warning) string {
	var b strings.Builder
	b.WriteString("## Validation\n\n")
	if len(warnings) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	errs, warns := Count(warnings)
	fmt.Fprintf(&b, "%d error(s), %d warning(s)\n\n", errs, warns)
	b.WriteString("| Severity | Node | Issue |\n")
	b.WriteString("|---|---|---|\n")
	for _, w := range warnings {
		node := "-"
		if w.NodeID != "" {
			node = "`" + w.NodeID + "`"
		}
		msg := strings.ReplaceAll(w.Message, "|", `\|`)
		fmt.Fprintf(&b, "| %s | %s | %s |\n", w.Severity, node, msg)
	}
	return b.String()
}

package lint

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/colorstring"

	"github.com/shinji-kodama/brick/internal/model"
)

// trailingPeriod matches a sentence-ending period that ESLint's stylish
// formatter strips from messages.
var trailingPeriod = regexp.MustCompile(`([^ ])\.$`)

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// stylishRow is one message row before alignment.
type stylishRow struct {
	line, column string
	isError      bool
	message      string
	rule         string
}

// Stylish renders results the way ESLint's "stylish" formatter does: one
// block per file with aligned rows, then a summary line. It returns "" when
// there is nothing to report.
func Stylish(results []model.LintResult, color bool) string {
	c := &colorstring.Colorize{Colors: colorstring.DefaultColors, Disable: !color}
	paint := func(codes, text string) string {
		if text == "" {
			return ""
		}
		return c.Color(codes) + text + c.Color("[reset]")
	}

	var b strings.Builder
	b.WriteString("\n")

	var errors, warnings, fixableErrors, fixableWarnings int
	summaryColor := "yellow"

	for _, result := range results {
		if len(result.Messages) == 0 {
			continue
		}
		errors += result.ErrorCount
		warnings += result.WarningCount
		fixableErrors += result.FixableErrorCount
		fixableWarnings += result.FixableWarningCount

		rows := make([]stylishRow, 0, len(result.Messages))
		for _, m := range result.Messages {
			if m.IsError() {
				summaryColor = "red"
			}
			rows = append(rows, stylishRow{
				line:    strconv.Itoa(m.Line),
				column:  strconv.Itoa(m.Column),
				isError: m.IsError(),
				message: trailingPeriod.ReplaceAllString(m.Message, "$1"),
				rule:    m.RuleID,
			})
		}

		b.WriteString(paint("[underline]", result.FilePath))
		b.WriteString("\n")
		writeRows(&b, rows, paint)
		b.WriteString("\n\n")
	}

	total := errors + warnings
	if total == 0 {
		return ""
	}

	summary := fmt.Sprintf("✖ %d %s (%d %s, %d %s)",
		total, plural("problem", total),
		errors, plural("error", errors),
		warnings, plural("warning", warnings))
	b.WriteString(paint("["+summaryColor+"][bold]", summary))
	b.WriteString("\n")

	if fixableErrors > 0 || fixableWarnings > 0 {
		fixable := fmt.Sprintf("  %d %s and %d %s potentially fixable with the `--fix` option.",
			fixableErrors, plural("error", fixableErrors),
			fixableWarnings, plural("warning", fixableWarnings))
		b.WriteString(paint("["+summaryColor+"][bold]", fixable))
		b.WriteString("\n")
	}
	return b.String()
}

// writeRows writes rows as an aligned table: the line number is right
// aligned, everything else left aligned, columns separated by two spaces.
func writeRows(b *strings.Builder, rows []stylishRow, paint func(codes, text string) string) {
	var lineW, colW, typeW, msgW int
	for _, r := range rows {
		lineW = max(lineW, len(r.line))
		colW = max(colW, len(r.column))
		typeW = max(typeW, len(severityLabel(r.isError)))
		msgW = max(msgW, runewidth.StringWidth(r.message))
	}

	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  ")
		b.WriteString(strings.Repeat(" ", lineW-len(r.line)))
		b.WriteString(paint("[dim]", r.line+":"+r.column))

		label := severityLabel(r.isError)
		if r.isError {
			label = paint("[red]", label)
		} else {
			label = paint("[yellow]", label)
		}

		b.WriteString(strings.Repeat(" ", colW-len(r.column)))
		b.WriteString("  ")
		b.WriteString(label)
		b.WriteString(strings.Repeat(" ", typeW-len(severityLabel(r.isError))))
		b.WriteString("  ")
		b.WriteString(r.message)
		if r.rule != "" {
			b.WriteString(strings.Repeat(" ", msgW-runewidth.StringWidth(r.message)))
			b.WriteString("  ")
			b.WriteString(paint("[dim]", r.rule))
		}
	}
}

func severityLabel(isError bool) string {
	if isError {
		return "error"
	}
	return "warning"
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

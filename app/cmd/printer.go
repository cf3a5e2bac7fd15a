package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/reagent/framework"
)

var (
	thoughtStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	actionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	observationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	answerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	progressStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const maxPrintedObservation = 800

// transcriptPrinter renders loop events as they happen.
type transcriptPrinter struct {
	out io.Writer
}

func (p transcriptPrinter) Emit(event framework.Event) {
	switch event.Type {
	case framework.EventPlan:
		fmt.Fprintln(p.out, progressStyle.Render("Plan:"))
		fmt.Fprint(p.out, event.Message)
	case framework.EventThought:
		fmt.Fprintln(p.out, thoughtStyle.Render("💭 "+event.Message))
	case framework.EventAction:
		fmt.Fprintln(p.out, actionStyle.Render("🔧 "+event.Message))
	case framework.EventObservation:
		fmt.Fprintln(p.out, observationStyle.Render(indent(clip(event.Message, maxPrintedObservation))))
	case framework.EventSummary:
		fmt.Fprintln(p.out, progressStyle.Render("Context restarted from a summary."))
	case framework.EventFinalAnswer:
		fmt.Fprintln(p.out, answerStyle.Render("✅ Final answer"))
		fmt.Fprintln(p.out, event.Message)
	case framework.EventReflection:
		fmt.Fprintln(p.out, thoughtStyle.Render("Reflection: "+event.Message))
	}
}

func (p transcriptPrinter) progress(msg string) {
	fmt.Fprintln(p.out, progressStyle.Render(msg))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("... (%d more characters)", len(s)-max)
}

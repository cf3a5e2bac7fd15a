package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View composes the scrollable feed, the activity line, the input and the
// status bar.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	activity := dimStyle.Render("ready")
	if m.running {
		activity = m.spinner.View() + " " + dimStyle.Render(lastLine(m.partial, m.width-4))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.feed.View(),
		activity,
		m.input.View(),
		m.status.View(m.width),
	)
}

func (m Model) renderEntries() string {
	if len(m.entries) == 0 {
		return welcomeStyle.Render("Describe a task to start. /help lists commands.")
	}
	width := m.width - 2
	if width < 10 {
		width = 10
	}
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, renderEntry(e, width))
	}
	return strings.Join(out, "\n")
}

func renderEntry(e entry, width int) string {
	style := textStyle
	prefix := ""
	switch e.kind {
	case entryUser:
		return headerStyle.Render("👤 "+e.at.Format("15:04:05")) + "\n" + textStyle.Width(width).Render(e.text)
	case entryThought:
		style, prefix = thoughtStyle, "💭 "
	case entryAction:
		style, prefix = actionStyle, "🔧 "
	case entryObservation:
		style, prefix = dimStyle, "   "
	case entryAnswer:
		return answerStyle.Render("✅ Answer") + "\n" + textStyle.Width(width).Render(e.text)
	case entryReflection:
		style, prefix = thoughtStyle, "🪞 "
	case entrySystem:
		style, prefix = warningStyle, "⚙ "
	case entryError:
		style, prefix = errorStyle, "✗ "
	}
	return style.Width(width).Render(prefix + e.text)
}

func lastLine(s string, max int) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if max > 0 && len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar renders workspace and model metadata plus context usage.
type StatusBar struct {
	workspace string
	model     string
	planFirst bool
	tokens    int
	maxTokens int
	duration  time.Duration
}

func (s StatusBar) View(width int) string {
	mode := "react"
	if s.planFirst {
		mode = "plan+react"
	}
	left := fmt.Sprintf("📁 %s | 🤖 %s | 🔧 %s", truncate(s.workspace, 24), s.model, mode)
	right := fmt.Sprintf("🪙 %s/%s | ⏱️  %s", formatTokens(s.tokens), formatTokens(s.maxTokens), formatDuration(s.duration))
	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return statusStyle.Render(left + strings.Repeat(" ", padding) + right)
}

func formatTokens(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%.1fk", float64(n)/1000)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	return d.Truncate(time.Second).String()
}

// truncate keeps the tail of long paths, which is the informative part.
func truncate(s string, n int) string {
	if n <= 1 || len(s) <= n {
		return s
	}
	return "…" + s[len(s)-(n-1):]
}

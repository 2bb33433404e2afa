package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	content = strings.TrimRight(content, "\n")
	if title != "" {
		content = StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content
	}
	return boxStyle.Render(content) + "\n"
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// Truncate shortens s to max runes, ending with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return domain.DateOf(t).Format(domain.DateLayout)
}

// FormatTimestamp renders an instant in UTC to the minute.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// RelativeDay describes day relative to today in whole calendar days.
func RelativeDay(day, today time.Time) string {
	days := int(domain.DateOf(day).Sub(domain.DateOf(today)).Hours() / 24)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0:
		return fmt.Sprintf("In %dd", days)
	default:
		return fmt.Sprintf("%dd ago", -days)
	}
}

// Window renders a phase's day range, e.g. "2025-06-15 → 2025-06-21 (7d)".
func Window(p *domain.Phase) string {
	return fmt.Sprintf("%s → %s (%dd)", FormatDate(p.AnchorStart), FormatDate(p.EndDate()), p.DurationDays)
}

func orDash(s string) string {
	if s == "" {
		return Dim("--")
	}
	return s
}

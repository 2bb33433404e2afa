package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// Header renders an upper-cased section title over a dim rule.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// PlanStatusPill returns a colored indicator for a plan status.
func PlanStatusPill(status domain.PlanStatus) string {
	switch status {
	case domain.PlanActive:
		return StyleGreen.Render("● Active")
	case domain.PlanDraft:
		return StyleBlue.Render("○ Draft")
	case domain.PlanCompleted:
		return StylePurple.Render("✔ Completed")
	case domain.PlanAbandoned:
		return StyleDim.Render("✖ Abandoned")
	default:
		return StyleDim.Render(string(status))
	}
}

// PhaseStatusPill returns a colored indicator for a phase status.
func PhaseStatusPill(status domain.PhaseStatus) string {
	switch status {
	case domain.PhaseInProgress:
		return StyleGreen.Render("● In progress")
	case domain.PhaseRedoEligible:
		return StyleYellow.Render("↺ Redo eligible")
	case domain.PhaseAdvanced:
		return StyleDim.Render("✔ Advanced")
	case domain.PhasePlanCompleted:
		return StylePurple.Render("✔ Completed")
	case domain.PhasePendingStart:
		return StyleDim.Render("○ Pending")
	default:
		return StyleDim.Render(string(status))
	}
}

// MissionStatusPill returns a colored indicator for a mission instance.
func MissionStatusPill(status domain.MissionStatus) string {
	switch status {
	case domain.MissionCompleted:
		return StyleGreen.Render("✔ Done")
	case domain.MissionSkipped:
		return StyleYellow.Render("⊘ Skipped")
	case domain.MissionFailed:
		return StyleRed.Render("✖ Failed")
	case domain.MissionPending:
		return StyleBlue.Render("○ Pending")
	default:
		return StyleDim.Render(string(status))
	}
}

// ReminderStatusPill returns a colored indicator for a queued reminder.
func ReminderStatusPill(status domain.ReminderStatus) string {
	switch status {
	case domain.ReminderSent:
		return StyleGreen.Render("✔ Sent")
	case domain.ReminderFailed:
		return StyleRed.Render("✖ Failed")
	case domain.ReminderPending:
		return StyleBlue.Render("○ Pending")
	default:
		return StyleDim.Render(string(status))
	}
}

// PhaseBadge renders a phase kind as a purple label, "Peak craving" style.
func PhaseBadge(kind domain.PhaseKind) string {
	s := strings.ToLower(strings.ReplaceAll(string(kind), "_", " "))
	if s == "" {
		return StyleDim.Render("--")
	}
	return StylePurple.Render(strings.ToUpper(s[:1]) + s[1:])
}

package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/quitplan/internal/service"
)

// FormatTodayMissions renders the member's mission list for today.
func FormatTodayMissions(tm *service.TodayMissions) string {
	var b strings.Builder
	if tm.Phase != nil {
		fmt.Fprintf(&b, "%s  %s", PhaseBadge(tm.Phase.Kind), PhaseStatusPill(tm.Phase.Status))
		if tm.Detail != nil {
			fmt.Fprintf(&b, "  %s", Dim(tm.Detail.Name+" · "+FormatDate(tm.Detail.Date)))
		}
		b.WriteString("\n")
	}
	if tm.Popup {
		b.WriteString(StyleYellow.Render(tm.PopupMessage) + "\n")
	}
	if tm.Lapsed {
		b.WriteString(StyleYellow.Render("The phase window has ended; no missions are scheduled today.") + "\n")
	}

	if len(tm.Missions) == 0 {
		b.WriteString("\n" + Dim("No missions today.") + "\n")
		return RenderBox("Today", b.String())
	}

	b.WriteString("\n")
	t := NewTable("ID", "MISSION", "STATUS", "DESCRIPTION")
	for _, m := range tm.Missions {
		name := m.Name
		if name == "" {
			name = m.MissionCode
		}
		t.AddRow(TruncID(m.ID), Bold(name), MissionStatusPill(m.Status), Dim(Truncate(m.Description, 50)))
	}
	b.WriteString(t.Render())
	return RenderBox("Today", b.String())
}

// FormatMissionHistory renders every mission instance of a phase across
// attempts, oldest first.
func FormatMissionHistory(rows []service.MissionHistoryEntry) string {
	if len(rows) == 0 {
		return Dim("No missions recorded.") + "\n"
	}
	t := NewTable("ATTEMPT", "DAY", "DATE", "MISSION", "STATUS", "NOTES")
	for _, r := range rows {
		notes := r.Mission.Notes
		if len(r.Mission.Triggers) > 0 {
			notes = strings.TrimSpace(notes + " [" + strings.Join(r.Mission.Triggers, ", ") + "]")
		}
		t.AddRow(
			fmt.Sprintf("%d", r.AttemptNo),
			fmt.Sprintf("%d", r.DayIndex),
			FormatDate(r.Date),
			r.Mission.MissionCode,
			MissionStatusPill(r.Mission.Status),
			Dim(Truncate(notes, 40)),
		)
	}
	return RenderBox("Mission history", t.Render())
}

// FormatMissionRecorded renders the result of reporting a mission.
func FormatMissionRecorded(res *service.RecordMissionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recorded %s as %s\n", Bold(res.Mission.MissionCode), MissionStatusPill(res.Mission.Status))
	if res.Evaluation != nil && res.Evaluation.Outcome != service.OutcomeWaiting {
		fmt.Fprintf(&b, "%s %s\n", Dim("phase"), outcomeLabel(res.Evaluation.Outcome))
	}
	return b.String()
}

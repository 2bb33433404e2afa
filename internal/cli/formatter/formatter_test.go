package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/quitplan/internal/catalog"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/rule"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

var day0 = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func testPhase(kind domain.PhaseKind, status domain.PhaseStatus, order int) *domain.Phase {
	return &domain.Phase{
		ID:           "phase-" + strings.ToLower(string(kind)),
		Kind:         kind,
		OrderIndex:   order,
		AnchorStart:  day0.AddDate(0, 0, 3*order),
		DurationDays: 3,
		Status:       status,
	}
}

func TestRelativeDay(t *testing.T) {
	tests := []struct {
		offset int
		want   string
	}{
		{0, "Today"},
		{1, "Tomorrow"},
		{-1, "Yesterday"},
		{5, "In 5d"},
		{-4, "4d ago"},
	}
	for _, tt := range tests {
		got := RelativeDay(day0.AddDate(0, 0, tt.offset).Add(20*time.Hour), day0.Add(9*time.Hour))
		assert.Equal(t, tt.want, got, "offset %d", tt.offset)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("ab", 2))
}

func TestRenderProgress(t *testing.T) {
	assert.Equal(t, "[██████████] 6/6", stripANSI(RenderProgress(6, 6, 10)))
	assert.Equal(t, "[█████░░░░░] 3/6", stripANSI(RenderProgress(3, 6, 10)))
	assert.Equal(t, "[░░░░░░░░░░] 0/0", stripANSI(RenderProgress(0, 0, 10)))
	assert.Equal(t, "[██] 9/4", stripANSI(RenderProgress(9, 4, 1)), "overfull bars clamp")
}

func TestTable_AlignsStyledCells(t *testing.T) {
	tbl := NewTable("A", "STATUS")
	tbl.AddRow("long value", PlanStatusPill(domain.PlanActive))
	tbl.AddRow("x")
	lines := strings.Split(strings.TrimRight(stripANSI(tbl.Render()), "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, strings.Index(lines[0], "STATUS"), strings.Index(lines[2], "● Active"))
	assert.True(t, strings.HasPrefix(lines[3], "x"))
	assert.Empty(t, NewTable().Render())
}

func TestPills(t *testing.T) {
	assert.Contains(t, stripANSI(PhaseStatusPill(domain.PhaseRedoEligible)), "Redo eligible")
	assert.Contains(t, stripANSI(MissionStatusPill(domain.MissionSkipped)), "Skipped")
	assert.Contains(t, stripANSI(ReminderStatusPill(domain.ReminderFailed)), "Failed")
	assert.Contains(t, stripANSI(PlanStatusPill(domain.PlanAbandoned)), "Abandoned")
	assert.Equal(t, "Peak craving", stripANSI(PhaseBadge(domain.PhasePeakCraving)))
}

func TestFormatPlanOverview(t *testing.T) {
	prep := testPhase(domain.PhasePreparation, domain.PhaseInProgress, 0)
	prep.Reason = "prep_progress: not met (progress >= 80)"
	onset := testPhase(domain.PhaseOnset, domain.PhasePendingStart, 1)
	ov := &service.PlanOverview{
		Plan: &domain.QuitPlan{ID: "plan-1", MemberID: "m-1", Name: "Quit", Status: domain.PlanActive, StartDate: day0},
		Phases: []service.PhaseOverview{
			{Phase: prep, Attempts: 1, Completed: 2, Total: 6, Days: []service.DaySummary{
				{Detail: &domain.PhaseDetail{Name: "Day 1", DayIndex: 1, Date: day0}, Completed: 2, Total: 2},
				{Detail: &domain.PhaseDetail{Name: "Day 2", DayIndex: 2, Date: day0.AddDate(0, 0, 1)}, Completed: 0, Total: 2},
			}},
			{Phase: onset},
		},
	}

	out := stripANSI(FormatPlanOverview(ov, day0))
	assert.Contains(t, out, "PLAN")
	assert.Contains(t, out, "Quit")
	assert.Contains(t, out, "Preparation")
	assert.Contains(t, out, "2025-06-15 → 2025-06-17 (3d)")
	assert.Contains(t, out, "2/6")
	assert.Contains(t, out, "PREPARATION DAYS")
	assert.Contains(t, out, "Tomorrow")
	assert.Contains(t, out, "prep_progress: not met")
	assert.Contains(t, out, "○ Pending")
}

func TestFormatCurrentPhase(t *testing.T) {
	cur := &service.CurrentPhase{Phase: testPhase(domain.PhasePreparation, domain.PhaseInProgress, 0)}
	out := stripANSI(FormatCurrentPhase(cur, day0.AddDate(0, 0, 1)))
	assert.Contains(t, out, "day 2 of 3")
	assert.NotContains(t, out, "window has ended")

	cur.Lapsed = true
	out = stripANSI(FormatCurrentPhase(cur, day0.AddDate(0, 0, 5)))
	assert.Contains(t, out, "window has ended")
	assert.NotContains(t, out, "day 6")
}

func TestFormatEvaluation(t *testing.T) {
	next := "phase-onset"
	ev := &service.Evaluation{
		PhaseID:     "phase-preparation",
		Outcome:     service.OutcomeAdvanced,
		NextPhaseID: &next,
		Reason:      "prep_progress: met",
		Result: rule.Combined{Outcomes: []rule.Outcome{
			{Name: "prep_progress", Rule: "progress >= 80", Satisfied: true},
			{Name: "prep_craving", Rule: "craving_level_avg <= 5", Missing: []domain.Metric{domain.MetricCravingAvg}},
		}},
	}
	out := stripANSI(FormatEvaluation(ev))
	assert.Contains(t, out, "advanced")
	assert.Contains(t, out, "phase-onset")
	assert.Contains(t, out, "met")
	assert.Contains(t, out, "missing craving_level_avg")
}

func TestFormatTodayMissions(t *testing.T) {
	tm := &service.TodayMissions{
		Phase:  testPhase(domain.PhasePreparation, domain.PhaseInProgress, 0),
		Detail: &domain.PhaseDetail{Name: "Day 1", Date: day0},
		Missions: []*domain.PhaseDetailMission{
			{ID: "0123456789", MissionCode: "PREP_REASONS", Name: "Write down your reasons", Status: domain.MissionPending},
			{ID: "abcdefghij", MissionCode: "PREP_WATER", Status: domain.MissionCompleted},
		},
		Popup:        true,
		PopupMessage: "Last day of Preparation.",
	}
	out := stripANSI(FormatTodayMissions(tm))
	assert.Contains(t, out, "Day 1 · 2025-06-15")
	assert.Contains(t, out, "Last day of Preparation.")
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "Write down your reasons")
	assert.Contains(t, out, "PREP_WATER")

	empty := stripANSI(FormatTodayMissions(&service.TodayMissions{Lapsed: true}))
	assert.Contains(t, empty, "No missions today.")
	assert.Contains(t, empty, "window has ended")
}

func TestFormatMissionHistory(t *testing.T) {
	rows := []service.MissionHistoryEntry{
		{AttemptNo: 1, DayIndex: 1, Date: day0, Mission: &domain.PhaseDetailMission{
			MissionCode: "PREP_REASONS", Status: domain.MissionCompleted, Notes: "felt good", Triggers: []string{"coffee"},
		}},
	}
	out := stripANSI(FormatMissionHistory(rows))
	assert.Contains(t, out, "PREP_REASONS")
	assert.Contains(t, out, "felt good [coffee]")
	assert.Contains(t, FormatMissionHistory(nil), "No missions recorded.")
}

func TestFormatEventsAndReminders(t *testing.T) {
	reminderErr := "template PREPARATION/MORNING/PLAN_STARTED: reminder template not found"
	events := []*domain.PlanEvent{
		{Kind: domain.EventPlanStarted, Detail: "plan Quit started", CreatedAt: day0, ReminderError: &reminderErr},
	}
	out := stripANSI(FormatEvents(events))
	assert.Contains(t, out, "plan_started")
	assert.Contains(t, out, "2025-06-15 00:00")
	assert.Contains(t, out, "template PREPARATION")

	entries := []*domain.ReminderEntry{
		{TriggerCode: domain.TriggerPlanStarted, ReminderType: domain.ReminderMorning, Status: domain.ReminderFailed,
			LastError: "no_target", ScheduledAt: day0, Content: "Welcome to Quit."},
	}
	out = stripANSI(FormatReminders(entries))
	assert.Contains(t, out, "PLAN_STARTED")
	assert.Contains(t, out, "no_target")
	assert.Contains(t, out, "Welcome to Quit.")

	assert.Contains(t, FormatEvents(nil), "No events recorded.")
	assert.Contains(t, FormatReminders(nil), "No reminders queued.")
}

func TestFormatCatalog(t *testing.T) {
	c, err := catalog.LoadDefault()
	require.NoError(t, err)
	out := stripANSI(FormatCatalog(c))
	assert.Contains(t, out, "BLUEPRINT")
	assert.Contains(t, out, "Peak craving")
	assert.Contains(t, out, "PREP_NRT_STOCK")
	assert.Contains(t, out, "6-7")
	assert.Contains(t, out, "(NRT)")
	assert.Contains(t, out, "preparation_progress")
	assert.Contains(t, out, "DAILY_MORNING")

	summary := FormatSeedResult(&catalog.SeedResult{Phases: 5, Missions: 15, Templates: 35})
	assert.Equal(t, "Loaded 5 phases, 0 mission types, 15 missions, 0 conditions, 35 reminder templates\n", summary)
}

package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/service"
)

const phaseProgressBarWidth = 10

// FormatPlanList renders a member's plans, newest first as given.
func FormatPlanList(plans []*domain.QuitPlan) string {
	if len(plans) == 0 {
		return Dim("No plans found.") + "\n"
	}
	t := NewTable("ID", "NAME", "STATUS", "START", "END", "NRT")
	for _, p := range plans {
		end := ""
		if p.EndDate != nil {
			end = FormatDate(*p.EndDate)
		}
		nrt := Dim("no")
		if p.UseNRT {
			nrt = "yes"
		}
		t.AddRow(TruncID(p.ID), Bold(p.Name), PlanStatusPill(p.Status), FormatDate(p.StartDate), orDash(end), nrt)
	}
	return RenderBox("Plans", t.Render())
}

// FormatPlanOverview renders a plan with one row per phase and the day
// tallies of the phase that is currently open.
func FormatPlanOverview(ov *service.PlanOverview, today time.Time) string {
	var b strings.Builder
	p := ov.Plan
	fmt.Fprintf(&b, "%s  %s\n", Bold(p.Name), PlanStatusPill(p.Status))
	fmt.Fprintf(&b, "%s %s  %s %s\n", Dim("member"), p.MemberID, Dim("id"), p.ID)
	fmt.Fprintf(&b, "%s %s", Dim("started"), FormatDate(p.StartDate))
	if p.EndDate != nil {
		fmt.Fprintf(&b, "  %s %s", Dim("ended"), FormatDate(*p.EndDate))
	}
	b.WriteString("\n\n")

	t := NewTable("#", "PHASE", "STATUS", "WINDOW", "ATTEMPT", "MISSIONS")
	var open *service.PhaseOverview
	for i := range ov.Phases {
		po := &ov.Phases[i]
		attempt := Dim("--")
		progress := Dim("--")
		if po.Phase.Status.IsStarted() {
			attempt = fmt.Sprintf("%d", po.Attempts)
			progress = RenderProgress(po.Completed, po.Total, phaseProgressBarWidth)
		}
		t.AddRow(
			fmt.Sprintf("%d", po.Phase.OrderIndex+1),
			PhaseBadge(po.Phase.Kind),
			PhaseStatusPill(po.Phase.Status),
			Window(po.Phase),
			attempt,
			progress,
		)
		if po.Phase.Status.IsOpen() {
			open = po
		}
	}
	b.WriteString(t.Render())

	if open != nil && len(open.Days) > 0 {
		b.WriteString("\n")
		b.WriteString(Header(string(open.Phase.Kind) + " days"))
		b.WriteString("\n")
		days := NewTable("DAY", "DATE", "", "MISSIONS")
		for _, d := range open.Days {
			days.AddRow(d.Detail.Name, FormatDate(d.Detail.Date), Dim(RelativeDay(d.Detail.Date, today)), fmt.Sprintf("%d/%d", d.Completed, d.Total))
		}
		b.WriteString(days.Render())
		if open.Phase.Reason != "" {
			b.WriteString("\n" + Dim(open.Phase.Reason) + "\n")
		}
	}
	return RenderBox("Plan", b.String())
}

// FormatCurrentPhase renders the phase a plan is in today.
func FormatCurrentPhase(cur *service.CurrentPhase, today time.Time) string {
	p := cur.Phase
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", PhaseBadge(p.Kind), PhaseStatusPill(p.Status))
	fmt.Fprintf(&b, "%s %s\n", Dim("window"), Window(p))
	if p.Contains(today) {
		fmt.Fprintf(&b, "%s %d of %d\n", Dim("day"), p.DayIndex(today), p.DurationDays)
	}
	if cur.Lapsed {
		b.WriteString(StyleYellow.Render("The window has ended. Evaluate the phase to move on.") + "\n")
	}
	if p.Reason != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("reason"), p.Reason)
	}
	return RenderBox("Current phase", b.String())
}

// FormatEvaluation renders the result of an advancement check.
func FormatEvaluation(ev *service.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Dim("phase"), ev.PhaseID)
	fmt.Fprintf(&b, "%s %s\n", Dim("outcome"), outcomeLabel(ev.Outcome))
	if ev.NextPhaseID != nil {
		fmt.Fprintf(&b, "%s %s\n", Dim("next phase"), *ev.NextPhaseID)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("reason"), ev.Reason)
	}
	if len(ev.Result.Outcomes) > 0 {
		b.WriteString("\n")
		t := NewTable("CONDITION", "RESULT", "RULE")
		for _, o := range ev.Result.Outcomes {
			result := StyleRed.Render("not met")
			switch {
			case len(o.Missing) > 0:
				names := make([]string, len(o.Missing))
				for i, m := range o.Missing {
					names[i] = string(m)
				}
				result = StyleYellow.Render("missing " + strings.Join(names, ","))
			case o.Satisfied:
				result = StyleGreen.Render("met")
			}
			t.AddRow(o.Name, result, Dim(o.Rule))
		}
		b.WriteString(t.Render())
	}
	return RenderBox("Evaluation", b.String())
}

func outcomeLabel(o service.EvaluationOutcome) string {
	switch o {
	case service.OutcomeAdvanced:
		return StyleGreen.Render("advanced")
	case service.OutcomePlanCompleted:
		return StylePurple.Render("plan completed")
	case service.OutcomeRedoEligible:
		return StyleYellow.Render("redo eligible")
	case service.OutcomeWaiting:
		return StyleBlue.Render("waiting")
	default:
		return Dim(string(o))
	}
}

// FormatEvents renders a plan's audit log in order.
func FormatEvents(events []*domain.PlanEvent) string {
	if len(events) == 0 {
		return Dim("No events recorded.") + "\n"
	}
	t := NewTable("WHEN", "EVENT", "DETAIL", "REMINDER")
	for _, e := range events {
		reminder := Dim("--")
		switch {
		case e.ReminderError != nil:
			reminder = StyleRed.Render(Truncate(*e.ReminderError, 40))
		case e.ReminderID != nil:
			reminder = TruncID(*e.ReminderID)
		}
		t.AddRow(FormatTimestamp(e.CreatedAt), string(e.Kind), Truncate(e.Detail, 60), reminder)
	}
	return RenderBox("Events", t.Render())
}

// FormatReminders renders queued reminders with their delivery state.
func FormatReminders(entries []*domain.ReminderEntry) string {
	if len(entries) == 0 {
		return Dim("No reminders queued.") + "\n"
	}
	t := NewTable("SCHEDULED", "TRIGGER", "TYPE", "STATUS", "CONTENT")
	for _, e := range entries {
		status := ReminderStatusPill(e.Status)
		if e.Status == domain.ReminderFailed && e.LastError != "" {
			status += " " + Dim(Truncate(e.LastError, 30))
		}
		t.AddRow(FormatTimestamp(e.ScheduledAt), string(e.TriggerCode), string(e.ReminderType), status, Truncate(e.Content, 50))
	}
	return RenderBox("Reminders", t.Render())
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/generation"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
)

// DefaultMorningHour is the UTC hour daily morning reminders are scheduled at.
const DefaultMorningHour = 8

// Options tunes the plan and progression services.
type Options struct {
	// MorningHour is the UTC hour of each day's DAILY_MORNING reminder.
	MorningHour int
	// Logger receives data-quality and reminder warnings. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns Options with the default morning hour.
func DefaultOptions() Options {
	return Options{MorningHour: DefaultMorningHour}
}

// engine holds what the plan and progression services share: entering a
// phase window and recording events with their reminders.
type engine struct {
	uow         db.UnitOfWork
	enqueuer    ReminderEnqueuer
	generator   *generation.Generator
	clock       clock.Clock
	logger      *slog.Logger
	morningHour int
}

func newEngine(uow db.UnitOfWork, enqueuer ReminderEnqueuer, c clock.Clock, opts Options) *engine {
	c = clock.OrSystem(c)
	if enqueuer == nil {
		enqueuer = NewReminderEnqueuer(c)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hour := opts.MorningHour
	if hour < 0 || hour > 23 {
		hour = DefaultMorningHour
	}
	return &engine{
		uow:         uow,
		enqueuer:    enqueuer,
		generator:   generation.NewGenerator(c),
		clock:       c,
		logger:      logger,
		morningHour: hour,
	}
}

// openWindow persists the attempt named by phase.CurrentAttemptID, lays out
// one PhaseDetail per day from phase.AnchorStart and materialises day 1.
// The caller has already moved the phase into in_progress.
func (e *engine) openWindow(ctx context.Context, tx db.DBTX, plan *domain.QuitPlan, phase *domain.Phase, prev *domain.PhaseAttempt) ([]*domain.PhaseDetail, error) {
	now := e.clock.Now()
	attempt := &domain.PhaseAttempt{
		ID:          *phase.CurrentAttemptID,
		PhaseID:     phase.ID,
		AttemptNo:   1,
		AnchorStart: phase.AnchorStart,
		Outcome:     domain.AttemptActive,
		CreatedAt:   now,
	}
	if prev != nil {
		attempt.AttemptNo = prev.AttemptNo + 1
		attempt.SupersedesAttemptID = &prev.ID
	}
	if err := repository.NewSQLitePhaseAttemptRepo(tx).Create(ctx, attempt); err != nil {
		return nil, err
	}

	details := generation.WindowDetails(phase, attempt.ID, phase.AnchorStart, now, func() string { return uuid.New().String() })
	if err := repository.NewSQLitePhaseDetailRepo(tx).CreateBatch(ctx, details); err != nil {
		return nil, err
	}
	if _, err := e.generator.EnsureDay(ctx, tx, details[0], plan, phase); err != nil {
		return nil, fmt.Errorf("generating day 1 missions: %w", err)
	}
	phase.Details = details
	return details, nil
}

// event appends a plan event. When trigger is non-empty the matching reminder
// is enqueued first; a template failure is stored on the event instead of
// aborting the transition.
func (e *engine) event(ctx context.Context, tx db.DBTX, acct *domain.Account, plan *domain.QuitPlan, phase *domain.Phase, kind domain.EventKind, detail string, trigger domain.TriggerCode, selectorKind domain.PhaseKind, vars map[string]string) (*domain.PlanEvent, error) {
	now := e.clock.Now()
	ev := &domain.PlanEvent{
		ID:        uuid.New().String(),
		PlanID:    plan.ID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: now,
	}
	if phase != nil {
		ev.PhaseID = &phase.ID
	}

	if trigger != "" {
		entry, err := e.enqueuer.Enqueue(ctx, tx, EnqueueRequest{
			AccountID:   acct.ID,
			Selector:    selectorFor(selectorKind, trigger),
			ScheduledAt: now,
			PlanID:      plan.ID,
			PhaseID:     ev.PhaseID,
			Context:     vars,
		})
		switch {
		case err == nil:
			ev.ReminderID = &entry.ID
		case isTemplateFailure(err):
			msg := err.Error()
			ev.ReminderError = &msg
			e.logger.WarnContext(ctx, "reminder not enqueued",
				"plan_id", plan.ID, "event", string(kind), "trigger", string(trigger), "error", msg)
		default:
			return nil, err
		}
	}

	if err := repository.NewSQLiteEventRepo(tx).Append(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// scheduleMornings queues a DAILY_MORNING reminder for every day of the
// window whose morning is still ahead. A missing template stops the series.
func (e *engine) scheduleMornings(ctx context.Context, tx db.DBTX, acct *domain.Account, plan *domain.QuitPlan, phase *domain.Phase, details []*domain.PhaseDetail) (int, error) {
	now := e.clock.Now()
	queued := 0
	for _, d := range details {
		at := d.Date.Add(time.Duration(e.morningHour) * time.Hour)
		if at.Before(now) {
			continue
		}
		_, err := e.enqueuer.Enqueue(ctx, tx, EnqueueRequest{
			AccountID:   acct.ID,
			Selector:    selectorFor(phase.Kind, domain.TriggerDailyMorning),
			ScheduledAt: at,
			PlanID:      plan.ID,
			PhaseID:     &phase.ID,
			Context:     renderVars(plan, phase, d.Date, d.DayIndex, ""),
		})
		if err != nil {
			if isTemplateFailure(err) {
				e.logger.WarnContext(ctx, "morning reminders not enqueued",
					"plan_id", plan.ID, "phase_id", phase.ID, "error", err.Error())
				return queued, nil
			}
			return queued, err
		}
		queued++
	}
	return queued, nil
}

func (e *engine) account(ctx context.Context, tx db.DBTX, memberID string) (*domain.Account, error) {
	return repository.NewSQLiteAccountRepo(tx).Ensure(ctx, memberID, e.clock.Now())
}

// TemplateKeys are the placeholders every reminder template can use.
var TemplateKeys = []string{"plan", "phase", "date", "day", "mission"}

// renderVars fills TemplateKeys for one reminder.
func renderVars(plan *domain.QuitPlan, phase *domain.Phase, date time.Time, day int, mission string) map[string]string {
	vars := map[string]string{
		"plan":    plan.Name,
		"date":    domain.DateOf(date).Format(domain.DateLayout),
		"day":     strconv.Itoa(day),
		"mission": mission,
	}
	if phase != nil {
		vars["phase"] = PhaseLabel(phase.Kind)
	}
	return vars
}

// PhaseLabel turns a phase kind into display text: PEAK_CRAVING -> "Peak craving".
func PhaseLabel(kind domain.PhaseKind) string {
	s := strings.ToLower(strings.ReplaceAll(string(kind), "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pickCurrent chooses the started phase whose window contains today, or the
// latest started phase flagged as lapsed when today is past its window.
func pickCurrent(phases []*domain.Phase, now time.Time) (*CurrentPhase, bool) {
	var latest *domain.Phase
	for _, p := range phases {
		if !p.Status.IsStarted() {
			continue
		}
		if p.Contains(now) {
			return &CurrentPhase{Phase: p}, true
		}
		if latest == nil || p.OrderIndex > latest.OrderIndex {
			latest = p
		}
	}
	if latest == nil {
		return nil, false
	}
	return &CurrentPhase{Phase: latest, Lapsed: latest.WindowElapsed(now)}, true
}

// nextPending returns the first pending phase after current in plan order.
func nextPending(phases []*domain.Phase, current *domain.Phase) *domain.Phase {
	for _, p := range phases {
		if p.OrderIndex > current.OrderIndex && p.Status == domain.PhasePendingStart {
			return p
		}
	}
	return nil
}

// realignPending keeps pending phases after from contiguous with it.
func realignPending(ctx context.Context, tx db.DBTX, phases []*domain.Phase, from *domain.Phase, now time.Time) error {
	repo := repository.NewSQLitePhaseRepo(tx)
	prev := from
	for _, p := range phases {
		if p.OrderIndex <= from.OrderIndex || p.Status != domain.PhasePendingStart {
			continue
		}
		anchor := domain.AddDays(prev.EndDate(), 1)
		if !p.AnchorStart.Equal(anchor) {
			p.AnchorStart = anchor
			p.UpdatedAt = now
			if err := repo.Update(ctx, p); err != nil {
				return err
			}
		}
		prev = p
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// noMetrics reports every metric as missing.
type noMetrics struct{}

func (noMetrics) Snapshot(_ context.Context, memberID, phaseID string) (domain.MetricsSnapshot, error) {
	return domain.NewMetricsSnapshot(memberID, phaseID, time.Time{}), nil
}

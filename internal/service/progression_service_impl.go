package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/alexanderramin/quitplan/internal/rule"
	"github.com/google/uuid"
)

type progressionService struct {
	*engine
	metrics  MetricsSource
	observer UseCaseObserver
}

func NewProgressionService(uow db.UnitOfWork, metrics MetricsSource, enqueuer ReminderEnqueuer, c clock.Clock, opts Options, observers ...UseCaseObserver) ProgressionService {
	if metrics == nil {
		metrics = noMetrics{}
	}
	return &progressionService{
		engine:   newEngine(uow, enqueuer, c, opts),
		metrics:  metrics,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *progressionService) RecordMissionCompletion(ctx context.Context, req RecordMissionRequest) (res *RecordMissionResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"mission_id": req.MissionID, "outcome": string(req.Outcome)}
	defer func() { observe(ctx, s.observer, "record-mission", startedAt, fields, err) }()

	var phaseID string
	res = &RecordMissionResult{}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		instances := repository.NewSQLiteMissionInstanceRepo(tx)
		mc, err := instances.GetContext(ctx, req.MissionID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		m := mc.Mission
		if err := m.Record(req.Outcome, req.Notes, req.Triggers, now); err != nil {
			return err
		}

		plan, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, mc.PlanID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanActive {
			return fmt.Errorf("mission %s belongs to a %s plan: %w", m.ID, plan.Status, domain.ErrInvalidState)
		}
		phase, err := repository.NewSQLitePhaseRepo(tx).GetByID(ctx, mc.PhaseID)
		if err != nil {
			return err
		}
		if phase.CurrentAttemptID == nil || *phase.CurrentAttemptID != mc.AttemptID {
			return fmt.Errorf("mission %s belongs to a superseded attempt: %w", m.ID, domain.ErrInvalidState)
		}
		if !phase.Status.IsOpen() {
			return fmt.Errorf("mission %s belongs to a %s phase: %w", m.ID, phase.Status, domain.ErrInvalidState)
		}

		ok, err := instances.RecordOutcome(ctx, m)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("mission %s already recorded: %w", m.ID, domain.ErrConflict)
		}

		acct, err := s.account(ctx, tx, plan.MemberID)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("%s %s on day %d", m.MissionCode, m.Status, mc.DayIndex)
		if _, err := s.event(ctx, tx, acct, plan, phase, domain.EventMissionRecorded, detail, "", "", nil); err != nil {
			return err
		}
		if m.Status.IsMissed() {
			vars := renderVars(plan, phase, mc.Date, mc.DayIndex, domain.CoalesceStr(m.Name, m.MissionCode))
			if _, err := s.event(ctx, tx, acct, plan, phase, domain.EventMissionMissed, detail,
				domain.TriggerMissionMissed, phase.Kind, vars); err != nil {
				return err
			}
		}
		res.Mission = m
		phaseID = phase.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Evaluation, err = s.EvaluatePhaseAdvancement(ctx, phaseID)
	if err != nil {
		return res, fmt.Errorf("mission recorded, evaluating phase %s: %w", phaseID, err)
	}
	fields["evaluation"] = string(res.Evaluation.Outcome)
	return res, nil
}

func (s *progressionService) EvaluatePhaseAdvancement(ctx context.Context, phaseID string) (ev *Evaluation, err error) {
	startedAt := time.Now()
	fields := map[string]any{"phase_id": phaseID}
	defer func() {
		if ev != nil {
			fields["outcome"] = string(ev.Outcome)
		}
		observe(ctx, s.observer, "evaluate-phase", startedAt, fields, err)
	}()

	var (
		plan  *domain.QuitPlan
		phase *domain.Phase
		conds []domain.SystemPhaseCondition
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		phase, err = repository.NewSQLitePhaseRepo(tx).GetByID(ctx, phaseID)
		if err != nil {
			return err
		}
		plan, err = repository.NewSQLitePlanRepo(tx).GetByID(ctx, phase.PlanID)
		if err != nil {
			return err
		}
		conds, err = repository.NewSQLiteConditionRepo(tx).ListByPhaseKind(ctx, phase.Kind)
		return err
	})
	if err != nil {
		return nil, err
	}

	ev = &Evaluation{PhaseID: phaseID, Outcome: OutcomeUnchanged}
	if plan.Status != domain.PlanActive || !phase.Status.IsOpen() {
		ev.Reason = fmt.Sprintf("phase is %s in a %s plan", phase.Status, plan.Status)
		return ev, nil
	}

	compiled, err := rule.CompileAll(conds)
	if err != nil {
		return nil, err
	}

	// The snapshot is read outside any transaction so a source backed by the
	// same database never waits on this service's own write.
	snapshot, err := s.metrics.Snapshot(ctx, plan.MemberID, phase.ID)
	if err != nil {
		return nil, fmt.Errorf("metrics snapshot for phase %s: %w", phase.ID, err)
	}
	ev.Result = rule.EvaluateAll(compiled, snapshot)
	s.warnMissing(ctx, phase, ev.Result)

	now := s.clock.Now()
	if !phase.WindowElapsed(now) {
		ev.Outcome = OutcomeWaiting
		ev.Reason = fmt.Sprintf("window ends %s; %s", phase.EndDate().Format(domain.DateLayout), ev.Result.Reason())
		return ev, nil
	}
	if !ev.Result.Satisfied && phase.Status == domain.PhaseRedoEligible {
		ev.Reason = phase.Reason
		return ev, nil
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		fresh, err := loadPlan(ctx, tx, plan.ID)
		if err != nil {
			return err
		}
		cur := findPhase(fresh.Phases, phase.ID)
		if fresh.Status != domain.PlanActive || cur == nil || cur.Status != phase.Status ||
			!sameAttempt(cur.CurrentAttemptID, phase.CurrentAttemptID) {
			ev.Reason = "phase changed during evaluation"
			return nil
		}
		acct, err := s.account(ctx, tx, fresh.MemberID)
		if err != nil {
			return err
		}
		if ev.Result.Satisfied {
			return s.advance(ctx, tx, acct, fresh, cur, ev, now)
		}
		return s.markRedo(ctx, tx, acct, fresh, cur, ev, now)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// advance closes cur and either starts the next pending phase or completes
// the plan.
func (s *progressionService) advance(ctx context.Context, tx db.DBTX, acct *domain.Account, plan *domain.QuitPlan, cur *domain.Phase, ev *Evaluation, now time.Time) error {
	phases := repository.NewSQLitePhaseRepo(tx)
	next := nextPending(plan.Phases, cur)
	last := next == nil

	prevStatus := cur.Status
	reason := "conditions met: " + ev.Result.Reason()
	if err := cur.MarkAdvanced(last, reason, now); err != nil {
		return err
	}
	ok, err := phases.UpdateIfStatus(ctx, cur, prevStatus)
	if err != nil {
		return err
	}
	if !ok {
		ev.Reason = "phase changed during evaluation"
		return nil
	}
	outcome := domain.AttemptAdvanced
	if last {
		outcome = domain.AttemptCompleted
	}
	if err := repository.NewSQLitePhaseAttemptRepo(tx).SetOutcome(ctx, *cur.CurrentAttemptID, outcome); err != nil {
		return err
	}
	ev.Reason = reason

	if last {
		if err := plan.Complete(now); err != nil {
			return err
		}
		if err := repository.NewSQLitePlanRepo(tx).Update(ctx, plan); err != nil {
			return err
		}
		vars := renderVars(plan, cur, now, cur.DurationDays, "")
		if _, err := s.event(ctx, tx, acct, plan, cur, domain.EventPlanCompleted, reason,
			domain.TriggerPlanCompleted, cur.Kind, vars); err != nil {
			return err
		}
		ev.Outcome = OutcomePlanCompleted
		return nil
	}

	if err := next.Start(uuid.New().String(), domain.AddDays(cur.EndDate(), 1), now); err != nil {
		return err
	}
	details, err := s.openWindow(ctx, tx, plan, next, nil)
	if err != nil {
		return err
	}
	if err := phases.Update(ctx, next); err != nil {
		return err
	}
	if err := realignPending(ctx, tx, plan.Phases, next, now); err != nil {
		return err
	}
	vars := renderVars(plan, next, next.AnchorStart, 1, "")
	detail := fmt.Sprintf("%s -> %s; %s", cur.Kind, next.Kind, reason)
	if _, err := s.event(ctx, tx, acct, plan, next, domain.EventPhaseAdvanced, detail,
		domain.TriggerPhaseAdvanced, next.Kind, vars); err != nil {
		return err
	}
	if _, err := s.scheduleMornings(ctx, tx, acct, plan, next, details); err != nil {
		return err
	}
	ev.Outcome = OutcomeAdvanced
	ev.NextPhaseID = &next.ID
	return nil
}

func (s *progressionService) markRedo(ctx context.Context, tx db.DBTX, acct *domain.Account, plan *domain.QuitPlan, cur *domain.Phase, ev *Evaluation, now time.Time) error {
	reason := "conditions not met: " + ev.Result.Reason()
	if err := cur.MarkRedoEligible(reason, now); err != nil {
		return err
	}
	ok, err := repository.NewSQLitePhaseRepo(tx).UpdateIfStatus(ctx, cur, domain.PhaseInProgress)
	if err != nil {
		return err
	}
	if !ok {
		ev.Reason = "phase changed during evaluation"
		return nil
	}
	vars := renderVars(plan, cur, cur.EndDate(), cur.DurationDays, "")
	if _, err := s.event(ctx, tx, acct, plan, cur, domain.EventRedoEligible, reason,
		domain.TriggerRedoEligible, cur.Kind, vars); err != nil {
		return err
	}
	ev.Outcome = OutcomeRedoEligible
	ev.Reason = reason
	return nil
}

func (s *progressionService) warnMissing(ctx context.Context, phase *domain.Phase, res rule.Combined) {
	for _, o := range res.Outcomes {
		for _, m := range o.Missing {
			s.logger.WarnContext(ctx, "condition references missing metric",
				"metric", string(m), "phase_id", phase.ID, "condition", o.Name)
		}
	}
}

func (s *progressionService) EvaluatePlan(ctx context.Context, planID string) (*Evaluation, error) {
	var current *CurrentPhase
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		current, err = currentPhase(ctx, tx, planID, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.EvaluatePhaseAdvancement(ctx, current.Phase.ID)
}

func (s *progressionService) RedoPhase(ctx context.Context, phaseID string, anchorStart time.Time) (phase *domain.Phase, err error) {
	startedAt := time.Now()
	fields := map[string]any{"phase_id": phaseID, "anchor_start": domain.DateOf(anchorStart).Format(domain.DateLayout)}
	defer func() { observe(ctx, s.observer, "redo-phase", startedAt, fields, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		phases := repository.NewSQLitePhaseRepo(tx)
		attempts := repository.NewSQLitePhaseAttemptRepo(tx)

		found, err := phases.GetByID(ctx, phaseID)
		if err != nil {
			return err
		}
		plan, err := loadPlan(ctx, tx, found.PlanID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanActive {
			return fmt.Errorf("phase %s belongs to a %s plan: %w", phaseID, plan.Status, domain.ErrInvalidState)
		}
		phase = findPhase(plan.Phases, phaseID)
		if phase.CurrentAttemptID == nil {
			return fmt.Errorf("phase %s has not started: %w", phaseID, domain.ErrInvalidState)
		}
		prev, err := attempts.GetByID(ctx, *phase.CurrentAttemptID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := phase.Restart(uuid.New().String(), anchorStart, now); err != nil {
			return err
		}
		if err := attempts.SetOutcome(ctx, prev.ID, domain.AttemptRedone); err != nil {
			return err
		}
		removed, err := repository.NewSQLitePhaseDetailRepo(tx).DeleteUngenerated(ctx, prev.ID)
		if err != nil {
			return err
		}
		fields["removed_days"] = removed

		details, err := s.openWindow(ctx, tx, plan, phase, prev)
		if err != nil {
			return err
		}
		ok, err := phases.UpdateIfStatus(ctx, phase, domain.PhaseRedoEligible)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("phase %s changed during redo: %w", phaseID, domain.ErrConflict)
		}
		if err := realignPending(ctx, tx, plan.Phases, phase, now); err != nil {
			return err
		}

		acct, err := s.account(ctx, tx, plan.MemberID)
		if err != nil {
			return err
		}
		vars := renderVars(plan, phase, phase.AnchorStart, 1, "")
		detail := fmt.Sprintf("attempt %d from %s", prev.AttemptNo+1, phase.AnchorStart.Format(domain.DateLayout))
		if _, err := s.event(ctx, tx, acct, plan, phase, domain.EventPhaseRestarted, detail,
			domain.TriggerPhaseRestarted, phase.Kind, vars); err != nil {
			return err
		}
		_, err = s.scheduleMornings(ctx, tx, acct, plan, phase, details)
		return err
	})
	if err != nil {
		return nil, err
	}
	return phase, nil
}

func (s *progressionService) GetMissionsForToday(ctx context.Context, planID string) (*TodayMissions, error) {
	var out *TodayMissions
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plan, err := loadPlan(ctx, tx, planID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanActive {
			return fmt.Errorf("plan %s is %s: %w", planID, plan.Status, domain.ErrInvalidState)
		}
		now := s.clock.Now()
		current, ok := pickCurrent(plan.Phases, now)
		if !ok {
			return fmt.Errorf("plan %s has no started phase: %w", planID, domain.ErrInvalidState)
		}
		phase := current.Phase
		out = &TodayMissions{Plan: plan, Phase: phase, Lapsed: current.Lapsed}
		if current.Lapsed || !phase.Contains(now) || phase.CurrentAttemptID == nil {
			return nil
		}

		detail, err := repository.NewSQLitePhaseDetailRepo(tx).GetByAttemptDay(ctx, *phase.CurrentAttemptID, phase.DayIndex(now))
		if err != nil {
			return err
		}
		missions, err := s.generator.EnsureDay(ctx, tx, detail, plan, phase)
		if err != nil {
			return err
		}
		out.Detail = detail
		out.Missions = missions
		if phase.IsLastDay(now) && phase.Status == domain.PhaseInProgress {
			out.Popup = true
			out.PopupMessage = fmt.Sprintf("Today is the last day of %s. Finish your missions so the phase can advance.", PhaseLabel(phase.Kind))
		}
		return nil
	})
	return out, err
}

func (s *progressionService) ListMissionHistory(ctx context.Context, phaseID string) ([]MissionHistoryEntry, error) {
	var history []MissionHistoryEntry
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLitePhaseRepo(tx).GetByID(ctx, phaseID); err != nil {
			return err
		}
		var err error
		history, err = repository.NewSQLiteMissionInstanceRepo(tx).ListHistoryByPhase(ctx, phaseID)
		return err
	})
	return history, err
}

func (s *progressionService) ListEvents(ctx context.Context, planID string) ([]*domain.PlanEvent, error) {
	var events []*domain.PlanEvent
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, planID); err != nil {
			return err
		}
		var err error
		events, err = repository.NewSQLiteEventRepo(tx).ListByPlan(ctx, planID)
		return err
	})
	return events, err
}

func (s *progressionService) ListReminders(ctx context.Context, planID string) ([]*domain.ReminderEntry, error) {
	var entries []*domain.ReminderEntry
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, planID); err != nil {
			return err
		}
		var err error
		entries, err = repository.NewSQLiteReminderQueueRepo(tx).ListByPlan(ctx, planID)
		return err
	})
	return entries, err
}

func findPhase(phases []*domain.Phase, id string) *domain.Phase {
	for _, p := range phases {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func sameAttempt(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

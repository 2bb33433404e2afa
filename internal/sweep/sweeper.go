// Package sweep delivers due reminders and periodically re-evaluates active
// plans.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/notify"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrSweepInProgress is returned by RunOnce while another sweep holds the lock.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Failure reasons stored on FAILED entries that were never handed to the dispatcher.
const (
	ReasonNoTarget     = "no_target"
	ReasonPlanInactive = "plan_inactive"
)

// Options tunes a Sweeper.
type Options struct {
	Interval        time.Duration
	DispatchTimeout time.Duration
	MaxConcurrent   int
	// RatePerSecond caps dispatch starts. Zero or less is unlimited.
	RatePerSecond float64
	BatchLimit    int
	// ClaimTTL bounds how long selected entries stay reserved for this
	// sweeper. A sweeper that dies mid-sweep loses its claims after it.
	ClaimTTL time.Duration
	Title    string
	Logger        *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Interval:        60 * time.Second,
		DispatchTimeout: 10 * time.Second,
		MaxConcurrent:   4,
		RatePerSecond:   20,
		BatchLimit:      500,
		ClaimTTL:        5 * time.Minute,
		Title:           "SmartQuit",
	}
}

// Report counts the outcome of one sweep. Skipped entries were settled by
// someone else between selection and commit.
type Report struct {
	Selected int
	Sent     int
	Failed   int
	Skipped  int
}

// Sweeper moves due PENDING reminders to SENT or FAILED.
type Sweeper struct {
	uow        db.UnitOfWork
	dispatcher notify.Dispatcher
	clock      clock.Clock
	opts       Options
	logger     *slog.Logger
	sem        *semaphore.Weighted
	limiter    *rate.Limiter

	mu sync.Mutex
}

func NewSweeper(uow db.UnitOfWork, dispatcher notify.Dispatcher, c clock.Clock, opts Options) *Sweeper {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = def.DispatchTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = def.MaxConcurrent
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = def.BatchLimit
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = def.ClaimTTL
	}
	if opts.Title == "" {
		opts.Title = def.Title
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Sweeper{
		uow:        uow,
		dispatcher: dispatcher,
		clock:      clock.OrSystem(c),
		opts:       opts,
		logger:     logger,
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		limiter:    rate.NewLimiter(limit, opts.MaxConcurrent),
	}
}

// job is a selected entry with its delivery context resolved.
type job struct {
	entry     *domain.ReminderEntry
	target    string
	abandoned bool
}

// RunOnce performs one sweep. Selected entries are claimed in the selection
// transaction, so sweepers sharing the database never dispatch the same entry
// while the claim is live. Each selected entry is settled at most once and all
// results are committed together. Entries whose dispatch never started because
// ctx ended are released and stay PENDING for the next sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	if !s.mu.TryLock() {
		return Report{}, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	now := s.clock.Now()
	token := uuid.New().String()
	jobs, err := s.selectDue(ctx, token, now)
	if err != nil {
		return Report{}, err
	}
	report := Report{Selected: len(jobs)}
	if len(jobs) == 0 {
		return report, nil
	}

	settled := s.dispatchAll(ctx, jobs)

	// The commit must not be lost to a cancelled parent once sends happened.
	commitCtx := context.WithoutCancel(ctx)
	err = s.uow.WithinTx(commitCtx, func(ctx context.Context, tx db.DBTX) error {
		queue := repository.NewSQLiteReminderQueueRepo(tx)
		for _, e := range settled {
			ok, err := queue.MarkResult(ctx, e)
			if err != nil {
				return err
			}
			switch {
			case !ok:
				report.Skipped++
			case e.Status == domain.ReminderSent:
				report.Sent++
			default:
				report.Failed++
			}
		}
		return queue.ReleaseClaims(ctx, token)
	})
	if err != nil {
		return Report{Selected: len(jobs)}, fmt.Errorf("committing sweep results: %w", err)
	}

	s.logger.InfoContext(ctx, "reminder sweep",
		"selected", report.Selected,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

func (s *Sweeper) selectDue(ctx context.Context, token string, now time.Time) ([]job, error) {
	var jobs []job
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		queue := repository.NewSQLiteReminderQueueRepo(tx)
		due, err := queue.ClaimDue(ctx, token, now, now.Add(-s.opts.ClaimTTL), s.opts.BatchLimit)
		if err != nil {
			return err
		}
		accounts := repository.NewSQLiteAccountRepo(tx)
		plans := repository.NewSQLitePlanRepo(tx)
		abandoned := map[string]bool{}
		targets := map[string]string{}

		for _, e := range due {
			// A completed plan still gets its closing reminders; only an
			// abandoned or missing plan stops delivery.
			isAbandoned, seen := abandoned[e.PlanID]
			if !seen {
				plan, err := plans.GetByID(ctx, e.PlanID)
				switch {
				case err == nil:
					isAbandoned = plan.Status == domain.PlanAbandoned
				case errors.Is(err, domain.ErrNotFound):
					isAbandoned = true
				default:
					return err
				}
				abandoned[e.PlanID] = isAbandoned
			}

			target, seen := targets[e.AccountID]
			if !seen {
				acct, err := accounts.GetByID(ctx, e.AccountID)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				if err == nil && acct.HasTarget() {
					target = *acct.PushToken
				}
				targets[e.AccountID] = target
			}
			jobs = append(jobs, job{entry: e, target: target, abandoned: isAbandoned})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("selecting due reminders: %w", err)
	}
	return jobs, nil
}

// dispatchAll settles every job it can start and returns the settled entries.
func (s *Sweeper) dispatchAll(ctx context.Context, jobs []job) []*domain.ReminderEntry {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled = make([]*domain.ReminderEntry, 0, len(jobs))
	)
	record := func(e *domain.ReminderEntry) {
		mu.Lock()
		settled = append(settled, e)
		mu.Unlock()
	}

	for _, j := range jobs {
		switch {
		case j.abandoned:
			s.fail(j.entry, ReasonPlanInactive)
			record(j.entry)
			continue
		case j.target == "":
			s.fail(j.entry, ReasonNoTarget)
			record(j.entry)
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			defer s.sem.Release(1)
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			s.send(ctx, j)
			record(j.entry)
		}(j)
	}
	wg.Wait()
	return settled
}

func (s *Sweeper) send(ctx context.Context, j job) {
	sendCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	defer cancel()

	e := j.entry
	err := s.dispatcher.Send(sendCtx, notify.Message{
		ReminderID:   e.ID,
		AccountID:    e.AccountID,
		Target:       j.target,
		Title:        s.opts.Title,
		Body:         e.Content,
		ReminderType: e.ReminderType,
		TriggerCode:  e.TriggerCode,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: no response within %s", domain.ErrDispatch, s.opts.DispatchTimeout)
		}
		s.logger.WarnContext(ctx, "reminder dispatch failed", "reminder_id", e.ID, "error", err.Error())
		s.fail(e, err.Error())
		return
	}
	if err := e.MarkSent(s.clock.Now()); err != nil {
		s.logger.ErrorContext(ctx, "marking reminder sent", "reminder_id", e.ID, "error", err.Error())
	}
}

func (s *Sweeper) fail(e *domain.ReminderEntry, reason string) {
	if err := e.MarkFailed(reason, s.clock.Now()); err != nil {
		s.logger.Error("marking reminder failed", "reminder_id", e.ID, "error", err.Error())
	}
}

// Run sweeps immediately and then on every tick until ctx ends. A tick that
// finds a sweep still running is dropped.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			switch {
			case errors.Is(err, ErrSweepInProgress):
				s.logger.DebugContext(ctx, "sweep tick dropped")
			case ctx.Err() != nil:
				return nil
			default:
				s.logger.ErrorContext(ctx, "reminder sweep failed", "error", err.Error())
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Package metrics computes member metrics snapshots from diary logs and
// mission progress.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/generation"
	"github.com/alexanderramin/quitplan/internal/repository"
)

// DiarySource aggregates diary logs and mission counts over the current
// attempt window of a phase, bounded by today.
type DiarySource struct {
	db    db.DBTX
	clock clock.Clock
}

// NewDiarySource creates a source reading from database. A nil clock uses the
// system clock.
func NewDiarySource(database db.DBTX, c clock.Clock) *DiarySource {
	return &DiarySource{db: database, clock: clock.OrSystem(c)}
}

func (s *DiarySource) Snapshot(ctx context.Context, memberID, phaseID string) (domain.MetricsSnapshot, error) {
	now := s.clock.Now()
	snap := domain.NewMetricsSnapshot(memberID, phaseID, now)

	phase, err := repository.NewSQLitePhaseRepo(s.db).GetByID(ctx, phaseID)
	if err != nil {
		return snap, err
	}
	plan, err := repository.NewSQLitePlanRepo(s.db).GetByID(ctx, phase.PlanID)
	if err != nil {
		return snap, err
	}

	through := domain.DateOf(now)
	if end := phase.EndDate(); through.After(end) {
		through = end
	}
	throughDay := domain.DaysBetween(phase.AnchorStart, through) + 1

	progress, err := s.progress(ctx, plan, phase, through, throughDay)
	if err != nil {
		return snap, err
	}
	snap.Set(domain.MetricProgress, progress)

	diary := repository.NewSQLiteDiaryRepo(s.db)
	if first, err := diary.First(ctx, memberID); err == nil {
		if first.CigarettesSmoked != nil {
			snap.Set(domain.MetricInitialCigarettes, float64(*first.CigarettesSmoked))
		}
	} else if !isNotFound(err) {
		return snap, err
	}

	if throughDay <= 0 {
		return snap, nil
	}
	logs, err := diary.ListByMemberRange(ctx, memberID, phase.AnchorStart, through)
	if err != nil {
		return snap, err
	}
	Aggregate(&snap, logs)
	return snap, nil
}

func (s *DiarySource) progress(ctx context.Context, plan *domain.QuitPlan, phase *domain.Phase, through time.Time, throughDay int) (float64, error) {
	if phase.CurrentAttemptID == nil || throughDay <= 0 {
		return 0, nil
	}
	catalog, err := repository.NewSQLiteMissionRepo(s.db).ListByPhaseKind(ctx, phase.Kind)
	if err != nil {
		return 0, fmt.Errorf("loading mission catalog: %w", err)
	}
	expected := generation.ExpectedCountThrough(catalog, phase.Kind, phase.DurationDays, throughDay, plan.UseNRT)
	if expected == 0 {
		return 100, nil
	}
	counts, err := repository.NewSQLiteMissionInstanceRepo(s.db).CountByAttempt(ctx, *phase.CurrentAttemptID, through)
	if err != nil {
		return 0, err
	}
	return float64(counts.Completed) / float64(expected) * 100, nil
}

// Aggregate sets the diary-derived metrics of snap from logs ordered by
// date. Metrics without any reported value stay absent.
func Aggregate(snap *domain.MetricsSnapshot, logs []*domain.DiaryLog) {
	if len(logs) == 0 {
		return
	}

	var craving, mood, anxiety, confidence mean
	var cigarettes []float64
	nrt := 0.0
	for _, l := range logs {
		craving.add(l.CravingLevel)
		mood.add(l.Mood)
		anxiety.add(l.Anxiety)
		confidence.add(l.Confidence)
		if l.CigarettesSmoked != nil {
			cigarettes = append(cigarettes, float64(*l.CigarettesSmoked))
		}
		if l.UsedNRT {
			nrt = 1
		}
	}
	craving.set(snap, domain.MetricCravingAvg)
	mood.set(snap, domain.MetricMoodAvg)
	anxiety.set(snap, domain.MetricAnxietyAvg)
	confidence.set(snap, domain.MetricConfidenceAvg)
	snap.Set(domain.MetricNRTUsed, nrt)

	if len(cigarettes) > 0 {
		total := sum(cigarettes)
		snap.Set(domain.MetricCigarettesTotal, total)
		snap.Set(domain.MetricCigarettesAvg, total/float64(len(cigarettes)))
		snap.Set(domain.MetricSmokeFreeDays, float64(smokeFreeStreak(logs)))
	}
	if n := len(cigarettes); n >= 2 {
		half := n / 2
		first := sum(cigarettes[:half]) / float64(half)
		last := sum(cigarettes[half:]) / float64(n-half)
		snap.Set(domain.MetricCigarettesTrend, last-first)
	}
}

// smokeFreeStreak counts consecutive calendar days with zero cigarettes,
// walking back from the latest log. A gap or an unreported day ends it.
func smokeFreeStreak(logs []*domain.DiaryLog) int {
	streak := 0
	var prev time.Time
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		if l.CigarettesSmoked == nil || *l.CigarettesSmoked != 0 {
			break
		}
		if streak > 0 && domain.DaysBetween(l.LogDate, prev) != 1 {
			break
		}
		streak++
		prev = l.LogDate
	}
	return streak
}

type mean struct {
	total float64
	n     int
}

func (m *mean) add(v *float64) {
	if v != nil {
		m.total += *v
		m.n++
	}
}

func (m mean) set(snap *domain.MetricsSnapshot, metric domain.Metric) {
	if m.n > 0 {
		snap.Set(metric, m.total/float64(m.n))
	}
}

func sum(vs []float64) float64 {
	t := 0.0
	for _, v := range vs {
		t += v
	}
	return t
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

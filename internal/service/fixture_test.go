package service

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/alexanderramin/quitplan/internal/testutil"
	"github.com/stretchr/testify/require"
)

// stubMetrics returns the same values for every phase.
type stubMetrics struct {
	mu     sync.Mutex
	values map[domain.Metric]float64
	calls  int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{values: map[domain.Metric]float64{}}
}

func (m *stubMetrics) Set(metric domain.Metric, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[metric] = v
}

func (m *stubMetrics) Snapshot(_ context.Context, memberID, phaseID string) (domain.MetricsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	snap := domain.NewMetricsSnapshot(memberID, phaseID, testutil.Epoch)
	for k, v := range m.values {
		snap.Set(k, v)
	}
	return snap, nil
}

type testEnv struct {
	db          *sql.DB
	clock       *testutil.ManualClock
	metrics     *stubMetrics
	logs        *bytes.Buffer
	plans       PlanService
	progression ProgressionService
	diary       DiaryService
}

// newEnv wires the services over a seeded in-memory database at testutil.Epoch.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	testutil.SeedCatalog(t, database)
	return newEnvWithDB(t, database, nil)
}

func newEnvWithDB(t *testing.T, database *sql.DB, metrics MetricsSource) *testEnv {
	t.Helper()
	env := &testEnv{
		db:      database,
		clock:   testutil.NewManualClock(testutil.Epoch),
		metrics: newStubMetrics(),
		logs:    &bytes.Buffer{},
	}
	if metrics == nil {
		metrics = env.metrics
	}
	uow := testutil.NewTestUoW(database)
	opts := Options{
		MorningHour: DefaultMorningHour,
		Logger:      slog.New(slog.NewTextHandler(env.logs, nil)),
	}
	enqueuer := NewReminderEnqueuer(env.clock)
	env.plans = NewPlanService(uow, enqueuer, env.clock, opts)
	env.progression = NewProgressionService(uow, metrics, enqueuer, env.clock, opts)
	env.diary = NewDiaryService(uow, env.progression, env.clock)
	return env
}

func (e *testEnv) createPlan(t *testing.T) *domain.QuitPlan {
	t.Helper()
	plan, err := e.plans.CreatePlan(context.Background(), CreatePlanRequest{
		MemberID:  testutil.NewMemberID(),
		Name:      "Quit",
		StartDate: e.clock.Now(),
	})
	require.NoError(t, err)
	return plan
}

func (e *testEnv) phase(t *testing.T, id string) *domain.Phase {
	t.Helper()
	p, err := repository.NewSQLitePhaseRepo(e.db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (e *testEnv) events(t *testing.T, planID string) []*domain.PlanEvent {
	t.Helper()
	events, err := e.progression.ListEvents(context.Background(), planID)
	require.NoError(t, err)
	return events
}

func (e *testEnv) reminders(t *testing.T, planID string) []*domain.ReminderEntry {
	t.Helper()
	entries, err := e.progression.ListReminders(context.Background(), planID)
	require.NoError(t, err)
	return entries
}

// todayMissions returns the ids of today's missions.
func (e *testEnv) todayMissions(t *testing.T, planID string) []string {
	t.Helper()
	today, err := e.progression.GetMissionsForToday(context.Background(), planID)
	require.NoError(t, err)
	ids := make([]string, 0, len(today.Missions))
	for _, m := range today.Missions {
		ids = append(ids, m.ID)
	}
	return ids
}

// completeWindow completes every mission of each day of the current phase,
// leaving the clock on the last day.
func (e *testEnv) completeWindow(t *testing.T, planID string, days int) {
	t.Helper()
	for day := 1; day <= days; day++ {
		if day > 1 {
			e.clock.AdvanceDays(1)
		}
		for _, id := range e.todayMissions(t, planID) {
			_, err := e.progression.RecordMissionCompletion(context.Background(), RecordMissionRequest{
				MissionID: id,
				Outcome:   domain.MissionCompleted,
			})
			require.NoError(t, err)
		}
	}
}

func eventKinds(events []*domain.PlanEvent) []domain.EventKind {
	kinds := make([]domain.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func byTrigger(entries []*domain.ReminderEntry, trigger domain.TriggerCode) []*domain.ReminderEntry {
	var out []*domain.ReminderEntry
	for _, e := range entries {
		if e.TriggerCode == trigger {
			out = append(out, e)
		}
	}
	return out
}

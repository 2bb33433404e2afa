package metrics

import (
	"context"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/alexanderramin/quitplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, s domain.MetricsSnapshot, m domain.Metric) float64 {
	t.Helper()
	v, ok := s.Get(m)
	require.True(t, ok, "metric %s missing", m)
	return v
}

func TestAggregate(t *testing.T) {
	member := testutil.NewMemberID()
	day := testutil.Epoch
	logs := []*domain.DiaryLog{
		testutil.NewTestDiaryLog(member, day, testutil.WithCigarettes(5), testutil.WithCraving(6)),
		testutil.NewTestDiaryLog(member, day.AddDate(0, 0, 1), testutil.WithCigarettes(3), testutil.WithCraving(4), testutil.WithMood(7)),
		testutil.NewTestDiaryLog(member, day.AddDate(0, 0, 2), testutil.WithCigarettes(0)),
		testutil.NewTestDiaryLog(member, day.AddDate(0, 0, 3), testutil.WithCigarettes(0), testutil.WithNRT()),
	}

	snap := domain.NewMetricsSnapshot(member, "ph", day)
	Aggregate(&snap, logs)

	assert.Equal(t, 8.0, value(t, snap, domain.MetricCigarettesTotal))
	assert.Equal(t, 2.0, value(t, snap, domain.MetricCigarettesAvg))
	assert.Equal(t, 2.0, value(t, snap, domain.MetricSmokeFreeDays))
	assert.Equal(t, -4.0, value(t, snap, domain.MetricCigarettesTrend))
	assert.Equal(t, 5.0, value(t, snap, domain.MetricCravingAvg))
	assert.Equal(t, 7.0, value(t, snap, domain.MetricMoodAvg))
	assert.Equal(t, 1.0, value(t, snap, domain.MetricNRTUsed))

	_, ok := snap.Get(domain.MetricAnxietyAvg)
	assert.False(t, ok, "unreported values stay missing")
	_, ok = snap.Get(domain.MetricConfidenceAvg)
	assert.False(t, ok)
}

func TestAggregate_NoLogsLeavesSnapshotEmpty(t *testing.T) {
	snap := domain.NewMetricsSnapshot("m", "ph", testutil.Epoch)
	Aggregate(&snap, nil)
	assert.Empty(t, snap.Names())
}

func TestAggregate_SingleLogHasNoTrend(t *testing.T) {
	snap := domain.NewMetricsSnapshot("m", "ph", testutil.Epoch)
	Aggregate(&snap, []*domain.DiaryLog{testutil.NewTestDiaryLog("m", testutil.Epoch, testutil.WithCigarettes(4))})

	_, ok := snap.Get(domain.MetricCigarettesTrend)
	assert.False(t, ok)
	assert.Equal(t, 0.0, value(t, snap, domain.MetricNRTUsed))
	assert.Equal(t, 0.0, value(t, snap, domain.MetricSmokeFreeDays))
}

func TestSmokeFreeStreak_StopsAtGap(t *testing.T) {
	day := testutil.Epoch
	logs := []*domain.DiaryLog{
		testutil.NewTestDiaryLog("m", day, testutil.WithCigarettes(0)),
		testutil.NewTestDiaryLog("m", day.AddDate(0, 0, 2), testutil.WithCigarettes(0)),
		testutil.NewTestDiaryLog("m", day.AddDate(0, 0, 3), testutil.WithCigarettes(0)),
	}
	assert.Equal(t, 2, smokeFreeStreak(logs))

	logs = append(logs, testutil.NewTestDiaryLog("m", day.AddDate(0, 0, 4), testutil.WithCraving(3)))
	assert.Equal(t, 0, smokeFreeStreak(logs), "an unreported latest day ends the streak")
}

func TestDiarySource_Snapshot(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	testutil.SeedCatalog(t, database)
	clk := testutil.NewManualClock(testutil.Epoch)
	uow := testutil.NewTestUoW(database)
	source := NewDiarySource(database, clk)

	plans := service.NewPlanService(uow, nil, clk, service.DefaultOptions())
	member := testutil.NewMemberID()
	plan, err := plans.CreatePlan(ctx, service.CreatePlanRequest{MemberID: member, Name: "Quit", StartDate: testutil.Epoch})
	require.NoError(t, err)
	phase := plan.Phases[0]

	snap, err := source.Snapshot(ctx, member, phase.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, value(t, snap, domain.MetricProgress))
	assert.Equal(t, []domain.Metric{domain.MetricProgress}, snap.Names(), "no diary data yet")

	detail, err := repository.NewSQLitePhaseDetailRepo(database).GetByAttemptDay(ctx, *phase.CurrentAttemptID, 1)
	require.NoError(t, err)
	missions, err := repository.NewSQLiteMissionInstanceRepo(database).ListByDetail(ctx, detail.ID)
	require.NoError(t, err)
	require.Len(t, missions, 2)
	require.NoError(t, missions[0].Record(domain.MissionCompleted, "", nil, clk.Now()))
	ok, err := repository.NewSQLiteMissionInstanceRepo(database).RecordOutcome(ctx, missions[0])
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repository.NewSQLiteDiaryRepo(database).Upsert(ctx,
		testutil.NewTestDiaryLog(member, testutil.Epoch, testutil.WithCigarettes(10))))

	snap, err = source.Snapshot(ctx, member, phase.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, value(t, snap, domain.MetricProgress))
	assert.Equal(t, 10.0, value(t, snap, domain.MetricInitialCigarettes))
	assert.Equal(t, 10.0, value(t, snap, domain.MetricCigarettesTotal))
	assert.Equal(t, 0.0, value(t, snap, domain.MetricNRTUsed))

	// Past the window the expectation covers all three days.
	clk.AdvanceDays(5)
	snap, err = source.Snapshot(ctx, member, phase.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/6.0, value(t, snap, domain.MetricProgress), 1e-9)
}

func TestDiarySource_UnknownPhase(t *testing.T) {
	database := testutil.NewTestDB(t)
	_, err := NewDiarySource(database, nil).Snapshot(context.Background(), "m", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

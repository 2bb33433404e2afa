package repository_test

import (
	"context"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/alexanderramin/quitplan/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseRepo_ListByPlanInOrder(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	plan := testutil.NewTestPlan(testutil.NewMemberID())
	require.NoError(t, repository.NewSQLitePlanRepo(database).Create(ctx, plan))

	repo := repository.NewSQLitePhaseRepo(database)
	onset := testutil.NewTestPhase(plan.ID, domain.PhaseOnset, testutil.WithOrderIndex(1))
	prep := testutil.NewTestPhase(plan.ID, domain.PhasePreparation, testutil.WithOrderIndex(0))
	require.NoError(t, repo.Create(ctx, onset))
	require.NoError(t, repo.Create(ctx, prep))

	phases, err := repo.ListByPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, domain.PhasePreparation, phases[0].Kind)
	assert.Equal(t, domain.PhaseOnset, phases[1].Kind)

	dup := testutil.NewTestPhase(plan.ID, domain.PhasePeakCraving, testutil.WithOrderIndex(1))
	assert.Error(t, repo.Create(ctx, dup), "order index is unique within a plan")
}

func TestPhaseRepo_UpdateIfStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	chain := seedPlanChain(t, database)
	repo := repository.NewSQLitePhaseRepo(database)

	stale := *chain.phase
	require.NoError(t, chain.phase.MarkRedoEligible("progress below 80", testutil.Epoch))
	ok, err := repo.UpdateIfStatus(ctx, chain.phase, domain.PhaseInProgress)
	require.NoError(t, err)
	assert.True(t, ok)

	stale.Reason = "lost race"
	ok, err = repo.UpdateIfStatus(ctx, &stale, domain.PhaseInProgress)
	require.NoError(t, err)
	assert.False(t, ok, "the stored status moved on")

	got, err := repo.GetByID(ctx, chain.phase.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRedoEligible, got.Status)
	assert.Equal(t, "progress below 80", got.Reason)
	require.NotNil(t, got.CurrentAttemptID)
	assert.Equal(t, chain.attempt.ID, *got.CurrentAttemptID)
}

func TestPhaseAttemptRepo_Chain(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	chain := seedPlanChain(t, database)
	repo := repository.NewSQLitePhaseAttemptRepo(database)

	second := &domain.PhaseAttempt{
		ID:                  uuid.New().String(),
		PhaseID:             chain.phase.ID,
		AttemptNo:           2,
		AnchorStart:         domain.AddDays(day1, 3),
		SupersedesAttemptID: &chain.attempt.ID,
		Outcome:             domain.AttemptActive,
		CreatedAt:           testutil.Epoch,
	}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.SetOutcome(ctx, chain.attempt.ID, domain.AttemptRedone))

	attempts, err := repo.ListByPhase(ctx, chain.phase.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.AttemptRedone, attempts[0].Outcome)
	assert.Nil(t, attempts[0].SupersedesAttemptID)
	require.NotNil(t, attempts[1].SupersedesAttemptID)
	assert.Equal(t, chain.attempt.ID, *attempts[1].SupersedesAttemptID)

	dup := *second
	dup.ID = uuid.New().String()
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrConflict)

	assert.ErrorIs(t, repo.SetOutcome(ctx, uuid.New().String(), domain.AttemptAdvanced), domain.ErrNotFound)
}

func TestPhaseDetailRepo_DeleteUngeneratedKeepsHistory(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	chain := seedPlanChain(t, database)
	details := repository.NewSQLitePhaseDetailRepo(database)

	require.NoError(t, details.CreateBatch(ctx, []*domain.PhaseDetail{
		newDetail(chain.phase, chain.attempt, 2),
		newDetail(chain.phase, chain.attempt, 3),
	}))
	require.NoError(t, repository.NewSQLiteMissionInstanceRepo(database).CreateBatch(ctx, []*domain.PhaseDetailMission{
		newInstance(chain.detail.ID, "M1", 0),
	}))

	n, err := details.DeleteUngenerated(ctx, chain.attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := details.ListByAttempt(ctx, chain.attempt.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, 1, left[0].DayIndex)
	assert.Equal(t, "Day 1", left[0].Name)

	got, err := details.GetByAttemptDay(ctx, chain.attempt.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, chain.detail.ID, got.ID)

	_, err = details.GetByAttemptDay(ctx, chain.attempt.ID, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMissionInstanceRepo_RecordOutcomeOnce(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	chain := seedPlanChain(t, database)
	testutil.SeedMissions(t, database, testutil.NewTestMission("M1", domain.PhasePreparation))
	repo := repository.NewSQLiteMissionInstanceRepo(database)

	inst := newInstance(chain.detail.ID, "M1", 0)
	require.NoError(t, repo.CreateBatch(ctx, []*domain.PhaseDetailMission{inst}))
	require.NoError(t, repo.CreateBatch(ctx, []*domain.PhaseDetailMission{inst}), "re-materialising converges")

	require.NoError(t, inst.Record(domain.MissionFailed, "rough day", []string{"coffee", "stress"}, testutil.Epoch))
	ok, err := repo.RecordOutcome(ctx, inst)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RecordOutcome(ctx, inst)
	require.NoError(t, err)
	assert.False(t, ok, "a terminal instance is not overwritten")

	got, err := repo.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MissionFailed, got.Status)
	assert.Equal(t, []string{"coffee", "stress"}, got.Triggers)
	assert.Equal(t, "Mission M1", got.Name, "display fields come from the catalog")
	require.NotNil(t, got.CompletedAt)

	mc, err := repo.GetContext(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, chain.plan.ID, mc.PlanID)
	assert.Equal(t, chain.phase.ID, mc.PhaseID)
	assert.Equal(t, chain.attempt.ID, mc.AttemptID)
	assert.Equal(t, 1, mc.DayIndex)
}

func TestMissionInstanceRepo_CountsAndHistory(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	chain := seedPlanChain(t, database)
	repo := repository.NewSQLiteMissionInstanceRepo(database)

	day2 := newDetail(chain.phase, chain.attempt, 2)
	require.NoError(t, repository.NewSQLitePhaseDetailRepo(database).CreateBatch(ctx, []*domain.PhaseDetail{day2}))

	done := newInstance(chain.detail.ID, "M1", 0)
	skipped := newInstance(chain.detail.ID, "M2", 1)
	later := newInstance(day2.ID, "M1", 0)
	require.NoError(t, repo.CreateBatch(ctx, []*domain.PhaseDetailMission{done, skipped, later}))
	require.NoError(t, done.Record(domain.MissionCompleted, "", nil, testutil.Epoch))
	require.NoError(t, skipped.Record(domain.MissionSkipped, "", nil, testutil.Epoch))
	for _, m := range []*domain.PhaseDetailMission{done, skipped} {
		_, err := repo.RecordOutcome(ctx, m)
		require.NoError(t, err)
	}

	counts, err := repo.CountByAttempt(ctx, chain.attempt.ID, day1)
	require.NoError(t, err)
	assert.Equal(t, repository.MissionCounts{Completed: 1, Missed: 1, Total: 2}, counts)

	counts, err = repo.CountByAttempt(ctx, chain.attempt.ID, domain.AddDays(day1, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)

	history, err := repo.ListHistoryByPhase(ctx, chain.phase.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "M1", history[0].Mission.MissionCode)
	assert.Equal(t, "M2", history[1].Mission.MissionCode)
	assert.Equal(t, 2, history[2].DayIndex)
	assert.Equal(t, 1, history[2].AttemptNo)
	assert.Equal(t, "M1", history[2].Mission.Name, "an instance without a catalog entry shows its code")
}

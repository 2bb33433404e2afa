package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanLifecycle(t *testing.T) {
	p := &QuitPlan{ID: "p1", Status: PlanDraft}
	require.NoError(t, p.Activate(testNow))
	assert.Equal(t, PlanActive, p.Status)
	assert.ErrorIs(t, p.Activate(testNow), ErrInvalidState)

	require.NoError(t, p.Abandon(testNow))
	assert.Equal(t, PlanAbandoned, p.Status)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, DateOf(testNow), *p.EndDate)

	assert.ErrorIs(t, p.Abandon(testNow), ErrInvalidState, "abandoning twice is rejected")
	assert.ErrorIs(t, p.Complete(testNow), ErrInvalidState)
}

func TestPlanComplete(t *testing.T) {
	p := &QuitPlan{ID: "p1", Status: PlanActive}
	require.NoError(t, p.Complete(testNow))
	assert.Equal(t, PlanCompleted, p.Status)
	assert.True(t, p.Status.IsTerminal())
	assert.ErrorIs(t, p.Abandon(testNow), ErrInvalidState)
}

func TestMissionRecord(t *testing.T) {
	m := &PhaseDetailMission{ID: "m1", Status: MissionPending}
	require.NoError(t, m.Record(MissionCompleted, "went well", []string{"coffee"}, testNow))
	assert.Equal(t, MissionCompleted, m.Status)
	assert.Equal(t, []string{"coffee"}, m.Triggers)
	require.NotNil(t, m.CompletedAt)

	later := testNow.Add(time.Hour)
	err := m.Record(MissionFailed, "changed my mind", nil, later)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, MissionCompleted, m.Status, "terminal outcome is never overwritten")
	assert.Equal(t, testNow, *m.CompletedAt)
}

func TestMissionRecord_InvalidOutcome(t *testing.T) {
	m := &PhaseDetailMission{ID: "m1", Status: MissionPending}
	err := m.Record(MissionPending, "", nil, testNow)
	require.Error(t, err)
	assert.Equal(t, MissionPending, m.Status)
}

func TestMissionAppliesTo(t *testing.T) {
	m := &Mission{Code: "PREP_LIST", PhaseKind: PhasePreparation, DayFrom: 2, DayTo: 3}
	assert.False(t, m.AppliesTo(PhasePreparation, 1, false))
	assert.True(t, m.AppliesTo(PhasePreparation, 2, false))
	assert.True(t, m.AppliesTo(PhasePreparation, 3, false))
	assert.False(t, m.AppliesTo(PhasePreparation, 4, false))
	assert.False(t, m.AppliesTo(PhaseOnset, 2, false))

	open := &Mission{Code: "DAILY", PhaseKind: PhaseOnset}
	assert.True(t, open.AppliesTo(PhaseOnset, 1, false))
	assert.True(t, open.AppliesTo(PhaseOnset, 40, false))

	nrt := &Mission{Code: "NRT_PATCH", PhaseKind: PhaseOnset, RequiresNRT: true}
	assert.False(t, nrt.AppliesTo(PhaseOnset, 1, false))
	assert.True(t, nrt.AppliesTo(PhaseOnset, 1, true))
}

func TestReminderEntryTransitions(t *testing.T) {
	r := &ReminderEntry{ID: "r1", Status: ReminderPending, ScheduledAt: testNow.Add(-time.Minute)}
	assert.True(t, r.IsDue(testNow))
	require.NoError(t, r.MarkFailed("no_target", testNow))
	assert.Equal(t, ReminderFailed, r.Status)
	assert.Equal(t, 1, r.Attempts)
	assert.False(t, r.IsDue(testNow))
	assert.ErrorIs(t, r.MarkSent(testNow), ErrInvalidState, "failed entries are never requeued")

	future := &ReminderEntry{ID: "r2", Status: ReminderPending, ScheduledAt: testNow.Add(time.Minute)}
	assert.False(t, future.IsDue(testNow))
}

func TestDiaryLogValidate(t *testing.T) {
	neg := -1
	high := 11.0
	ok := 4.0
	assert.Error(t, (&DiaryLog{}).Validate())
	assert.Error(t, (&DiaryLog{MemberID: "m", CigarettesSmoked: &neg}).Validate())
	assert.Error(t, (&DiaryLog{MemberID: "m", CravingLevel: &high}).Validate())
	assert.NoError(t, (&DiaryLog{MemberID: "m", Mood: &ok}).Validate())
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestPhase(status PhaseStatus) *Phase {
	return &Phase{
		ID:           "ph-1",
		PlanID:       "plan-1",
		Kind:         PhasePreparation,
		AnchorStart:  DateOf(testNow),
		DurationDays: 3,
		Status:       status,
	}
}

func TestPhaseWindow(t *testing.T) {
	p := newTestPhase(PhaseInProgress)

	assert.Equal(t, DateOf(testNow).AddDate(0, 0, 2), p.EndDate())
	assert.True(t, p.Contains(testNow))
	assert.True(t, p.Contains(testNow.AddDate(0, 0, 2)))
	assert.False(t, p.Contains(testNow.AddDate(0, 0, 3)))
	assert.False(t, p.Contains(testNow.AddDate(0, 0, -1)))

	assert.Equal(t, 1, p.DayIndex(testNow))
	assert.Equal(t, 3, p.DayIndex(testNow.AddDate(0, 0, 2)))
	assert.Equal(t, 0, p.DayIndex(testNow.AddDate(0, 0, 5)))
}

func TestPhaseWindowElapsed(t *testing.T) {
	p := newTestPhase(PhaseInProgress)

	assert.False(t, p.WindowElapsed(testNow))
	assert.False(t, p.WindowElapsed(testNow.AddDate(0, 0, 2)), "last day is still inside the window")
	assert.True(t, p.IsLastDay(testNow.AddDate(0, 0, 2)))
	assert.True(t, p.WindowElapsed(testNow.AddDate(0, 0, 3)))
}

func TestPhaseStart(t *testing.T) {
	p := newTestPhase(PhasePendingStart)
	anchor := testNow.AddDate(0, 0, 4)
	require.NoError(t, p.Start("att-1", anchor, testNow))

	assert.Equal(t, PhaseInProgress, p.Status)
	assert.Equal(t, DateOf(anchor), p.AnchorStart)
	require.NotNil(t, p.CurrentAttemptID)
	assert.Equal(t, "att-1", *p.CurrentAttemptID)

	err := p.Start("att-2", anchor, testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    PhaseStatus
		apply   func(p *Phase) error
		want    PhaseStatus
		wantErr bool
	}{
		{"redo eligible from in progress", PhaseInProgress, func(p *Phase) error { return p.MarkRedoEligible("rule failed", testNow) }, PhaseRedoEligible, false},
		{"redo eligible twice", PhaseRedoEligible, func(p *Phase) error { return p.MarkRedoEligible("rule failed", testNow) }, PhaseRedoEligible, true},
		{"advance from in progress", PhaseInProgress, func(p *Phase) error { return p.MarkAdvanced(false, "", testNow) }, PhaseAdvanced, false},
		{"advance from redo eligible", PhaseRedoEligible, func(p *Phase) error { return p.MarkAdvanced(false, "", testNow) }, PhaseAdvanced, false},
		{"advance last phase", PhaseInProgress, func(p *Phase) error { return p.MarkAdvanced(true, "", testNow) }, PhasePlanCompleted, false},
		{"advance pending", PhasePendingStart, func(p *Phase) error { return p.MarkAdvanced(false, "", testNow) }, PhasePendingStart, true},
		{"advance advanced", PhaseAdvanced, func(p *Phase) error { return p.MarkAdvanced(false, "", testNow) }, PhaseAdvanced, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPhase(tc.from)
			err := tc.apply(p)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidState)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, p.Status)
		})
	}
}

func TestPhaseRestart(t *testing.T) {
	p := newTestPhase(PhaseRedoEligible)

	err := p.Restart("att-2", testNow.AddDate(0, 0, 2), testNow)
	assert.ErrorIs(t, err, ErrInvalidState, "anchor inside the old window is rejected")

	require.NoError(t, p.Restart("att-2", testNow.AddDate(0, 0, 4), testNow))
	assert.Equal(t, PhaseInProgress, p.Status)
	assert.Equal(t, DateOf(testNow.AddDate(0, 0, 4)), p.AnchorStart)
	assert.Equal(t, DateOf(testNow.AddDate(0, 0, 6)), p.EndDate())

	inProgress := newTestPhase(PhaseInProgress)
	assert.ErrorIs(t, inProgress.Restart("att-3", testNow.AddDate(0, 0, 10), testNow), ErrInvalidState)
}

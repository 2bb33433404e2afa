package generation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(ms []domain.Mission) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Code
	}
	return out
}

var testCatalog = []domain.Mission{
	{Code: "BREATHE", PhaseKind: domain.PhaseOnset, Position: 2},
	{Code: "WALK", PhaseKind: domain.PhaseOnset, Position: 1},
	{Code: "JOURNAL", PhaseKind: domain.PhaseOnset, Position: 1},
	{Code: "LATE", PhaseKind: domain.PhaseOnset, DayFrom: 3, Position: 0},
	{Code: "EARLY", PhaseKind: domain.PhaseOnset, DayFrom: 1, DayTo: 1, Position: 5},
	{Code: "PATCH", PhaseKind: domain.PhaseOnset, RequiresNRT: true, Position: 0},
	{Code: "LIST", PhaseKind: domain.PhasePreparation, Position: 0},
}

func TestSelect_FiltersAndOrders(t *testing.T) {
	assert.Equal(t, []string{"JOURNAL", "WALK", "BREATHE", "EARLY"},
		codes(Select(testCatalog, domain.PhaseOnset, 1, false)))
	assert.Equal(t, []string{"PATCH", "JOURNAL", "WALK", "BREATHE", "EARLY"},
		codes(Select(testCatalog, domain.PhaseOnset, 1, true)))
	assert.Equal(t, []string{"LATE", "JOURNAL", "WALK", "BREATHE"},
		codes(Select(testCatalog, domain.PhaseOnset, 3, false)))
	assert.Equal(t, []string{"LIST"},
		codes(Select(testCatalog, domain.PhasePreparation, 7, false)))
	assert.Empty(t, Select(testCatalog, domain.PhaseMaintenance, 1, false))
}

func TestSelect_IndependentOfCatalogOrder(t *testing.T) {
	want := codes(Select(testCatalog, domain.PhaseOnset, 3, true))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		shuffled := append([]domain.Mission(nil), testCatalog...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, codes(Select(shuffled, domain.PhaseOnset, 3, true)))
	}
}

func TestExpectedCount(t *testing.T) {
	// Days 1..3 without NRT: 4 + 3 + 4.
	assert.Equal(t, 11, ExpectedCount(testCatalog, domain.PhaseOnset, 3, false))
	assert.Equal(t, 14, ExpectedCount(testCatalog, domain.PhaseOnset, 3, true))
	assert.Equal(t, 7, ExpectedCountThrough(testCatalog, domain.PhaseOnset, 3, 2, false))
	assert.Equal(t, 11, ExpectedCountThrough(testCatalog, domain.PhaseOnset, 3, 10, false))
	assert.Equal(t, 0, ExpectedCount(nil, domain.PhaseOnset, 3, false))
}

func TestContiguousAnchors(t *testing.T) {
	start := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	bp := []domain.BlueprintPhase{
		{Kind: domain.PhasePreparation, DurationDays: 3},
		{Kind: domain.PhaseOnset, DurationDays: 7},
		{Kind: domain.PhasePeakCraving, DurationDays: 14},
	}
	anchors := ContiguousAnchors(start, bp)
	require.Len(t, anchors, 3)
	assert.Equal(t, "2025-06-15", anchors[0].Format(domain.DateLayout))
	assert.Equal(t, "2025-06-18", anchors[1].Format(domain.DateLayout))
	assert.Equal(t, "2025-06-25", anchors[2].Format(domain.DateLayout))
}

func TestWindowDetails(t *testing.T) {
	phase := &domain.Phase{ID: "ph1", DurationDays: 3}
	anchor := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	n := 0
	details := WindowDetails(phase, "att1", anchor, anchor, func() string {
		n++
		return string(rune('a' + n - 1))
	})
	require.Len(t, details, 3)
	assert.Equal(t, 1, details[0].DayIndex)
	assert.Equal(t, "Day 3", details[2].Name)
	assert.Equal(t, "2025-07-02", details[2].Date.Format(domain.DateLayout))
	assert.Equal(t, "att1", details[1].AttemptID)
	assert.Equal(t, "c", details[2].ID)
}

func TestValidateBlueprint(t *testing.T) {
	assert.Error(t, ValidateBlueprint(nil))
	assert.Error(t, ValidateBlueprint([]domain.BlueprintPhase{{Kind: "WITHDRAWAL", DurationDays: 3}}))
	assert.Error(t, ValidateBlueprint([]domain.BlueprintPhase{{Kind: domain.PhaseOnset, DurationDays: 0}}))
	assert.Error(t, ValidateBlueprint([]domain.BlueprintPhase{
		{Kind: domain.PhaseOnset, OrderIndex: 1, DurationDays: 3},
		{Kind: domain.PhasePeakCraving, OrderIndex: 1, DurationDays: 3},
	}))
	assert.NoError(t, ValidateBlueprint([]domain.BlueprintPhase{
		{Kind: domain.PhaseOnset, OrderIndex: 0, DurationDays: 3},
		{Kind: domain.PhasePeakCraving, OrderIndex: 1, DurationDays: 3},
	}))
}

func TestInstanceID_Deterministic(t *testing.T) {
	assert.Equal(t, InstanceID("d1", "WALK"), InstanceID("d1", "WALK"))
	assert.NotEqual(t, InstanceID("d1", "WALK"), InstanceID("d2", "WALK"))
	assert.NotEqual(t, InstanceID("d1", "WALK"), InstanceID("d1", "JOURNAL"))
}

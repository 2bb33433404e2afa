package generation

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
)

// Select returns the catalog missions due on dayIndex of a phase of kind,
// ordered by (position, code). The result depends only on its inputs.
func Select(catalog []domain.Mission, kind domain.PhaseKind, dayIndex int, useNRT bool) []domain.Mission {
	var selected []domain.Mission
	for i := range catalog {
		if catalog[i].AppliesTo(kind, dayIndex, useNRT) {
			selected = append(selected, catalog[i])
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Position != selected[j].Position {
			return selected[i].Position < selected[j].Position
		}
		return selected[i].Code < selected[j].Code
	})
	return selected
}

// ExpectedCount is the number of mission instances a full window of
// durationDays would hold.
func ExpectedCount(catalog []domain.Mission, kind domain.PhaseKind, durationDays int, useNRT bool) int {
	total := 0
	for day := 1; day <= durationDays; day++ {
		total += len(Select(catalog, kind, day, useNRT))
	}
	return total
}

// ExpectedCountThrough counts expected instances on days 1..throughDay.
func ExpectedCountThrough(catalog []domain.Mission, kind domain.PhaseKind, durationDays, throughDay int, useNRT bool) int {
	if throughDay > durationDays {
		throughDay = durationDays
	}
	return ExpectedCount(catalog, kind, throughDay, useNRT)
}

// WindowDetails lays out one PhaseDetail per day of an attempt window.
func WindowDetails(phase *domain.Phase, attemptID string, anchor time.Time, now time.Time, newID func() string) []*domain.PhaseDetail {
	details := make([]*domain.PhaseDetail, 0, phase.DurationDays)
	for i := 1; i <= phase.DurationDays; i++ {
		details = append(details, &domain.PhaseDetail{
			ID:        newID(),
			PhaseID:   phase.ID,
			AttemptID: attemptID,
			DayIndex:  i,
			Date:      domain.AddDays(anchor, i-1),
			Name:      domain.DetailName(i),
			CreatedAt: now,
		})
	}
	return details
}

// ContiguousAnchors returns the start date of each blueprint step when the
// first starts at start and each follows the previous without a gap.
func ContiguousAnchors(start time.Time, blueprint []domain.BlueprintPhase) []time.Time {
	anchors := make([]time.Time, len(blueprint))
	next := domain.DateOf(start)
	for i, bp := range blueprint {
		anchors[i] = next
		next = domain.AddDays(next, bp.DurationDays)
	}
	return anchors
}

// ValidateBlueprint rejects an empty sequence, unknown kinds, non-positive
// durations and duplicate order indexes.
func ValidateBlueprint(blueprint []domain.BlueprintPhase) error {
	if len(blueprint) == 0 {
		return fmt.Errorf("blueprint: no phases configured")
	}
	seen := map[int]bool{}
	for _, bp := range blueprint {
		if !domain.ValidPhaseKinds[bp.Kind] {
			return fmt.Errorf("blueprint: unknown phase kind %q", bp.Kind)
		}
		if bp.DurationDays <= 0 {
			return fmt.Errorf("blueprint: phase %s has non-positive duration %d", bp.Kind, bp.DurationDays)
		}
		if seen[bp.OrderIndex] {
			return fmt.Errorf("blueprint: duplicate order index %d", bp.OrderIndex)
		}
		seen[bp.OrderIndex] = true
	}
	return nil
}

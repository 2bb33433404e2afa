package generation

import (
	"context"
	"fmt"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
)

// instanceNamespace scopes the name-based ids of mission instances.
var instanceNamespace = uuid.MustParse("6f1c2d7e-8a43-4f0b-9d5e-2b7c1a9e4f30")

// InstanceID is the stable id of the instance of missionCode on a day.
func InstanceID(detailID, missionCode string) string {
	return uuid.NewSHA1(instanceNamespace, []byte(detailID+"/"+missionCode)).String()
}

// Generator materialises a day's mission instances from the catalog.
type Generator struct {
	clock clock.Clock
}

// NewGenerator creates a Generator. A nil clock uses the system clock.
func NewGenerator(c clock.Clock) *Generator {
	return &Generator{clock: clock.OrSystem(c)}
}

// EnsureDay returns the day's mission instances, creating them from the
// current catalog on first call. Later calls return the stored set unchanged
// even when the catalog has been edited since.
func (g *Generator) EnsureDay(ctx context.Context, tx db.DBTX, detail *domain.PhaseDetail, plan *domain.QuitPlan, phase *domain.Phase) ([]*domain.PhaseDetailMission, error) {
	instances := repository.NewSQLiteMissionInstanceRepo(tx)

	existing, err := instances.ListByDetail(ctx, detail.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	catalog, err := repository.NewSQLiteMissionRepo(tx).ListByPhaseKind(ctx, phase.Kind)
	if err != nil {
		return nil, fmt.Errorf("loading mission catalog: %w", err)
	}
	selected := Select(catalog, phase.Kind, detail.DayIndex, plan.UseNRT)
	if len(selected) == 0 {
		return nil, nil
	}

	now := g.clock.Now()
	batch := make([]*domain.PhaseDetailMission, 0, len(selected))
	for i, m := range selected {
		batch = append(batch, &domain.PhaseDetailMission{
			ID:            InstanceID(detail.ID, m.Code),
			PhaseDetailID: detail.ID,
			MissionCode:   m.Code,
			Position:      i,
			Status:        domain.MissionPending,
			CreatedAt:     now,
		})
	}
	if err := instances.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	return instances.ListByDetail(ctx, detail.ID)
}

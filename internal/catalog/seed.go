package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
)

// SeedResult counts what one Seed call wrote.
type SeedResult struct {
	Phases       int
	MissionTypes int
	Missions     int
	Conditions   int
	Templates    int
}

// Seed validates c and writes it in one transaction. Entries are upserted by
// code, name or (phase, type, trigger), so seeding the same file twice is a
// no-op apart from UpdatedAt. The blueprint is replaced as a whole.
func Seed(ctx context.Context, uow db.UnitOfWork, c *Catalog, now time.Time) (*SeedResult, error) {
	if errs := Validate(c); len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}

	result := &SeedResult{}
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		phases := c.Phases()
		if err := repository.NewSQLiteBlueprintRepo(tx).Replace(ctx, phases); err != nil {
			return err
		}
		result.Phases = len(phases)

		typeRepo := repository.NewSQLiteMissionTypeRepo(tx)
		for _, mt := range c.MissionTypes {
			if err := typeRepo.Upsert(ctx, &domain.MissionType{Code: mt.Code, Name: mt.Name, Description: mt.Description}); err != nil {
				return err
			}
			result.MissionTypes++
		}

		missionRepo := repository.NewSQLiteMissionRepo(tx)
		for _, m := range c.Missions {
			if err := missionRepo.Upsert(ctx, convertMission(m, now)); err != nil {
				return err
			}
			result.Missions++
		}

		condRepo := repository.NewSQLiteConditionRepo(tx)
		for _, cond := range c.Conditions {
			expr, err := cond.ConditionExpression()
			if err != nil {
				return err
			}
			err = condRepo.Upsert(ctx, &domain.SystemPhaseCondition{
				ID:         uuid.New().String(),
				Name:       cond.Name,
				PhaseKind:  cond.Phase,
				Expression: expr,
				UpdatedAt:  now,
			})
			if err != nil {
				return err
			}
			result.Conditions++
		}

		tmplRepo := repository.NewSQLiteReminderTemplateRepo(tx)
		for _, t := range c.ResolvedTemplates() {
			err := tmplRepo.Upsert(ctx, &domain.ReminderTemplate{
				ID:           uuid.New().String(),
				PhaseKind:    t.Phase,
				ReminderType: t.Type,
				TriggerCode:  t.Trigger,
				Content:      t.Content,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			if err != nil {
				return err
			}
			result.Templates++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seeding catalog: %w", err)
	}
	return result, nil
}

func convertMission(m MissionEntry, now time.Time) *domain.Mission {
	return &domain.Mission{
		Code:            m.Code,
		Name:            m.Name,
		Description:     m.Description,
		Category:        m.Category,
		MissionTypeCode: m.Type,
		PhaseKind:       m.Phase,
		DayFrom:         m.DayFrom,
		DayTo:           m.DayTo,
		Position:        m.Position,
		RequiresNRT:     m.RequiresNRT,
		UpdatedAt:       now,
	}
}

// Snapshot reads the seeded catalog back from the database.
func Snapshot(ctx context.Context, uow db.UnitOfWork) (*Catalog, error) {
	c := &Catalog{}
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		phases, err := repository.NewSQLiteBlueprintRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, p := range phases {
			c.Blueprint = append(c.Blueprint, BlueprintEntry{Kind: p.Kind, Days: p.DurationDays})
		}

		types, err := repository.NewSQLiteMissionTypeRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, mt := range types {
			c.MissionTypes = append(c.MissionTypes, MissionTypeEntry{Code: mt.Code, Name: mt.Name, Description: mt.Description})
		}

		missions, err := repository.NewSQLiteMissionRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, m := range missions {
			c.Missions = append(c.Missions, MissionEntry{
				Code: m.Code, Name: m.Name, Description: m.Description, Category: m.Category,
				Type: m.MissionTypeCode, Phase: m.PhaseKind, DayFrom: m.DayFrom, DayTo: m.DayTo,
				Position: m.Position, RequiresNRT: m.RequiresNRT,
			})
		}

		conds, err := repository.NewSQLiteConditionRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, cond := range conds {
			c.Conditions = append(c.Conditions, ConditionEntry{Name: cond.Name, Phase: cond.PhaseKind, Expression: cond.Expression})
		}

		templates, err := repository.NewSQLiteReminderTemplateRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, t := range templates {
			c.Templates = append(c.Templates, TemplateEntry{Phase: t.PhaseKind, Trigger: t.TriggerCode, Type: t.ReminderType, Content: t.Content})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return c, nil
}

// EnsureSeeded seeds the catalog at path, or the built-in default when path is
// empty, unless a blueprint is already stored. The result is nil when nothing
// was seeded.
func EnsureSeeded(ctx context.Context, uow db.UnitOfWork, path string, now time.Time) (*SeedResult, error) {
	var stored int
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		phases, err := repository.NewSQLiteBlueprintRepo(tx).List(ctx)
		stored = len(phases)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading blueprint: %w", err)
	}
	if stored > 0 {
		return nil, nil
	}

	var c *Catalog
	if path == "" {
		c, err = LoadDefault()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}
	return Seed(ctx, uow, c, now)
}

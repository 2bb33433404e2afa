package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
)

// TestBlueprint is two three-day phases.
var TestBlueprint = []domain.BlueprintPhase{
	{Kind: domain.PhasePreparation, OrderIndex: 0, DurationDays: 3},
	{Kind: domain.PhaseOnset, OrderIndex: 1, DurationDays: 3},
}

// ProgressCondition requires progress >= 80.
const ProgressCondition = `{"field":"progress","operator":">=","value":80}`

// testTemplates lists the reminder content seeded for every kind. The trigger
// to reminder type pairing matches the service's.
var testTemplates = []struct {
	rtype   domain.ReminderType
	trigger domain.TriggerCode
	content string
}{
	{domain.ReminderMorning, domain.TriggerPlanStarted, "Welcome to {plan}. {phase} starts {date}."},
	{domain.ReminderMorning, domain.TriggerDailyMorning, "Good morning! Day {day} of {phase}."},
	{domain.ReminderMorning, domain.TriggerPhaseAdvanced, "You moved on to {phase}."},
	{domain.ReminderMorning, domain.TriggerPhaseRestarted, "{phase} restarts on {date}."},
	{domain.ReminderMorning, domain.TriggerPlanCompleted, "You completed {plan}!"},
	{domain.ReminderBehavior, domain.TriggerMissionMissed, "You missed {mission}. Try again tomorrow."},
	{domain.ReminderSmoked, domain.TriggerRedoEligible, "{phase} is not finished yet. You can redo it."},
}

// SeedCatalog installs TestBlueprint, two missions per phase kind, templates
// for every trigger, and ProgressCondition for PREPARATION.
func SeedCatalog(t *testing.T, database *sql.DB) {
	t.Helper()
	SeedBlueprint(t, database, TestBlueprint)
	for _, kind := range []domain.PhaseKind{domain.PhasePreparation, domain.PhaseOnset} {
		SeedMissions(t, database,
			NewTestMission(string(kind)+"_A", kind, WithPosition(0)),
			NewTestMission(string(kind)+"_B", kind, WithPosition(1)),
		)
		SeedTemplates(t, database, kind)
	}
	SeedConditions(t, database, NewTestCondition("prep_progress", domain.PhasePreparation, ProgressCondition))
}

func SeedBlueprint(t *testing.T, database *sql.DB, blueprint []domain.BlueprintPhase) {
	t.Helper()
	if err := repository.NewSQLiteBlueprintRepo(database).Replace(context.Background(), blueprint); err != nil {
		t.Fatalf("seeding blueprint: %v", err)
	}
}

func SeedMissions(t *testing.T, database *sql.DB, missions ...*domain.Mission) {
	t.Helper()
	repo := repository.NewSQLiteMissionRepo(database)
	for _, m := range missions {
		if err := repo.Upsert(context.Background(), m); err != nil {
			t.Fatalf("seeding mission %s: %v", m.Code, err)
		}
	}
}

func SeedConditions(t *testing.T, database *sql.DB, conds ...*domain.SystemPhaseCondition) {
	t.Helper()
	repo := repository.NewSQLiteConditionRepo(database)
	for _, c := range conds {
		if err := repo.Upsert(context.Background(), c); err != nil {
			t.Fatalf("seeding condition %s: %v", c.Name, err)
		}
	}
}

// SeedTemplates installs the standard template set for kind.
func SeedTemplates(t *testing.T, database *sql.DB, kind domain.PhaseKind) {
	t.Helper()
	repo := repository.NewSQLiteReminderTemplateRepo(database)
	for _, tt := range testTemplates {
		tmpl := NewTestTemplate(kind, tt.rtype, tt.trigger, tt.content)
		if err := repo.Upsert(context.Background(), tmpl); err != nil {
			t.Fatalf("seeding template %s: %v", tt.trigger, err)
		}
	}
}

// SetPushToken gives the member's account a push target, creating the account if needed.
func SetPushToken(t *testing.T, database *sql.DB, memberID, token string) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewSQLiteAccountRepo(database)
	if _, err := repo.Ensure(ctx, memberID, Epoch); err != nil {
		t.Fatalf("ensuring account: %v", err)
	}
	if err := repo.SetPushToken(ctx, memberID, &token); err != nil {
		t.Fatalf("setting push token: %v", err)
	}
}

package cli

import (
	"bytes"
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/metrics"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/alexanderramin/quitplan/internal/sweep"
	"github.com/alexanderramin/quitplan/internal/testutil"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app   *App
	db    *sql.DB
	clock *testutil.ManualClock
	disp  *testutil.RecordingDispatcher
}

func testApp(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	testutil.SeedCatalog(t, database)
	return testAppWithDB(t, database)
}

func testAppWithDB(t *testing.T, database *sql.DB) *testEnv {
	t.Helper()
	color.NoColor = true

	clk := testutil.NewManualClock(testutil.Epoch)
	uow := testutil.NewTestUoW(database)
	opts := service.DefaultOptions()
	enqueuer := service.NewReminderEnqueuer(clk)
	plans := service.NewPlanService(uow, enqueuer, clk, opts)
	progression := service.NewProgressionService(uow, metrics.NewDiarySource(database, clk), enqueuer, clk, opts)
	disp := testutil.NewRecordingDispatcher()

	return &testEnv{
		app: &App{
			Plans:       plans,
			Progression: progression,
			Diary:       service.NewDiaryService(uow, progression, clk),
			Accounts:    service.NewAccountService(uow, clk),
			Sweeper:     sweep.NewSweeper(uow, disp, clk, sweep.DefaultOptions()),
			Reconciler:  sweep.NewReconciler(plans, progression, 0, nil),
			UoW:         uow,
			Clock:       clk,
		},
		db:    database,
		clock: clk,
		disp:  disp,
	}
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return ansiPattern.ReplaceAllString(buf.String(), ""), err
}

func (e *testEnv) createPlan(t *testing.T, member string) *domain.QuitPlan {
	t.Helper()
	plan, err := e.app.Plans.CreatePlan(context.Background(), service.CreatePlanRequest{
		MemberID:  member,
		Name:      "Quit",
		StartDate: e.clock.Now(),
	})
	require.NoError(t, err)
	return plan
}

func (e *testEnv) todayMissionIDs(t *testing.T, planID string) []string {
	t.Helper()
	today, err := e.app.Progression.GetMissionsForToday(context.Background(), planID)
	require.NoError(t, err)
	ids := make([]string, len(today.Missions))
	for i, m := range today.Missions {
		ids[i] = m.ID
	}
	return ids
}

// --- plan ---

func TestPlanCreate(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()

	out, err := executeCmd(t, env.app, "plan", "create", "--member", member, "--name", "Smoke free", "--start", "2025-06-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Created plan Smoke free")
	assert.Contains(t, out, "Preparation")
	assert.Contains(t, out, "Onset")

	plan, err := env.app.Plans.GetActivePlan(context.Background(), member)
	require.NoError(t, err)
	assert.Equal(t, "Smoke free", plan.Name)
	assert.Equal(t, "2025-06-15", plan.StartDate.Format(domain.DateLayout))
}

func TestPlanCreate_RequiresMember(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "plan", "create")
	assert.Error(t, err)
}

func TestPlanCreate_InvalidStartDate(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "plan", "create", "-m", testutil.NewMemberID(), "--start", "15/06/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestPlanCreate_SecondActivePlanRejected(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()
	env.createPlan(t, member)

	_, err := executeCmd(t, env.app, "plan", "create", "-m", member)
	assert.Error(t, err)
}

func TestPlanShow_ByMember(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()
	plan := env.createPlan(t, member)

	out, err := executeCmd(t, env.app, "plan", "show", "--member", member)
	require.NoError(t, err)
	assert.Contains(t, out, plan.ID)
	assert.Contains(t, out, "Quit")
}

func TestPlanShow_NeedsPlanOrMember(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "plan", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--member")
}

func TestPlanCurrent(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())

	out, err := executeCmd(t, env.app, "plan", "current", plan.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Preparation")
}

func TestPlanList(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()
	env.createPlan(t, member)

	out, err := executeCmd(t, env.app, "plan", "list", "-m", member)
	require.NoError(t, err)
	assert.Contains(t, out, "PLANS")
	assert.Contains(t, out, "Quit")

	out, err = executeCmd(t, env.app, "plan", "list", "-m", testutil.NewMemberID())
	require.NoError(t, err)
	assert.Contains(t, out, "No plans found.")
}

func TestPlanAbandon(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())

	out, err := executeCmd(t, env.app, "plan", "abandon", plan.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Abandoned plan "+plan.ID+" on 2025-06-15")

	got, err := env.app.Plans.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanAbandoned, got.Status)

	_, err = executeCmd(t, env.app, "plan", "abandon", plan.ID)
	assert.Error(t, err, "a terminal plan cannot be abandoned again")
}

func TestPlanEvents(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())

	out, err := executeCmd(t, env.app, "plan", "events", plan.ID)
	require.NoError(t, err)
	assert.Contains(t, out, string(domain.EventPlanStarted))
}

// --- mission ---

func TestMissionToday(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()
	env.createPlan(t, member)

	out, err := executeCmd(t, env.app, "mission", "today", "-m", member)
	require.NoError(t, err)
	assert.Contains(t, out, "TODAY")
	assert.Contains(t, out, "Pending")
}

func TestMissionComplete(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())
	ids := env.todayMissionIDs(t, plan.ID)
	require.NotEmpty(t, ids)

	out, err := executeCmd(t, env.app, "mission", "complete", ids[0], "--outcome", "COMPLETED", "--notes", "easy")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded PREPARATION_A as")
	assert.Contains(t, out, "Done")

	_, err = executeCmd(t, env.app, "mission", "complete", ids[0])
	assert.Error(t, err, "a mission is recorded once")
}

func TestMissionComplete_InvalidOutcome(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())
	ids := env.todayMissionIDs(t, plan.ID)

	_, err := executeCmd(t, env.app, "mission", "complete", ids[0], "--outcome", "maybe")
	assert.Error(t, err)
}

func TestMissionHistory(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())
	ids := env.todayMissionIDs(t, plan.ID)

	_, err := executeCmd(t, env.app, "mission", "complete", ids[1], "--outcome", "failed", "--trigger", "coffee", "--trigger", "stress")
	require.NoError(t, err)

	out, err := executeCmd(t, env.app, "mission", "history", plan.Phases[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "MISSION HISTORY")
	assert.Contains(t, out, "PREPARATION_B")
	assert.Contains(t, out, "coffee, stress")
}

// --- phase ---

func TestPhaseEvaluate_Waiting(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())

	out, err := executeCmd(t, env.app, "phase", "evaluate", "--plan", plan.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "waiting")

	out, err = executeCmd(t, env.app, "phase", "evaluate", plan.Phases[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, plan.Phases[0].ID)
}

func TestPhaseEvaluate_NeedsTarget(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "phase", "evaluate")
	assert.Error(t, err)
}

func TestPhaseRedo_AfterUnmetWindow(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())
	phaseID := plan.Phases[0].ID

	env.clock.AdvanceDays(3)
	out, err := executeCmd(t, env.app, "phase", "evaluate", phaseID)
	require.NoError(t, err)
	assert.Contains(t, out, "redo eligible")

	out, err = executeCmd(t, env.app, "phase", "redo", phaseID, "--anchor", "2025-06-18")
	require.NoError(t, err)
	assert.Contains(t, out, "Restarted Preparation")
	assert.Contains(t, out, "2025-06-18")
}

func TestPhaseRedo_NotEligible(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())

	_, err := executeCmd(t, env.app, "phase", "redo", plan.Phases[0].ID)
	assert.Error(t, err)
}

// --- diary ---

func TestDiaryLog(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()

	out, err := executeCmd(t, env.app, "diary", "log", "-m", member, "--cigarettes", "2", "--craving", "6.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged 2025-06-15 for member "+member)

	logs, err := env.app.Diary.List(context.Background(), member, testutil.Epoch, testutil.Epoch)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].CigarettesSmoked)
	assert.Equal(t, 2, *logs[0].CigarettesSmoked)
	require.NotNil(t, logs[0].CravingLevel)
	assert.InDelta(t, 6.5, *logs[0].CravingLevel, 0.001)
	assert.Nil(t, logs[0].Mood, "unreported values stay empty")
}

func TestDiaryLog_WithPlanEvaluates(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()
	env.createPlan(t, member)

	out, err := executeCmd(t, env.app, "diary", "log", "-m", member, "--mood", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "EVALUATION")
}

func TestDiaryLog_RejectsOutOfRange(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "diary", "log", "-m", testutil.NewMemberID(), "--anxiety", "11")
	assert.Error(t, err)
}

func TestDiaryLog_RejectsFutureDate(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "diary", "log", "-m", testutil.NewMemberID(), "--date", "2025-06-16")
	assert.Error(t, err)
}

// --- account ---

func TestAccountSetToken(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()

	out, err := executeCmd(t, env.app, "account", "set-token", member, "device-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Push token set for member "+member)

	out, err = executeCmd(t, env.app, "account", "set-token", member, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Push token cleared")

	acct, err := env.app.Accounts.GetAccount(context.Background(), member)
	require.NoError(t, err)
	assert.False(t, acct.HasTarget())
}

func TestAccountSetToken_ArgumentErrors(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()

	_, err := executeCmd(t, env.app, "account", "set-token", member)
	assert.Error(t, err)
	_, err = executeCmd(t, env.app, "account", "set-token", member, "device-1", "--clear")
	assert.Error(t, err)
}

// --- reminders and sweep ---

func TestReminderList(t *testing.T) {
	env := testApp(t)
	plan := env.createPlan(t, testutil.NewMemberID())

	out, err := executeCmd(t, env.app, "reminder", "list", plan.ID)
	require.NoError(t, err)
	assert.Contains(t, out, string(domain.TriggerPlanStarted))
	assert.Contains(t, out, string(domain.TriggerDailyMorning))

	out, err = executeCmd(t, env.app, "reminder", "list", plan.ID, "--status", "sent")
	require.NoError(t, err)
	assert.Contains(t, out, "No reminders queued.")
}

func TestSweepRun_SendsDueReminder(t *testing.T) {
	env := testApp(t)
	member := testutil.NewMemberID()
	_, err := executeCmd(t, env.app, "account", "set-token", member, "device-1")
	require.NoError(t, err)
	plan := env.createPlan(t, member)

	out, err := executeCmd(t, env.app, "sweep", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected 1 due reminders: 1 sent, 0 failed")
	require.Len(t, env.disp.Sent(), 1)
	assert.Equal(t, "device-1", env.disp.Sent()[0].Target)

	out, err = executeCmd(t, env.app, "reminder", "list", plan.ID, "--status", "sent")
	require.NoError(t, err)
	assert.Contains(t, out, string(domain.TriggerPlanStarted))
}

func TestSweepRun_NotConfigured(t *testing.T) {
	env := testApp(t)
	env.app.Sweeper = nil
	_, err := executeCmd(t, env.app, "sweep", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestReconcileRun(t *testing.T) {
	env := testApp(t)
	env.createPlan(t, testutil.NewMemberID())
	env.createPlan(t, testutil.NewMemberID())

	out, err := executeCmd(t, env.app, "reconcile", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Evaluated 2 active plans")
	assert.Contains(t, out, "waiting")
}

func TestServe_NothingToRun(t *testing.T) {
	env := testApp(t)
	env.app.Sweeper = nil
	env.app.Reconciler = nil
	_, err := executeCmd(t, env.app, "serve")
	assert.Error(t, err)
}

// --- catalog ---

func TestCatalogLoad_DryRun(t *testing.T) {
	env := testAppWithDB(t, testutil.NewTestDB(t))

	out, err := executeCmd(t, env.app, "catalog", "load", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog is valid")

	out, err = executeCmd(t, env.app, "catalog", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "PREP_REASONS", "a dry run stores nothing")
}

func TestCatalogLoad_DefaultThenShow(t *testing.T) {
	env := testAppWithDB(t, testutil.NewTestDB(t))

	out, err := executeCmd(t, env.app, "catalog", "load")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 5 phases")

	out, err = executeCmd(t, env.app, "catalog", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "PREP_REASONS")
	assert.Contains(t, out, "Maintenance")

	_, err = executeCmd(t, env.app, "plan", "create", "-m", testutil.NewMemberID())
	require.NoError(t, err, "a loaded catalog is enough to start a plan")
}

func TestCatalogLoad_MissingFile(t *testing.T) {
	env := testAppWithDB(t, testutil.NewTestDB(t))
	_, err := executeCmd(t, env.app, "catalog", "load", "/nonexistent/catalog.yaml")
	assert.Error(t, err)
}

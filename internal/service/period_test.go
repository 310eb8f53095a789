package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
)

// periodFixture is one weekly goal with an owner who meets their target and a
// member who misses it, ready to be rolled over.
type periodFixture struct {
	*fixture
	group  *model.Group
	owner  *model.User
	member *model.User
	goal   *model.GroupGoal
	period *model.Period
}

func newPeriodFixture(t *testing.T, start time.Time) *periodFixture {
	t.Helper()

	f := newFixture(t)
	group, owner := f.createGroup(t, "owner@example.com", start)
	goal, period := f.createWeeklyGoal(t, owner.ID, group.ID, start)
	member := f.joinGroup(t, group, "member@example.com", start)

	return &periodFixture{
		fixture: f,
		group:   group,
		owner:   owner,
		member:  member,
		goal:    goal,
		period:  period,
	}
}

func (pf *periodFixture) setTargetAndLog(t *testing.T, userID string, target, logged decimal.Decimal, now time.Time) {
	t.Helper()

	_, err := pf.groupGoals.SetTarget(userID, pf.period.ID, target, now)
	require.NoError(t, err)

	if logged.IsPositive() {
		_, err = pf.groupGoals.AddProgress(userID, pf.period.ID, logged, now, now)
		require.NoError(t, err)
	}
}

func TestProcessEndedPeriodsCarriesShortfallForward(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)

	pf.setTargetAndLog(t, pf.owner.ID, decimal.NewFromInt(10), decimal.NewFromInt(12), start)
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.RequireFromString("7.5"), start)

	processAt := day(t, "2026-03-09")
	report, err := pf.periods.ProcessEndedPeriods(processAt, false)
	require.NoError(t, err)

	require.Len(t, report.Processed, 1)
	require.Empty(t, report.Failures)
	assert.Equal(t, 0, report.Skipped)

	p := report.Processed[0]
	assert.Equal(t, 2, p.TotalParticipants)
	assert.Equal(t, 1, p.CompletedCount)
	assert.Equal(t, "2.5", p.Penalties[pf.member.ID].String())
	assert.Equal(t, "2.5", p.TotalPenalty.String())

	// The prior period is closed.
	closed, err := pf.periodRepo.ByID(pf.period.ID)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	// The successor starts the day after the prior ended and runs one week.
	successor, err := pf.periodRepo.ActiveByGoal(pf.goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", successor.StartDate.Format(model.DateLayout))
	assert.Equal(t, "2026-03-16", successor.EndDate.Format(model.DateLayout))

	// The failed member carries the exact shortfall, with no target yet.
	carried, err := pf.progressRepo.ByPeriodAndUser(successor.ID, pf.member.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.5", carried.PenaltyCarryOver.String())
	assert.True(t, carried.TargetAmount.IsZero())
	assert.True(t, carried.CurrentAmount.IsZero())
	assert.Empty(t, carried.DailyEntries)

	// The participant who met their target starts the successor clean.
	_, err = pf.progressRepo.ByPeriodAndUser(successor.ID, pf.owner.ID)
	assert.ErrorIs(t, err, repository.ErrProgressNotFound)
}

func TestProcessEndedPeriodsIdempotent(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(4), start)

	processAt := day(t, "2026-03-09")

	report, err := pf.periods.ProcessEndedPeriods(processAt, false)
	require.NoError(t, err)
	require.Len(t, report.Processed, 1)

	// A second run finds nothing: the closed period never reappears and the
	// successor has not ended yet.
	report, err = pf.periods.ProcessEndedPeriods(processAt, false)
	require.NoError(t, err)
	assert.Empty(t, report.Processed)
	assert.Empty(t, report.Failures)
}

func TestProcessEndedPeriodsDryRun(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(6), start)

	before, err := pf.progressRepo.ByPeriodAndUser(pf.period.ID, pf.member.ID)
	require.NoError(t, err)

	processAt := day(t, "2026-03-09")
	report, err := pf.periods.ProcessEndedPeriods(processAt, true)
	require.NoError(t, err)

	require.Len(t, report.Processed, 1)
	assert.True(t, report.DryRun)

	p := report.Processed[0]
	assert.Equal(t, "4", p.Penalties[pf.member.ID].String())
	require.NotNil(t, p.NextStartDate)
	assert.Equal(t, "2026-03-09", p.NextStartDate.Format(model.DateLayout))

	// Nothing was written: the period is still open and no successor exists.
	period, err := pf.periodRepo.ByID(pf.period.ID)
	require.NoError(t, err)
	assert.True(t, period.IsActive)

	active, err := pf.periodRepo.ActiveByGoal(pf.goal.ID)
	require.NoError(t, err)
	assert.Equal(t, pf.period.ID, active.ID)

	// The participant row itself is untouched: no penalty applied, no sum or
	// flag rewritten, not even a timestamp bump.
	after, err := pf.progressRepo.ByPeriodAndUser(pf.period.ID, pf.member.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcessEndedPeriodsInactiveGoalNoSuccessor(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(1), start)

	require.NoError(t, pf.groupGoals.Deactivate(pf.owner.ID, pf.goal.ID, start))

	processAt := day(t, "2026-03-09")
	report, err := pf.periods.ProcessEndedPeriods(processAt, false)
	require.NoError(t, err)

	require.Len(t, report.Processed, 1)
	p := report.Processed[0]
	assert.Nil(t, p.NextStartDate)

	// The last period is closed and the goal gets no new one; the penalty
	// dies with the goal.
	closed, err := pf.periodRepo.ByID(pf.period.ID)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	_, err = pf.periodRepo.ActiveByGoal(pf.goal.ID)
	assert.ErrorIs(t, err, repository.ErrPeriodNotFound)
}

func TestProcessEndedPeriodsSkipsRunningPeriods(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(1), start)

	// Mid-window: the period has not ended, nothing to process.
	report, err := pf.periods.ProcessEndedPeriods(day(t, "2026-03-05"), false)
	require.NoError(t, err)
	assert.Empty(t, report.Processed)

	period, err := pf.periodRepo.ByID(pf.period.ID)
	require.NoError(t, err)
	assert.True(t, period.IsActive)
}

func TestPenaltyCompoundsAcrossPeriods(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)

	// Week one: target 10, logged 6, shortfall 4.
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(6), start)

	firstClose := day(t, "2026-03-09")
	report, err := pf.periods.ProcessEndedPeriods(firstClose, false)
	require.NoError(t, err)
	require.Len(t, report.Processed, 1)
	assert.Equal(t, "4", report.Processed[0].Penalties[pf.member.ID].String())

	// Week two: target 10 again, so the effective target is 14; logging 8
	// leaves a shortfall of 6.
	second, err := pf.periodRepo.ActiveByGoal(pf.goal.ID)
	require.NoError(t, err)

	_, err = pf.groupGoals.SetTarget(pf.member.ID, second.ID, decimal.NewFromInt(10), firstClose)
	require.NoError(t, err)
	_, err = pf.groupGoals.AddProgress(pf.member.ID, second.ID, decimal.NewFromInt(8), firstClose, firstClose)
	require.NoError(t, err)

	secondClose := day(t, "2026-03-17")
	report, err = pf.periods.ProcessEndedPeriods(secondClose, false)
	require.NoError(t, err)
	require.Len(t, report.Processed, 1)
	assert.Equal(t, "6", report.Processed[0].Penalties[pf.member.ID].String())

	third, err := pf.periodRepo.ActiveByGoal(pf.goal.ID)
	require.NoError(t, err)

	carried, err := pf.progressRepo.ByPeriodAndUser(third.ID, pf.member.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", carried.PenaltyCarryOver.String())
}

// brokenPeriodRepo passes through to the real repository but fails the
// transition for one chosen period, standing in for a storage error mid-run.
type brokenPeriodRepo struct {
	repository.PeriodRepository
	failPeriodID string
}

var errStorageDown = errors.New("storage unavailable")

func (r *brokenPeriodRepo) CloseAndCreateSuccessor(prior, successor *model.Period, carryOvers map[string]decimal.Decimal) error {
	if prior.ID == r.failPeriodID {
		return errStorageDown
	}
	return r.PeriodRepository.CloseAndCreateSuccessor(prior, successor, carryOvers)
}

func TestProcessEndedPeriodsIsolatesFailures(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)

	// A second goal in the same group, so two periods end together.
	secondGoal, err := pf.groupGoals.Create(pf.owner.ID, pf.group.ID, "Read pages", "", "pages", model.PeriodTypeWeekly, start)
	require.NoError(t, err)
	secondPeriod, err := pf.groupGoals.CurrentPeriod(secondGoal.ID)
	require.NoError(t, err)

	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(4), start)
	_, err = pf.groupGoals.SetTarget(pf.member.ID, secondPeriod.ID, decimal.NewFromInt(20), start)
	require.NoError(t, err)

	broken := NewPeriodService(
		&brokenPeriodRepo{PeriodRepository: pf.periodRepo, failPeriodID: pf.period.ID},
		repository.NewGroupGoalRepository(pf.db),
		pf.progressRepo,
		pf.memberRepo,
		pf.userRepo,
		nil,
	)

	processAt := day(t, "2026-03-09")
	report, err := broken.ProcessEndedPeriods(processAt, false)
	require.NoError(t, err)

	// The healthy period still went through.
	require.Len(t, report.Processed, 1)
	assert.Equal(t, secondPeriod.ID, report.Processed[0].PeriodID)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, pf.period.ID, report.Failures[0].PeriodID)
	assert.ErrorIs(t, report.Failures[0].Err, errStorageDown)

	// The failed period stays open, so the next run picks it up again.
	failed, err := pf.periodRepo.ByID(pf.period.ID)
	require.NoError(t, err)
	assert.True(t, failed.IsActive)

	report, err = pf.periods.ProcessEndedPeriods(processAt, false)
	require.NoError(t, err)
	require.Len(t, report.Processed, 1)
	assert.Equal(t, pf.period.ID, report.Processed[0].PeriodID)
	assert.Empty(t, report.Failures)
}

func TestPreviewPeriod(t *testing.T) {
	start := day(t, "2026-03-01")
	pf := newPeriodFixture(t, start)
	pf.setTargetAndLog(t, pf.member.ID, decimal.NewFromInt(10), decimal.NewFromInt(3), start)

	report, err := pf.periods.PreviewPeriod(pf.period.ID, day(t, "2026-03-09"))
	require.NoError(t, err)
	assert.Equal(t, "7", report.Penalties[pf.member.ID].String())

	// Preview never writes.
	period, err := pf.periodRepo.ByID(pf.period.ID)
	require.NoError(t, err)
	assert.True(t, period.IsActive)
}

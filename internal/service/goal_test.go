package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
)

func TestGoalAddProgressResumsAndCompletes(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "runner@example.com")
	now := day(t, "2026-03-01")

	goal, err := f.goals.Create(user.ID, CreateGoalInput{
		Name:         "Run 10km",
		TargetAmount: decimal.NewFromInt(10),
		Unit:         "km",
		Category:     "fitness",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusActive, goal.Status)

	goal, err = f.goals.AddProgress(user.ID, goal.ID, decimal.NewFromInt(4), "", now, now)
	require.NoError(t, err)
	assert.Equal(t, "4", goal.CurrentAmount.String())
	assert.Equal(t, model.GoalStatusActive, goal.Status)

	goal, err = f.goals.AddProgress(user.ID, goal.ID, decimal.NewFromInt(6), "", now, now)
	require.NoError(t, err)
	assert.Equal(t, "10", goal.CurrentAmount.String())
	assert.Equal(t, model.GoalStatusCompleted, goal.Status)

	// Completed is terminal; further entries still count but never revert it.
	goal, err = f.goals.AddProgress(user.ID, goal.ID, decimal.NewFromInt(1), "", now, now)
	require.NoError(t, err)
	assert.Equal(t, "11", goal.CurrentAmount.String())
	assert.Equal(t, model.GoalStatusCompleted, goal.Status)
}

func TestGoalCurrentAmountSummedFromEntries(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "precise@example.com")
	now := day(t, "2026-03-01")

	goal, err := f.goals.Create(user.ID, CreateGoalInput{
		Name:         "Save up",
		TargetAmount: decimal.NewFromInt(100),
		Unit:         "eur",
		Category:     "finance",
	}, now)
	require.NoError(t, err)

	_, err = f.goals.AddProgress(user.ID, goal.ID, decimal.RequireFromString("0.1"), "", now, now)
	require.NoError(t, err)

	goal, err = f.goals.AddProgress(user.ID, goal.ID, decimal.RequireFromString("0.2"), "", now, now)
	require.NoError(t, err)

	assert.Equal(t, "0.3", goal.CurrentAmount.String())
}

func TestGoalCreateFreePlanLimit(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "free@example.com")
	now := day(t, "2026-03-01")

	for i := 0; i < 3; i++ {
		_, err := f.goals.Create(user.ID, CreateGoalInput{
			Name:         "Goal",
			TargetAmount: decimal.NewFromInt(1),
			Category:     "other",
		}, now)
		require.NoError(t, err)
	}

	_, err := f.goals.Create(user.ID, CreateGoalInput{
		Name:         "One too many",
		TargetAmount: decimal.NewFromInt(1),
		Category:     "other",
	}, now)
	assert.ErrorIs(t, err, ErrGoalLimitReached)
}

func TestGoalCreatePremiumUnlimited(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "premium@example.com")
	f.upgradeToPremium(t, user.ID)
	now := day(t, "2026-03-01")

	for i := 0; i < 5; i++ {
		_, err := f.goals.Create(user.ID, CreateGoalInput{
			Name:         "Goal",
			TargetAmount: decimal.NewFromInt(1),
			Category:     "other",
		}, now)
		require.NoError(t, err)
	}
}

func TestGoalCreateValidation(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "validate@example.com")
	now := day(t, "2026-03-01")

	_, err := f.goals.Create(user.ID, CreateGoalInput{
		Name:         "No target",
		TargetAmount: decimal.Zero,
		Category:     "other",
	}, now)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.goals.Create(user.ID, CreateGoalInput{
		Name:         "Bad category",
		TargetAmount: decimal.NewFromInt(1),
		Category:     "underwater-basket-weaving",
	}, now)
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestGoalAddProgressValidation(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "strict@example.com")
	now := day(t, "2026-03-05")

	goal, err := f.goals.Create(user.ID, CreateGoalInput{
		Name:         "Read pages",
		TargetAmount: decimal.NewFromInt(100),
		Category:     "education",
	}, now)
	require.NoError(t, err)

	_, err = f.goals.AddProgress(user.ID, goal.ID, decimal.NewFromInt(-1), "", now, now)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.goals.AddProgress(user.ID, goal.ID, decimal.NewFromInt(1), "", day(t, "2026-03-06"), now)
	assert.ErrorIs(t, err, ErrFutureDate)
}

func TestGoalScopedToOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	other := f.createUser(t, "other@example.com")
	now := day(t, "2026-03-01")

	goal, err := f.goals.Create(owner.ID, CreateGoalInput{
		Name:         "Private goal",
		TargetAmount: decimal.NewFromInt(10),
		Category:     "other",
	}, now)
	require.NoError(t, err)

	_, err = f.goals.ByID(other.ID, goal.ID)
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	_, err = f.goals.AddProgress(other.ID, goal.ID, decimal.NewFromInt(1), "", now, now)
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)
}

func TestGoalDelete(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "delete@example.com")
	now := day(t, "2026-03-01")

	goal, err := f.goals.Create(user.ID, CreateGoalInput{
		Name:         "Short lived",
		TargetAmount: decimal.NewFromInt(10),
		Category:     "other",
	}, now)
	require.NoError(t, err)

	_, err = f.goals.AddProgress(user.ID, goal.ID, decimal.NewFromInt(1), "", now, now)
	require.NoError(t, err)

	require.NoError(t, f.goals.Delete(user.ID, goal.ID))

	_, err = f.goals.ByID(user.ID, goal.ID)
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)
}

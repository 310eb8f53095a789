package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainforge/internal/db"
	"github.com/chainforge/chainforge/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

func seedGoalWithPeriod(t *testing.T, database *sqlx.DB, start, end time.Time) (*model.GroupGoal, *model.Period) {
	t.Helper()

	now := start

	user := &model.User{
		ID:        uuid.New().String(),
		Email:     uuid.New().String() + "@example.com",
		Name:      "Seed User",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, NewUserRepository(database).Create(user))

	group := &model.Group{
		ID:         uuid.New().String(),
		Name:       "Seed Group",
		InviteCode: model.NewInviteCode(),
		MaxMembers: 10,
		Status:     model.GroupStatusActive,
		CreatedBy:  user.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, NewGroupRepository(database).Create(group))

	goal := &model.GroupGoal{
		ID:         uuid.New().String(),
		GroupID:    group.ID,
		Name:       "Seed Goal",
		PeriodType: model.PeriodTypeWeekly,
		IsActive:   true,
		CreatedBy:  user.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, NewGroupGoalRepository(database).Create(goal))

	period := &model.Period{
		ID:          uuid.New().String(),
		GroupGoalID: goal.ID,
		StartDate:   start,
		EndDate:     end,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, NewPeriodRepository(database).Create(period))

	return goal, period
}

func TestCloseGuardsAgainstDoubleClose(t *testing.T) {
	database := newTestDB(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, period := seedGoalWithPeriod(t, database, start, start.AddDate(0, 0, 7))

	repo := NewPeriodRepository(database)
	now := start.AddDate(0, 0, 8)

	require.NoError(t, repo.Close(period.ID, now))
	assert.ErrorIs(t, repo.Close(period.ID, now), ErrPeriodAlreadyClosed)
}

func TestCloseAndCreateSuccessorMigratesPenalties(t *testing.T) {
	database := newTestDB(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	goal, prior := seedGoalWithPeriod(t, database, start, start.AddDate(0, 0, 7))

	repo := NewPeriodRepository(database)
	progressRepo := NewParticipantProgressRepository(database)
	now := start.AddDate(0, 0, 8)

	successor := &model.Period{
		ID:          uuid.New().String(),
		GroupGoalID: goal.ID,
		StartDate:   prior.EndDate.AddDate(0, 0, 1),
		EndDate:     prior.EndDate.AddDate(0, 0, 8),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// One participant already holds a row in the successor with a target and
	// an earlier carry-over; the migration must add onto the carry-over and
	// leave the target alone.
	preset := &model.ParticipantProgress{
		ID:               uuid.New().String(),
		PeriodID:         successor.ID,
		UserID:           "user-preset",
		TargetAmount:     decimal.NewFromInt(20),
		CurrentAmount:    decimal.Zero,
		PenaltyCarryOver: decimal.NewFromInt(1),
		DailyEntries:     model.DailyEntries{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, progressRepo.Create(preset))

	carryOvers := map[string]decimal.Decimal{
		"user-preset": decimal.NewFromInt(5),
		"user-fresh":  decimal.RequireFromString("2.5"),
	}

	require.NoError(t, repo.CloseAndCreateSuccessor(prior, successor, carryOvers))

	closed, err := repo.ByID(prior.ID)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	created, err := repo.ByID(successor.ID)
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	merged, err := progressRepo.ByPeriodAndUser(successor.ID, "user-preset")
	require.NoError(t, err)
	assert.Equal(t, "6", merged.PenaltyCarryOver.String())
	assert.Equal(t, "20", merged.TargetAmount.String())

	fresh, err := progressRepo.ByPeriodAndUser(successor.ID, "user-fresh")
	require.NoError(t, err)
	assert.Equal(t, "2.5", fresh.PenaltyCarryOver.String())
	assert.True(t, fresh.TargetAmount.IsZero())

	// Re-running the same transition is a detectable no-op.
	assert.ErrorIs(t, repo.CloseAndCreateSuccessor(prior, successor, carryOvers), ErrPeriodAlreadyClosed)
}

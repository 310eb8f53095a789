package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainforge/internal/db"
	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
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

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(model.DateLayout, value)
	require.NoError(t, err)
	return parsed
}

// fixture wires every repository and service onto one throwaway sqlite
// database.
type fixture struct {
	db *sqlx.DB

	userRepo     repository.UserRepository
	memberRepo   repository.GroupMemberRepository
	periodRepo   repository.PeriodRepository
	progressRepo repository.ParticipantProgressRepository

	subscriptions *SubscriptionService
	auth          *AuthService
	goals         *GoalService
	groups        *GroupService
	groupGoals    *GroupGoalService
	periods       *PeriodService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := newTestDB(t)

	userRepo := repository.NewUserRepository(database)
	subscriptionRepo := repository.NewSubscriptionRepository(database)
	goalRepo := repository.NewGoalRepository(database)
	goalProgressRepo := repository.NewGoalProgressRepository(database)
	groupRepo := repository.NewGroupRepository(database)
	memberRepo := repository.NewGroupMemberRepository(database)
	groupGoalRepo := repository.NewGroupGoalRepository(database)
	periodRepo := repository.NewPeriodRepository(database)
	progressRepo := repository.NewParticipantProgressRepository(database)

	subscriptions := NewSubscriptionService(subscriptionRepo)

	return &fixture{
		db:            database,
		userRepo:      userRepo,
		memberRepo:    memberRepo,
		periodRepo:    periodRepo,
		progressRepo:  progressRepo,
		subscriptions: subscriptions,
		auth:          NewAuthService(userRepo, subscriptions, nil, "test-secret", time.Hour, false),
		goals:         NewGoalService(goalRepo, goalProgressRepo, subscriptions),
		groups:        NewGroupService(groupRepo, memberRepo, subscriptions),
		groupGoals:    NewGroupGoalService(groupGoalRepo, periodRepo, progressRepo, memberRepo, nil),
		periods:       NewPeriodService(periodRepo, groupGoalRepo, progressRepo, memberRepo, userRepo, nil),
	}
}

func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()

	user, err := f.auth.Register(email, "Test User", "a-long-enough-password")
	require.NoError(t, err)
	return user
}

func (f *fixture) upgradeToPremium(t *testing.T, userID string) {
	t.Helper()

	sub, err := f.subscriptions.Subscription(userID)
	require.NoError(t, err)

	sub.PlanID = model.SubscriptionPlanPremium
	require.NoError(t, f.subscriptions.UpdateSubscription(sub))
}

// createGroup returns a group owned by a fresh premium user.
func (f *fixture) createGroup(t *testing.T, ownerEmail string, now time.Time) (*model.Group, *model.User) {
	t.Helper()

	owner := f.createUser(t, ownerEmail)
	f.upgradeToPremium(t, owner.ID)

	group, err := f.groups.Create(owner.ID, CreateGroupInput{
		Name:       "Morning Runners",
		MaxMembers: 5,
	}, now)
	require.NoError(t, err)

	return group, owner
}

// joinGroup adds a fresh user to the group as a plain member.
func (f *fixture) joinGroup(t *testing.T, group *model.Group, email string, now time.Time) *model.User {
	t.Helper()

	user := f.createUser(t, email)
	_, err := f.groups.Join(user.ID, group.InviteCode, now)
	require.NoError(t, err)

	return user
}

// createWeeklyGoal makes a weekly group goal and returns it with its first
// period.
func (f *fixture) createWeeklyGoal(t *testing.T, ownerID, groupID string, now time.Time) (*model.GroupGoal, *model.Period) {
	t.Helper()

	goal, err := f.groupGoals.Create(ownerID, groupID, "Run kilometers", "", "km", model.PeriodTypeWeekly, now)
	require.NoError(t, err)

	period, err := f.groupGoals.CurrentPeriod(goal.ID)
	require.NoError(t, err)

	return goal, period
}

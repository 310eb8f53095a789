package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/realtime"
	"github.com/chainforge/chainforge/internal/repository"
)

var (
	ErrInvalidPeriodType = errors.New("period type must be weekly or monthly")
	ErrGoalInactive      = errors.New("group goal is deactivated")
)

// progressWriteRetries bounds the optimistic-concurrency retry loop on the
// ledger write path.
const progressWriteRetries = 3

type GroupGoalService struct {
	repo         repository.GroupGoalRepository
	periodRepo   repository.PeriodRepository
	progressRepo repository.ParticipantProgressRepository
	memberRepo   repository.GroupMemberRepository
	hub          *realtime.Hub
}

func NewGroupGoalService(
	repo repository.GroupGoalRepository,
	periodRepo repository.PeriodRepository,
	progressRepo repository.ParticipantProgressRepository,
	memberRepo repository.GroupMemberRepository,
	hub *realtime.Hub,
) *GroupGoalService {
	return &GroupGoalService{
		repo:         repo,
		periodRepo:   periodRepo,
		progressRepo: progressRepo,
		memberRepo:   memberRepo,
		hub:          hub,
	}
}

// Create opens a new group goal together with its first period, which starts
// immediately and runs one cadence window. Only group owners and admins may
// create goals.
func (s *GroupGoalService) Create(actorID, groupID, name, description, unit, periodType string, now time.Time) (*model.GroupGoal, error) {
	if !model.ValidPeriodType(periodType) {
		return nil, ErrInvalidPeriodType
	}

	err := s.requireAdmin(groupID, actorID)
	if err != nil {
		return nil, err
	}

	goal := &model.GroupGoal{
		ID:          uuid.New().String(),
		GroupID:     groupID,
		Name:        name,
		Description: description,
		Unit:        unit,
		PeriodType:  periodType,
		IsActive:    true,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repo.Create(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create group goal: %w", err)
	}

	period := &model.Period{
		ID:          uuid.New().String(),
		GroupGoalID: goal.ID,
		StartDate:   now,
		EndDate:     goal.PeriodEnd(now),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.periodRepo.Create(period)
	if err != nil {
		return nil, fmt.Errorf("failed to create first period: %w", err)
	}

	return goal, nil
}

func (s *GroupGoalService) ByID(goalID string) (*model.GroupGoal, error) {
	return s.repo.ByID(goalID)
}

func (s *GroupGoalService) GoalsByGroup(groupID string) ([]*model.GroupGoal, error) {
	return s.repo.GoalsByGroup(groupID)
}

func (s *GroupGoalService) CurrentPeriod(goalID string) (*model.Period, error) {
	return s.periodRepo.ActiveByGoal(goalID)
}

func (s *GroupGoalService) PeriodStandings(periodID string) ([]*model.ParticipantProgress, error) {
	return s.progressRepo.ByPeriod(periodID)
}

// Deactivate stops the goal from generating new periods. The current period
// still runs to its end and is closed by the scheduler; no successor is
// opened for an inactive goal.
func (s *GroupGoalService) Deactivate(actorID, goalID string, now time.Time) error {
	goal, err := s.repo.ByID(goalID)
	if err != nil {
		return err
	}

	err = s.requireAdmin(goal.GroupID, actorID)
	if err != nil {
		return err
	}

	goal.IsActive = false
	goal.UpdatedAt = now
	return s.repo.Update(goal)
}

// SetTarget creates or updates the actor's own target for a period. Creating
// the row is what admits a participant to the period; progress cannot be
// logged before it exists. An update keeps accumulated progress and any
// penalty carry-over.
func (s *GroupGoalService) SetTarget(actorID, periodID string, target decimal.Decimal, now time.Time) (*model.ParticipantProgress, error) {
	if !target.IsPositive() {
		return nil, ErrInvalidAmount
	}

	period, err := s.periodRepo.ByID(periodID)
	if err != nil {
		return nil, err
	}

	goal, err := s.repo.ByID(period.GroupGoalID)
	if err != nil {
		return nil, err
	}

	err = s.requireMember(goal.GroupID, actorID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.ByPeriodAndUser(periodID, actorID)
	if err == repository.ErrProgressNotFound {
		progress = &model.ParticipantProgress{
			ID:               uuid.New().String(),
			PeriodID:         periodID,
			UserID:           actorID,
			TargetAmount:     target,
			CurrentAmount:    decimal.Zero,
			PenaltyCarryOver: decimal.Zero,
			DailyEntries:     model.DailyEntries{},
			IsCompleted:      false,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		err = s.progressRepo.Create(progress)
		if err != nil {
			return nil, fmt.Errorf("failed to set target: %w", err)
		}
		return progress, nil
	}
	if err != nil {
		return nil, err
	}

	progress.TargetAmount = target
	progress.IsCompleted = progress.MetTarget()
	progress.UpdatedAt = now

	err = s.progressRepo.UpdateTarget(progress)
	if err != nil {
		return nil, fmt.Errorf("failed to update target: %w", err)
	}

	return progress, nil
}

// AddProgress is the single write path for group progress: it accumulates
// amount into the participant's entry for date (same-day submissions sum, not
// overwrite), re-sums current_amount from the whole map, and recomputes the
// completion flag against the effective target.
//
// The read-modify-write is guarded by the row's updated_at; if a concurrent
// submission lands in between, the write is retried on fresh state so no
// update is lost. Penalties are never touched here; carry-over is computed
// only at period close.
func (s *GroupGoalService) AddProgress(actorID, periodID string, amount decimal.Decimal, date, now time.Time) (*model.ParticipantProgress, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if futureDate(date, now) {
		return nil, ErrFutureDate
	}

	dateKey := date.Format(model.DateLayout)

	for attempt := 0; attempt < progressWriteRetries; attempt++ {
		progress, err := s.progressRepo.ByPeriodAndUser(periodID, actorID)
		if err == repository.ErrProgressNotFound {
			return nil, ErrTargetNotSet
		}
		if err != nil {
			return nil, err
		}

		entries := progress.DailyEntries.Clone()
		entries.Add(dateKey, amount)

		expectedUpdatedAt := progress.UpdatedAt
		progress.DailyEntries = entries
		progress.CurrentAmount = entries.Sum()
		progress.IsCompleted = progress.MetTarget()
		progress.UpdatedAt = now

		err = s.progressRepo.UpdateProgress(progress, expectedUpdatedAt)
		if err == repository.ErrStaleProgress {
			slog.Debug("progress write conflict, retrying",
				"period_id", periodID, "user_id", actorID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to record progress: %w", err)
		}

		s.publishProgress(progress, amount, dateKey)
		return progress, nil
	}

	return nil, ErrConcurrencyConflict
}

func (s *GroupGoalService) publishProgress(progress *model.ParticipantProgress, amount decimal.Decimal, dateKey string) {
	period, err := s.periodRepo.ByID(progress.PeriodID)
	if err != nil {
		slog.Warn("skipping progress broadcast, period lookup failed", "error", err, "period_id", progress.PeriodID)
		return
	}

	goal, err := s.repo.ByID(period.GroupGoalID)
	if err != nil {
		slog.Warn("skipping progress broadcast, goal lookup failed", "error", err, "goal_id", period.GroupGoalID)
		return
	}

	s.hub.Publish(realtime.ProgressEvent{
		GroupID:       goal.GroupID,
		GoalID:        goal.ID,
		PeriodID:      progress.PeriodID,
		UserID:        progress.UserID,
		Date:          dateKey,
		Amount:        amount.String(),
		CurrentAmount: progress.CurrentAmount.String(),
		IsCompleted:   progress.IsCompleted,
	})
}

func (s *GroupGoalService) requireMember(groupID, userID string) error {
	member, err := s.memberRepo.ByGroupAndUser(groupID, userID)
	if err == repository.ErrMemberNotFound {
		return ErrNotGroupMember
	}
	if err != nil {
		return err
	}
	if !member.IsActive {
		return ErrNotGroupMember
	}
	return nil
}

func (s *GroupGoalService) requireAdmin(groupID, userID string) error {
	member, err := s.memberRepo.ByGroupAndUser(groupID, userID)
	if err == repository.ErrMemberNotFound {
		return ErrNotGroupMember
	}
	if err != nil {
		return err
	}
	if !member.IsActive {
		return ErrNotGroupMember
	}
	if !member.IsAdmin() {
		return ErrNotGroupAdmin
	}
	return nil
}

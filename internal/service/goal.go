package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
)

var (
	ErrGoalLimitReached = errors.New("free plan goal limit reached")
	ErrInvalidCategory  = errors.New("invalid goal category")
)

type GoalService struct {
	repo                repository.GoalRepository
	progressRepo        repository.GoalProgressRepository
	subscriptionService *SubscriptionService
}

func NewGoalService(
	repo repository.GoalRepository,
	progressRepo repository.GoalProgressRepository,
	subscriptionService *SubscriptionService,
) *GoalService {
	return &GoalService{
		repo:                repo,
		progressRepo:        progressRepo,
		subscriptionService: subscriptionService,
	}
}

type CreateGoalInput struct {
	Name         string
	Description  string
	TargetAmount decimal.Decimal
	Unit         string
	Category     string
	EndDate      *time.Time
	Punishment   string
	IsPublic     bool
}

func (s *GoalService) Create(userID string, in CreateGoalInput, now time.Time) (*model.Goal, error) {
	if !in.TargetAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !model.ValidGoalCategory(in.Category) {
		return nil, ErrInvalidCategory
	}

	subscription, err := s.subscriptionService.Subscription(userID)
	if err != nil {
		return nil, err
	}

	limit := subscription.GoalLimit()
	if limit != -1 {
		count, err := s.repo.CountActive(userID)
		if err != nil {
			return nil, err
		}

		if count >= limit {
			return nil, ErrGoalLimitReached
		}
	}

	goal := &model.Goal{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          in.Name,
		Description:   in.Description,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		Unit:          in.Unit,
		Category:      in.Category,
		Status:        model.GoalStatusActive,
		StartDate:     now,
		EndDate:       in.EndDate,
		Punishment:    in.Punishment,
		IsPublic:      in.IsPublic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.repo.Create(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return goal, nil
}

func (s *GoalService) ByID(userID, goalID string) (*model.Goal, error) {
	return s.repo.ByID(userID, goalID)
}

func (s *GoalService) Goals(userID string) ([]*model.Goal, error) {
	return s.repo.Goals(userID)
}

func (s *GoalService) Discover(limit int) ([]*model.Goal, error) {
	return s.repo.PublicGoals(limit)
}

func (s *GoalService) GoalWithEntries(userID, goalID string) (*model.Goal, []*model.GoalProgress, error) {
	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.progressRepo.Entries(goalID)
	if err != nil {
		return nil, nil, err
	}

	return goal, entries, nil
}

// AddProgress appends a progress entry, re-sums the goal's current amount
// from every stored entry (never incremented in place, so the total cannot
// drift), and transitions status to completed the first time the target is
// reached. The amount and status land in the same row update.
//
// The completed status is terminal here; reopening a goal is a separate
// explicit operation, not part of aggregation.
func (s *GoalService) AddProgress(userID, goalID string, amount decimal.Decimal, note string, date, now time.Time) (*model.Goal, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if futureDate(date, now) {
		return nil, ErrFutureDate
	}

	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	entry := &model.GoalProgress{
		ID:        uuid.New().String(),
		GoalID:    goalID,
		Amount:    amount,
		Note:      note,
		Date:      date,
		CreatedAt: now,
	}

	err = s.progressRepo.Create(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	total, err := s.progressRepo.SumAmount(goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum progress: %w", err)
	}

	goal.CurrentAmount = total
	if goal.IsCompleted() && goal.Status != model.GoalStatusCompleted {
		goal.Status = model.GoalStatusCompleted
	}
	goal.UpdatedAt = now

	err = s.repo.Update(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return goal, nil
}

type UpdateGoalInput struct {
	Name         string
	Description  string
	TargetAmount decimal.Decimal
	Unit         string
	Category     string
	EndDate      *time.Time
	Punishment   string
	IsPublic     bool
}

func (s *GoalService) Update(userID, goalID string, in UpdateGoalInput, now time.Time) (*model.Goal, error) {
	if !in.TargetAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !model.ValidGoalCategory(in.Category) {
		return nil, ErrInvalidCategory
	}

	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	goal.Name = in.Name
	goal.Description = in.Description
	goal.TargetAmount = in.TargetAmount
	goal.Unit = in.Unit
	goal.Category = in.Category
	goal.EndDate = in.EndDate
	goal.Punishment = in.Punishment
	goal.IsPublic = in.IsPublic
	goal.UpdatedAt = now

	err = s.repo.Update(goal)
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (s *GoalService) Delete(userID, goalID string) error {
	_, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return err
	}

	return s.repo.Delete(userID, goalID)
}

package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
)

// SummaryMailer delivers the end-of-period summary to a participant. Nil-safe
// consumers pass nil to skip mail entirely (dry runs, tests).
type SummaryMailer interface {
	SendPeriodSummary(user *model.User, report *PeriodReport) error
}

// PeriodReport describes what one period transition did (or, on a dry run,
// would do).
type PeriodReport struct {
	GoalID            string
	GoalName          string
	GroupID           string
	PeriodID          string
	StartDate         time.Time
	EndDate           time.Time
	NextStartDate     *time.Time
	NextEndDate       *time.Time
	TotalParticipants int
	CompletedCount    int
	Penalties         map[string]decimal.Decimal
	TotalPenalty      decimal.Decimal
}

// CompletionRate returns the share of participants who met their effective
// target, in percent.
func (r *PeriodReport) CompletionRate() float64 {
	if r.TotalParticipants == 0 {
		return 0
	}
	return float64(r.CompletedCount) / float64(r.TotalParticipants) * 100
}

type PeriodFailure struct {
	PeriodID string
	Err      error
}

// RunReport aggregates one scheduler run over every ended period.
type RunReport struct {
	Processed []PeriodReport
	Skipped   int
	Failures  []PeriodFailure
	DryRun    bool
}

// PeriodService is the transition scheduler: it closes ended periods, computes
// penalty carry-overs and opens successor periods. Safe to run on any cadence;
// already-closed periods are never picked up again.
type PeriodService struct {
	periodRepo   repository.PeriodRepository
	goalRepo     repository.GroupGoalRepository
	progressRepo repository.ParticipantProgressRepository
	memberRepo   repository.GroupMemberRepository
	userRepo     repository.UserRepository
	mailer       SummaryMailer
}

func NewPeriodService(
	periodRepo repository.PeriodRepository,
	goalRepo repository.GroupGoalRepository,
	progressRepo repository.ParticipantProgressRepository,
	memberRepo repository.GroupMemberRepository,
	userRepo repository.UserRepository,
	mailer SummaryMailer,
) *PeriodService {
	return &PeriodService{
		periodRepo:   periodRepo,
		goalRepo:     goalRepo,
		progressRepo: progressRepo,
		memberRepo:   memberRepo,
		userRepo:     userRepo,
		mailer:       mailer,
	}
}

// ProcessEndedPeriods runs one transition pass as of now. Each ended period is
// handled independently: a failure is recorded in the report and the run moves
// on, so one broken period cannot stall every group.
//
// With dryRun set, penalties and successors are computed and reported but
// nothing is written and no mail goes out.
func (s *PeriodService) ProcessEndedPeriods(now time.Time, dryRun bool) (*RunReport, error) {
	periods, err := s.periodRepo.EndedActive(now)
	if err != nil {
		return nil, fmt.Errorf("failed to list ended periods: %w", err)
	}

	report := &RunReport{DryRun: dryRun}

	for _, period := range periods {
		periodReport, err := s.processPeriod(period, now, dryRun)
		if err == repository.ErrPeriodAlreadyClosed {
			// Another run got here first; nothing left to do.
			report.Skipped++
			continue
		}
		if err != nil {
			slog.Error("period transition failed",
				"error", err, "period_id", period.ID, "goal_id", period.GroupGoalID)
			report.Failures = append(report.Failures, PeriodFailure{PeriodID: period.ID, Err: err})
			continue
		}

		report.Processed = append(report.Processed, *periodReport)
	}

	slog.Info("period transition run finished",
		"processed", len(report.Processed),
		"skipped", report.Skipped,
		"failed", len(report.Failures),
		"dry_run", dryRun,
	)

	return report, nil
}

// PreviewPeriod computes the transition report for a single period without
// writing anything.
func (s *PeriodService) PreviewPeriod(periodID string, now time.Time) (*PeriodReport, error) {
	period, err := s.periodRepo.ByID(periodID)
	if err != nil {
		return nil, err
	}

	return s.processPeriod(period, now, true)
}

func (s *PeriodService) processPeriod(period *model.Period, now time.Time, dryRun bool) (*PeriodReport, error) {
	goal, err := s.goalRepo.ByID(period.GroupGoalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}

	participants, err := s.progressRepo.ByPeriod(period.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	report := &PeriodReport{
		GoalID:            goal.ID,
		GoalName:          goal.Name,
		GroupID:           goal.GroupID,
		PeriodID:          period.ID,
		StartDate:         period.StartDate,
		EndDate:           period.EndDate,
		TotalParticipants: len(participants),
		Penalties:         make(map[string]decimal.Decimal),
		TotalPenalty:      decimal.Zero,
	}

	for _, p := range participants {
		if p.MetTarget() {
			report.CompletedCount++
			continue
		}

		penalty := p.Penalty(period, now)
		if penalty.IsPositive() {
			report.Penalties[p.UserID] = penalty
			report.TotalPenalty = report.TotalPenalty.Add(penalty)
		}
	}

	// Deactivated goals get their last period closed without a successor;
	// penalties have nowhere to go and are dropped with the goal.
	if goal.IsActive {
		nextStart := period.NextStartDate()
		nextEnd := goal.PeriodEnd(nextStart)
		report.NextStartDate = &nextStart
		report.NextEndDate = &nextEnd
	}

	if dryRun {
		return report, nil
	}

	if !goal.IsActive {
		err = s.periodRepo.Close(period.ID, now)
		if err != nil {
			return nil, err
		}
		s.sendSummaries(report)
		return report, nil
	}

	successor := &model.Period{
		ID:          uuid.New().String(),
		GroupGoalID: goal.ID,
		StartDate:   *report.NextStartDate,
		EndDate:     *report.NextEndDate,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.periodRepo.CloseAndCreateSuccessor(period, successor, report.Penalties)
	if err != nil {
		return nil, err
	}

	s.sendSummaries(report)
	return report, nil
}

// sendSummaries mails the period outcome to every active group member. Mail is
// best effort; a delivery failure never rolls back a completed transition.
func (s *PeriodService) sendSummaries(report *PeriodReport) {
	if s.mailer == nil {
		return
	}

	members, err := s.memberRepo.Members(report.GroupID)
	if err != nil {
		slog.Warn("skipping period summary mail, member lookup failed",
			"error", err, "group_id", report.GroupID)
		return
	}

	for _, member := range members {
		user, err := s.userRepo.ByID(member.UserID)
		if err != nil {
			slog.Warn("skipping period summary for member",
				"error", err, "user_id", member.UserID)
			continue
		}

		err = s.mailer.SendPeriodSummary(user, report)
		if err != nil {
			slog.Warn("failed to send period summary",
				"error", err, "user_id", user.ID, "period_id", report.PeriodID)
		}
	}
}

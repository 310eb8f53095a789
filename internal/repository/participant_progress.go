package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chainforge/chainforge/internal/model"
)

var (
	ErrProgressNotFound = errors.New("participant progress not found")

	// ErrStaleProgress means the row changed between read and write; the
	// caller should re-read and retry.
	ErrStaleProgress = errors.New("participant progress modified concurrently")
)

type ParticipantProgressRepository interface {
	Create(progress *model.ParticipantProgress) error
	ByPeriodAndUser(periodID, userID string) (*model.ParticipantProgress, error)
	ByPeriod(periodID string) ([]*model.ParticipantProgress, error)
	UpdateTarget(progress *model.ParticipantProgress) error
	UpdateProgress(progress *model.ParticipantProgress, expectedUpdatedAt time.Time) error
}

type participantProgressRepository struct {
	db *sqlx.DB
}

func NewParticipantProgressRepository(db *sqlx.DB) ParticipantProgressRepository {
	return &participantProgressRepository{db: db}
}

func (r *participantProgressRepository) Create(progress *model.ParticipantProgress) error {
	query := `INSERT INTO group_goal_progress (id, group_goal_period_id, user_id, target_amount,
	                                           current_amount, penalty_carry_over, daily_entries,
	                                           is_completed, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		progress.ID,
		progress.PeriodID,
		progress.UserID,
		progress.TargetAmount,
		progress.CurrentAmount,
		progress.PenaltyCarryOver,
		progress.DailyEntries,
		progress.IsCompleted,
		progress.CreatedAt,
		progress.UpdatedAt,
	)

	return err
}

func (r *participantProgressRepository) ByPeriodAndUser(periodID, userID string) (*model.ParticipantProgress, error) {
	progress := &model.ParticipantProgress{}
	query := `SELECT * FROM group_goal_progress WHERE group_goal_period_id = $1 AND user_id = $2`

	err := r.db.Get(progress, query, periodID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProgressNotFound
	}

	return progress, err
}

func (r *participantProgressRepository) ByPeriod(periodID string) ([]*model.ParticipantProgress, error) {
	var rows []*model.ParticipantProgress
	query := `SELECT * FROM group_goal_progress WHERE group_goal_period_id = $1 ORDER BY created_at ASC`

	err := r.db.Select(&rows, query, periodID)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *participantProgressRepository) UpdateTarget(progress *model.ParticipantProgress) error {
	query := `UPDATE group_goal_progress
	          SET target_amount = $1, is_completed = $2, updated_at = $3
	          WHERE id = $4`

	result, err := r.db.Exec(query,
		progress.TargetAmount,
		progress.IsCompleted,
		progress.UpdatedAt,
		progress.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrProgressNotFound
	}

	return nil
}

// UpdateProgress writes the daily-entries map, current amount and completion
// flag, guarded by the updated_at value read alongside the row. A concurrent
// writer bumps updated_at, the guard misses, and the caller gets
// ErrStaleProgress to retry with fresh state. This is what keeps two
// submissions for the same (period, user) from losing an update.
func (r *participantProgressRepository) UpdateProgress(progress *model.ParticipantProgress, expectedUpdatedAt time.Time) error {
	query := `UPDATE group_goal_progress
	          SET current_amount = $1, daily_entries = $2, is_completed = $3, updated_at = $4
	          WHERE id = $5 AND updated_at = $6`

	result, err := r.db.Exec(query,
		progress.CurrentAmount,
		progress.DailyEntries,
		progress.IsCompleted,
		progress.UpdatedAt,
		progress.ID,
		expectedUpdatedAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrStaleProgress
	}

	return nil
}

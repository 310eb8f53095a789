package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/model"
)

var (
	ErrPeriodNotFound      = errors.New("period not found")
	ErrPeriodAlreadyClosed = errors.New("period already closed")
)

type PeriodRepository interface {
	Create(period *model.Period) error
	ByID(id string) (*model.Period, error)
	ActiveByGoal(goalID string) (*model.Period, error)
	EndedActive(now time.Time) ([]*model.Period, error)
	Close(periodID string, now time.Time) error
	CloseAndCreateSuccessor(prior *model.Period, successor *model.Period, carryOvers map[string]decimal.Decimal) error
}

type periodRepository struct {
	db *sqlx.DB
}

func NewPeriodRepository(db *sqlx.DB) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) Create(period *model.Period) error {
	query := `INSERT INTO group_goal_periods (id, group_goal_id, start_date, end_date, is_active,
	                                          created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		period.ID,
		period.GroupGoalID,
		period.StartDate,
		period.EndDate,
		period.IsActive,
		period.CreatedAt,
		period.UpdatedAt,
	)

	return err
}

func (r *periodRepository) ByID(id string) (*model.Period, error) {
	period := &model.Period{}
	query := `SELECT * FROM group_goal_periods WHERE id = $1`

	err := r.db.Get(period, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPeriodNotFound
	}

	return period, err
}

func (r *periodRepository) ActiveByGoal(goalID string) (*model.Period, error) {
	period := &model.Period{}
	query := `SELECT * FROM group_goal_periods WHERE group_goal_id = $1 AND is_active = TRUE`

	err := r.db.Get(period, query, goalID)
	if err == sql.ErrNoRows {
		return nil, ErrPeriodNotFound
	}

	return period, err
}

// EndedActive returns every period that is still open but whose window ended
// before now. Closed periods never reappear here, which is what makes
// scheduler runs idempotent.
func (r *periodRepository) EndedActive(now time.Time) ([]*model.Period, error) {
	var periods []*model.Period
	query := `SELECT * FROM group_goal_periods
	          WHERE is_active = TRUE AND end_date < $1
	          ORDER BY end_date ASC`

	err := r.db.Select(&periods, query, now)
	if err != nil {
		return nil, err
	}

	return periods, nil
}

// Close flips the period inactive. The is_active guard makes a second close a
// detectable no-op instead of a silent rewrite.
func (r *periodRepository) Close(periodID string, now time.Time) error {
	query := `UPDATE group_goal_periods
	          SET is_active = FALSE, updated_at = $1
	          WHERE id = $2 AND is_active = TRUE`

	result, err := r.db.Exec(query, now, periodID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrPeriodAlreadyClosed
	}

	return nil
}

// CloseAndCreateSuccessor closes the prior period, inserts the successor and
// migrates penalty carry-overs into it in a single transaction. A crash or
// error mid-migration rolls everything back, leaving the prior period open so
// the next scheduler run retries it; a successor can never exist with only
// some penalties applied.
//
// A participant who already set a target in the successor keeps it; the
// penalty is added onto their existing carry-over. Everyone else gets a fresh
// row with target 0 (they still have to choose their own target).
func (r *periodRepository) CloseAndCreateSuccessor(prior *model.Period, successor *model.Period, carryOvers map[string]decimal.Decimal) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE group_goal_periods
	                        SET is_active = FALSE, updated_at = $1
	                        WHERE id = $2 AND is_active = TRUE`,
		successor.CreatedAt, prior.ID)
	if err != nil {
		return err
	}

	closed, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if closed == 0 {
		return ErrPeriodAlreadyClosed
	}

	_, err = tx.Exec(`INSERT INTO group_goal_periods (id, group_goal_id, start_date, end_date, is_active,
	                                                  created_at, updated_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		successor.ID,
		successor.GroupGoalID,
		successor.StartDate,
		successor.EndDate,
		successor.IsActive,
		successor.CreatedAt,
		successor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create successor period: %w", err)
	}

	for userID, penalty := range carryOvers {
		existing := &model.ParticipantProgress{}
		err = tx.Get(existing,
			`SELECT * FROM group_goal_progress WHERE group_goal_period_id = $1 AND user_id = $2`,
			successor.ID, userID)

		switch {
		case err == sql.ErrNoRows:
			_, err = tx.Exec(`INSERT INTO group_goal_progress (id, group_goal_period_id, user_id,
			                      target_amount, current_amount, penalty_carry_over, daily_entries,
			                      is_completed, created_at, updated_at)
			                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				uuid.New().String(),
				successor.ID,
				userID,
				decimal.Zero,
				decimal.Zero,
				penalty,
				model.DailyEntries{},
				false,
				successor.CreatedAt,
				successor.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to create carry-over row for user %s: %w", userID, err)
			}

		case err != nil:
			return fmt.Errorf("failed to look up successor progress for user %s: %w", userID, err)

		default:
			_, err = tx.Exec(`UPDATE group_goal_progress
			                  SET penalty_carry_over = $1, updated_at = $2
			                  WHERE id = $3`,
				existing.PenaltyCarryOver.Add(penalty),
				successor.CreatedAt,
				existing.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to add carry-over for user %s: %w", userID, err)
			}
		}
	}

	return tx.Commit()
}

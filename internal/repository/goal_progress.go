package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/model"
)

type GoalProgressRepository interface {
	Create(entry *model.GoalProgress) error
	Entries(goalID string) ([]*model.GoalProgress, error)
	SumAmount(goalID string) (decimal.Decimal, error)
}

type goalProgressRepository struct {
	db *sqlx.DB
}

func NewGoalProgressRepository(db *sqlx.DB) GoalProgressRepository {
	return &goalProgressRepository{db: db}
}

func (r *goalProgressRepository) Create(entry *model.GoalProgress) error {
	query := `INSERT INTO goal_progress (id, goal_id, amount, note, date, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.GoalID,
		entry.Amount,
		entry.Note,
		entry.Date,
		entry.CreatedAt,
	)

	return err
}

func (r *goalProgressRepository) Entries(goalID string) ([]*model.GoalProgress, error) {
	var entries []*model.GoalProgress
	query := `SELECT * FROM goal_progress WHERE goal_id = $1 ORDER BY date DESC`

	err := r.db.Select(&entries, query, goalID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SumAmount re-sums every entry for the goal. Amounts are summed in Go with
// decimal arithmetic rather than in SQL, since the column is stored as exact
// decimal text.
func (r *goalProgressRepository) SumAmount(goalID string) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	query := `SELECT amount FROM goal_progress WHERE goal_id = $1`

	err := r.db.Select(&amounts, query, goalID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}

	return total, nil
}

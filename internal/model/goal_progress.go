package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalProgress is one logged contribution toward a personal goal.
type GoalProgress struct {
	ID        string          `db:"id"`
	GoalID    string          `db:"goal_id"`
	Amount    decimal.Decimal `db:"amount"`
	Note      string          `db:"note"`
	Date      time.Time       `db:"date"`
	CreatedAt time.Time       `db:"created_at"`
}

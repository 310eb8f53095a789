package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	GoalStatusActive     = "active"
	GoalStatusInProgress = "in_progress"
	GoalStatusCompleted  = "completed"
	GoalStatusCanceled   = "canceled"
)

var GoalCategories = []string{
	"fitness", "health", "education", "career",
	"finance", "hobbies", "relationship", "personal", "other",
}

// Goal is a personal (non-group) goal. CurrentAmount is always the literal
// sum of its progress entries, re-summed on every write.
type Goal struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	Name          string          `db:"name"`
	Description   string          `db:"description"`
	TargetAmount  decimal.Decimal `db:"target_amount"`
	CurrentAmount decimal.Decimal `db:"current_amount"`
	Unit          string          `db:"unit"`
	Category      string          `db:"category"`
	Status        string          `db:"status"`
	StartDate     time.Time       `db:"start_date"`
	EndDate       *time.Time      `db:"end_date"`
	Punishment    string          `db:"punishment"`
	IsPublic      bool            `db:"is_public"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// IsCompleted reports whether the accumulated amount has reached the target.
// Derived, never stored; Status is transitioned separately on the write path.
func (g *Goal) IsCompleted() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// CompletionPercentage returns progress as a percentage, capped at 100.
func (g *Goal) CompletionPercentage() float64 {
	if g.TargetAmount.IsZero() {
		return 0
	}
	pct, _ := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}

// RemainingAmount returns how much is left to reach the target, floored at zero.
func (g *Goal) RemainingAmount() decimal.Decimal {
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func ValidGoalCategory(category string) bool {
	for _, c := range GoalCategories {
		if c == category {
			return true
		}
	}
	return false
}

package model

import (
	"time"
)

const (
	PeriodTypeWeekly  = "weekly"
	PeriodTypeMonthly = "monthly"
)

// GroupGoal is a recurring shared goal owned by a group. Deactivating a goal
// stops new periods from being opened; it is never hard-deleted while the
// group exists.
type GroupGoal struct {
	ID          string    `db:"id"`
	GroupID     string    `db:"group_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Unit        string    `db:"unit"`
	PeriodType  string    `db:"period_type"`
	IsActive    bool      `db:"is_active"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PeriodEnd returns the end of a period starting at start for this goal's
// cadence.
func (g *GroupGoal) PeriodEnd(start time.Time) time.Time {
	if g.PeriodType == PeriodTypeWeekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 1, 0)
}

func ValidPeriodType(periodType string) bool {
	return periodType == PeriodTypeWeekly || periodType == PeriodTypeMonthly
}

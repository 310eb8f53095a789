package model

import (
	"time"
)

// Period is one cadence window (week or month) of a group goal's life.
// It stays active until the transition scheduler closes it; closing is
// terminal, the row is never written again.
//
// Successor periods start one day after the prior period's end. That leaves
// a one-day gap covered by neither period; the gap is inherited behavior and
// deliberately kept (pending product clarification), not reconciled here.
type Period struct {
	ID          string    `db:"id"`
	GroupGoalID string    `db:"group_goal_id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// HasEnded reports whether the period's window is over as of now.
func (p *Period) HasEnded(now time.Time) bool {
	return p.EndDate.Before(now)
}

// IsCurrent reports whether now falls inside the period's window.
func (p *Period) IsCurrent(now time.Time) bool {
	return !p.StartDate.After(now) && !p.EndDate.Before(now)
}

// DaysRemaining returns whole days left in the period, zero once ended.
func (p *Period) DaysRemaining(now time.Time) int {
	if p.HasEnded(now) {
		return 0
	}
	return int(p.EndDate.Sub(now).Hours() / 24)
}

// NextStartDate returns when the successor period begins.
func (p *Period) NextStartDate() time.Time {
	return p.EndDate.AddDate(0, 0, 1)
}

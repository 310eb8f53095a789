package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParticipantProgress is one user's target, penalty and progress record
// within one period. Unique per (period, user). A participant without a row
// has not set a target yet and cannot log progress.
//
// CurrentAmount is maintained as the sum of DailyEntries by the single ledger
// write path; no other component writes it.
type ParticipantProgress struct {
	ID               string          `db:"id"`
	PeriodID         string          `db:"group_goal_period_id"`
	UserID           string          `db:"user_id"`
	TargetAmount     decimal.Decimal `db:"target_amount"`
	CurrentAmount    decimal.Decimal `db:"current_amount"`
	PenaltyCarryOver decimal.Decimal `db:"penalty_carry_over"`
	DailyEntries     DailyEntries    `db:"daily_entries"`
	IsCompleted      bool            `db:"is_completed"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// EffectiveTarget is the target plus any penalty carried over from the prior
// period.
func (p *ParticipantProgress) EffectiveTarget() decimal.Decimal {
	return p.TargetAmount.Add(p.PenaltyCarryOver)
}

// CompletionPercentage returns progress against the effective target as a
// percentage, capped at 100.
func (p *ParticipantProgress) CompletionPercentage() float64 {
	target := p.EffectiveTarget()
	if target.IsZero() {
		return 0
	}
	pct, _ := p.CurrentAmount.Div(target).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}

// RemainingAmount returns the shortfall against the effective target, floored
// at zero.
func (p *ParticipantProgress) RemainingAmount() decimal.Decimal {
	remaining := p.EffectiveTarget().Sub(p.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// MetTarget reports whether the current amount has reached the effective
// target. The stored IsCompleted flag is recomputed from this on every ledger
// write.
func (p *ParticipantProgress) MetTarget() bool {
	return p.CurrentAmount.GreaterThanOrEqual(p.EffectiveTarget())
}

// HasFailed reports whether the participant missed their effective target in
// a period that has already ended.
func (p *ParticipantProgress) HasFailed(period *Period, now time.Time) bool {
	return period.HasEnded(now) && p.CurrentAmount.LessThan(p.EffectiveTarget())
}

// Penalty returns the amount carried into the next period: the exact
// shortfall for a failed participant, zero otherwise. Pure; safe to call for
// dry-run previews.
func (p *ParticipantProgress) Penalty(period *Period, now time.Time) decimal.Decimal {
	if !p.HasFailed(period, now) {
		return decimal.Zero
	}
	return p.RemainingAmount()
}

// DailyAmount returns the amount logged on a given calendar date.
func (p *ParticipantProgress) DailyAmount(date string) decimal.Decimal {
	return p.DailyEntries[date]
}

// Streak counts consecutive days with positive progress ending today or
// yesterday, walking backwards day by day.
func (p *ParticipantProgress) Streak(now time.Time) int {
	today := now.Format(DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(DateLayout)

	streak := 0
	expected := yesterday
	for _, date := range p.DailyEntries.Dates() {
		if !p.DailyEntries[date].IsPositive() {
			break
		}
		if date != expected && date != today {
			break
		}
		streak++
		day, err := time.Parse(DateLayout, date)
		if err != nil {
			break
		}
		expected = day.AddDate(0, 0, -1).Format(DateLayout)
	}
	return streak
}

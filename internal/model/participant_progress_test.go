package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(value string) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEffectiveTargetIncludesCarryOver(t *testing.T) {
	p := &ParticipantProgress{
		TargetAmount:     decimal.NewFromInt(10),
		PenaltyCarryOver: decimal.NewFromInt(4),
	}

	assert.True(t, p.EffectiveTarget().Equal(decimal.NewFromInt(14)))
}

func TestMetTargetUsesEffectiveTarget(t *testing.T) {
	p := &ParticipantProgress{
		TargetAmount:     decimal.NewFromInt(10),
		PenaltyCarryOver: decimal.NewFromInt(4),
		CurrentAmount:    decimal.NewFromInt(10),
	}

	// Hitting the nominal target is not enough with a penalty outstanding.
	assert.False(t, p.MetTarget())

	p.CurrentAmount = decimal.NewFromInt(14)
	assert.True(t, p.MetTarget())
}

func TestPenaltyIsExactShortfall(t *testing.T) {
	period := &Period{
		StartDate: day("2026-03-01"),
		EndDate:   day("2026-03-08"),
	}
	now := day("2026-03-09")

	p := &ParticipantProgress{
		TargetAmount:  decimal.NewFromInt(10),
		CurrentAmount: decimal.RequireFromString("7.5"),
	}

	assert.True(t, p.HasFailed(period, now))
	assert.Equal(t, "2.5", p.Penalty(period, now).String())
}

func TestPenaltyIncludesCarryOver(t *testing.T) {
	period := &Period{
		StartDate: day("2026-03-01"),
		EndDate:   day("2026-03-08"),
	}
	now := day("2026-03-09")

	p := &ParticipantProgress{
		TargetAmount:     decimal.NewFromInt(10),
		PenaltyCarryOver: decimal.NewFromInt(2),
		CurrentAmount:    decimal.NewFromInt(7),
	}

	// Shortfall is measured against the effective target: 10 + 2 - 7.
	assert.Equal(t, "5", p.Penalty(period, now).String())
}

func TestPenaltyZeroWhenTargetMet(t *testing.T) {
	period := &Period{
		StartDate: day("2026-03-01"),
		EndDate:   day("2026-03-08"),
	}
	now := day("2026-03-09")

	p := &ParticipantProgress{
		TargetAmount:  decimal.NewFromInt(10),
		CurrentAmount: decimal.NewFromInt(12),
	}

	assert.False(t, p.HasFailed(period, now))
	assert.True(t, p.Penalty(period, now).IsZero())
}

func TestPenaltyZeroWhilePeriodStillRunning(t *testing.T) {
	period := &Period{
		StartDate: day("2026-03-01"),
		EndDate:   day("2026-03-08"),
	}
	now := day("2026-03-05")

	p := &ParticipantProgress{
		TargetAmount:  decimal.NewFromInt(10),
		CurrentAmount: decimal.Zero,
	}

	assert.False(t, p.HasFailed(period, now))
	assert.True(t, p.Penalty(period, now).IsZero())
}

func TestCompletionPercentageCapped(t *testing.T) {
	p := &ParticipantProgress{
		TargetAmount:  decimal.NewFromInt(10),
		CurrentAmount: decimal.NewFromInt(25),
	}

	assert.Equal(t, float64(100), p.CompletionPercentage())
}

func TestCompletionPercentageZeroTarget(t *testing.T) {
	p := &ParticipantProgress{
		CurrentAmount: decimal.NewFromInt(5),
	}

	assert.Equal(t, float64(0), p.CompletionPercentage())
}

func TestRemainingAmountFloorsAtZero(t *testing.T) {
	p := &ParticipantProgress{
		TargetAmount:  decimal.NewFromInt(10),
		CurrentAmount: decimal.NewFromInt(12),
	}

	assert.True(t, p.RemainingAmount().IsZero())
}

func TestStreakCountsConsecutiveDays(t *testing.T) {
	now := day("2026-03-05")

	p := &ParticipantProgress{
		DailyEntries: DailyEntries{
			"2026-03-05": decimal.NewFromInt(1),
			"2026-03-04": decimal.NewFromInt(2),
			"2026-03-03": decimal.NewFromInt(1),
			"2026-03-01": decimal.NewFromInt(1), // gap on 03-02 ends the streak
		},
	}

	assert.Equal(t, 3, p.Streak(now))
}

func TestStreakZeroAfterGap(t *testing.T) {
	now := day("2026-03-05")

	p := &ParticipantProgress{
		DailyEntries: DailyEntries{
			"2026-03-01": decimal.NewFromInt(1),
		},
	}

	assert.Equal(t, 0, p.Streak(now))
}

func TestPeriodNextStartDate(t *testing.T) {
	period := &Period{
		StartDate: day("2026-03-01"),
		EndDate:   day("2026-03-08"),
	}

	assert.Equal(t, day("2026-03-09"), period.NextStartDate())
}

func TestGroupGoalPeriodEnd(t *testing.T) {
	weekly := &GroupGoal{PeriodType: PeriodTypeWeekly}
	assert.Equal(t, day("2026-03-08"), weekly.PeriodEnd(day("2026-03-01")))

	monthly := &GroupGoal{PeriodType: PeriodTypeMonthly}
	assert.Equal(t, day("2026-04-01"), monthly.PeriodEnd(day("2026-03-01")))
}

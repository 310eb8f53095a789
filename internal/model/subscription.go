package model

import (
	"fmt"
	"time"
)

type Subscription struct {
	ID                     string     `db:"id"`
	UserID                 string     `db:"user_id"`
	PlanID                 string     `db:"plan_id"`
	Status                 string     `db:"status"`
	Provider               string     `db:"provider"`
	ProviderCustomerID     *string    `db:"provider_customer_id"`
	ProviderSubscriptionID *string    `db:"provider_subscription_id"`
	CurrentPeriodEnd       *time.Time `db:"current_period_end"`
	Amount                 *int       `db:"amount"`
	Currency               string     `db:"currency"`
	Interval               *string    `db:"interval"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

const (
	ProviderPolar  = "polar"
	ProviderStripe = "stripe"
)

const (
	SubscriptionPlanFree    = "free"
	SubscriptionPlanPro     = "pro"
	SubscriptionPlanPremium = "premium"
)

const (
	SubscriptionIntervalMonthly = "monthly"
	SubscriptionIntervalYearly  = "yearly"
)

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

func (s *Subscription) IsPaid() bool {
	return s.PlanID != SubscriptionPlanFree && s.IsActive()
}

func (s *Subscription) FormatPrice() string {
	if s.Amount == nil || *s.Amount == 0 {
		return ""
	}

	currencySymbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
	}

	amount := float64(*s.Amount) / 100.0
	symbol := currencySymbols[s.Currency]
	if symbol == "" {
		symbol = "$"
	}

	interval := "month"
	if s.Interval != nil && *s.Interval == SubscriptionIntervalYearly {
		interval = "year"
	}

	return fmt.Sprintf("%s%.0f/%s", symbol, amount, interval)
}

// GoalLimit returns the maximum number of active personal goals for this plan.
// Returns -1 for unlimited.
func (s *Subscription) GoalLimit() int {
	if !s.IsActive() {
		return 3
	}

	switch s.PlanID {
	case SubscriptionPlanFree:
		return 3
	case SubscriptionPlanPro:
		return 25
	case SubscriptionPlanPremium:
		return -1
	default:
		return 3
	}
}

// GroupLimit returns how many groups this plan may create. Group features are
// the premium surface: free users can join groups but not create them.
func (s *Subscription) GroupLimit() int {
	if !s.IsActive() {
		return 0
	}

	switch s.PlanID {
	case SubscriptionPlanFree:
		return 0
	case SubscriptionPlanPro:
		return 3
	case SubscriptionPlanPremium:
		return -1
	default:
		return 0
	}
}

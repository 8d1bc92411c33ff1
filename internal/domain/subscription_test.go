package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]SubscriptionStatus{
		"active":     SubscriptionStatusActive,
		"cancelled":  SubscriptionStatusCancelled,
		"canceled":   SubscriptionStatusCancelled,
		"Canceled":   SubscriptionStatusCancelled,
		" CANCELLED": SubscriptionStatusCancelled,
		"on_trial":   SubscriptionStatusOnTrial,
		"past_due":   SubscriptionStatusPastDue,
		"expired":    SubscriptionStatusExpired,
	}

	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), "raw=%q", raw)
	}
}

func TestCharacterLimitForPlan(t *testing.T) {
	cases := map[Plan]int{
		PlanFree:    10000,
		PlanStarter: 100000,
		PlanPro:     1000000,
	}

	for plan, want := range cases {
		limit, err := CharacterLimitForPlan(plan)
		require.NoError(t, err)
		assert.Equal(t, want, limit, "plan=%q", plan)
	}

	_, err := CharacterLimitForPlan(Plan("Enterprise"))
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestVariantIDForPlan(t *testing.T) {
	starter, err := VariantIDForPlan(PlanStarter)
	require.NoError(t, err)
	assert.Equal(t, "472351", starter)

	pro, err := VariantIDForPlan(PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "472366", pro)

	// Бесплатный план не покупается
	_, err = VariantIDForPlan(PlanFree)
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestAvailableUpgrades(t *testing.T) {
	free := AvailableUpgrades(PlanFree)
	require.Len(t, free, 2)
	assert.Equal(t, PlanStarter, free[0].Plan)
	assert.Equal(t, PlanPro, free[1].Plan)

	starter := AvailableUpgrades(PlanStarter)
	require.Len(t, starter, 1)
	assert.Equal(t, PlanPro, starter[0].Plan)

	assert.Empty(t, AvailableUpgrades(PlanPro))
}

func TestIsActive(t *testing.T) {
	s := Subscription{Status: SubscriptionStatusActive}
	assert.True(t, s.IsActive())

	for _, status := range []SubscriptionStatus{
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
		SubscriptionStatusPastDue,
		SubscriptionStatusOnTrial,
	} {
		s.Status = status
		assert.False(t, s.IsActive(), "status=%q", status)
	}
}

func TestFreeTierDetails(t *testing.T) {
	now := time.Now()
	details := FreeTierDetails(now)

	assert.Equal(t, PlanFree, details.Plan)
	assert.Equal(t, SubscriptionStatusFree, details.Status)
	assert.Equal(t, FreeMonthlyCharacterLimit, details.MonthlyCharacterLimit)
	assert.Equal(t, now, details.CreatedAt)
	assert.Nil(t, details.RenewsAt)
	assert.Len(t, details.AvailableUpgrades, 2)
}

func TestSubscriptionDetails(t *testing.T) {
	renewsAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	s := Subscription{
		UserID:                "user-1",
		Plan:                  PlanStarter,
		Status:                SubscriptionStatusActive,
		MonthlyCharacterLimit: 100000,
		RenewsAt:              &renewsAt,
	}

	details := s.Details()
	assert.Equal(t, PlanStarter, details.Plan)
	assert.Equal(t, SubscriptionStatusActive, details.Status)
	assert.Equal(t, 100000, details.MonthlyCharacterLimit)
	require.NotNil(t, details.RenewsAt)
	assert.Equal(t, renewsAt, *details.RenewsAt)
	require.Len(t, details.AvailableUpgrades, 1)
	assert.Equal(t, PlanPro, details.AvailableUpgrades[0].Plan)
}

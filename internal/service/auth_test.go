package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainforge/internal/model"
)

func TestRegisterCreatesFreeSubscription(t *testing.T) {
	f := newFixture(t)

	user, err := f.auth.Register("New@Example.COM", "New User", "a-long-enough-password")
	require.NoError(t, err)

	// Email is normalized before storage.
	assert.Equal(t, "new@example.com", user.Email)

	sub, err := f.subscriptions.Subscription(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionPlanFree, sub.PlanID)
	assert.True(t, sub.IsActive())
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register("not-an-email", "User", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.auth.Register("user@example.com", "", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = f.auth.Register("user@example.com", "User", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "taken@example.com")

	_, err := f.auth.Register("taken@example.com", "Someone Else", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "login@example.com")

	user, err := f.auth.Login("Login@example.com", "a-long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", user.Email)

	_, err = f.auth.Login("login@example.com", "wrong-password-entirely")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login("nobody@example.com", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTRoundTrip(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "jwt@example.com")

	token, err := f.auth.GenerateJWT(user)
	require.NoError(t, err)

	claims, err := f.auth.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Email, claims["email"])

	_, err = f.auth.VerifyJWT(token + "tampered")
	assert.Error(t, err)
}

func TestSubscriptionDowngrade(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "churn@example.com")
	f.upgradeToPremium(t, user.ID)

	sub, err := f.subscriptions.Subscription(user.ID)
	require.NoError(t, err)
	require.NoError(t, f.subscriptions.DowngradeToFree(sub))

	sub, err = f.subscriptions.Subscription(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionPlanFree, sub.PlanID)
}

package usecase

import (
	"context"
	"testing"
	"time"

	"flightcast-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLifecycle(t *testing.T) (*SubscriptionLifecycle, *memSubRepo) {
	t.Helper()
	repo := newMemSubRepo()
	sl := NewSubscriptionLifecycle(repo, noplog())
	sl.SetClock(func() time.Time { return testNow })
	return sl, repo
}

func newTestSubscription() *entity.Subscription {
	return &entity.Subscription{
		Email:        "pax@example.com",
		FlightNumber: "AA123",
		FlightDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Consent: entity.Consent{
			Given:          true,
			DataProcessing: true,
			RetentionDays:  30,
		},
	}
}

func createTestSubscription(t *testing.T, sl *SubscriptionLifecycle) *entity.Subscription {
	t.Helper()
	sub, err := sl.CreateSubscription(context.Background(), newTestSubscription())
	require.NoError(t, err)
	return sub
}

func TestCreateSubscription(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	assert.Equal(t, entity.SubscriptionPending, sub.Status())
	assert.True(t, sub.IsActive)
	assert.NotEmpty(t, sub.Verification.Token)
	assert.NotEmpty(t, sub.Unsubscribe.Token)
	require.NotNil(t, sub.ExpiresAt)

	// flightDate+7d (Mar 22) beats consent+30d (Apr 9)
	wantExpiry := sub.FlightDate.Add(7 * 24 * time.Hour)
	assert.Equal(t, wantExpiry, *sub.ExpiresAt)
}

func TestCreateSubscriptionExpiryUsesRetentionWhenEarlier(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	in := newTestSubscription()
	in.Consent.RetentionDays = 5

	sub, err := sl.CreateSubscription(context.Background(), in)
	require.NoError(t, err)

	wantExpiry := testNow.AddDate(0, 0, 5)
	assert.Equal(t, wantExpiry, *sub.ExpiresAt)
}

func TestCreateSubscriptionRequiresConsent(t *testing.T) {
	sl, _ := newTestLifecycle(t)

	in := newTestSubscription()
	in.Consent.Given = false
	_, err := sl.CreateSubscription(context.Background(), in)
	var ve *entity.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "consent.given", ve.Field)

	in = newTestSubscription()
	in.Consent.DataProcessing = false
	_, err = sl.CreateSubscription(context.Background(), in)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "consent.dataProcessing", ve.Field)
}

func TestCreateSubscriptionDuplicateConflicts(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	createTestSubscription(t, sl)

	_, err := sl.CreateSubscription(context.Background(), newTestSubscription())
	var ce *entity.ConflictError
	require.ErrorAs(t, err, &ce)
}

func TestVerifySuccessThenAlreadyVerified(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)
	token := sub.Verification.Token

	got, err := sl.Verify(context.Background(), sub, token)
	require.NoError(t, err)
	assert.True(t, got.Verification.IsVerified)
	assert.Empty(t, got.Verification.Token)
	assert.Nil(t, got.Verification.TokenExpiry)
	assert.Equal(t, entity.SubscriptionActive, got.Status())

	// Second call with the original token must fail: verified exactly once
	_, err = sl.Verify(context.Background(), sub, token)
	assert.ErrorIs(t, err, entity.ErrAlreadyVerified)
}

func TestVerifyExpiredToken(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	expired := testNow.Add(-time.Minute)
	sub.Verification.TokenExpiry = &expired

	_, err := sl.Verify(context.Background(), sub, sub.Verification.Token)
	assert.ErrorIs(t, err, entity.ErrTokenExpired)
	assert.False(t, sub.Verification.IsVerified)
}

func TestVerifyMismatchCountsAttemptAndPersists(t *testing.T) {
	sl, repo := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)
	savedBefore := repo.saved

	_, err := sl.Verify(context.Background(), sub, "wrong-token")
	assert.ErrorIs(t, err, entity.ErrInvalidToken)
	assert.Equal(t, 1, sub.Verification.Attempts)
	assert.Equal(t, savedBefore+1, repo.saved)
}

func TestVerifyMaxAttemptsExceeded(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	for i := 0; i < entity.MaxVerificationAttempts; i++ {
		_, err := sl.Verify(context.Background(), sub, "wrong-token")
		assert.ErrorIs(t, err, entity.ErrInvalidToken)
	}

	// Even the correct token is refused now
	_, err := sl.Verify(context.Background(), sub, sub.Verification.Token)
	assert.ErrorIs(t, err, entity.ErrMaxAttemptsExceeded)
}

func TestUnsubscribeWithToken(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	got, err := sl.DoUnsubscribe(context.Background(), sub, sub.Unsubscribe.Token, entity.Actor{ID: "pax"}, "too many emails", "")
	require.NoError(t, err)

	assert.True(t, got.Unsubscribe.IsUnsubscribed)
	assert.False(t, got.IsActive)
	assert.Equal(t, entity.SubscriptionUnsubscribed, got.Status())
	assert.Equal(t, "too many emails", got.Unsubscribe.Reason)

	_, err = sl.DoUnsubscribe(context.Background(), sub, sub.Unsubscribe.Token, entity.Actor{ID: "pax"}, "", "")
	assert.ErrorIs(t, err, entity.ErrAlreadyUnsubscribed)
}

func TestUnsubscribeTokenRules(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	// Wrong token
	_, err := sl.DoUnsubscribe(context.Background(), sub, "bogus", entity.Actor{ID: "pax"}, "", "")
	assert.ErrorIs(t, err, entity.ErrInvalidToken)

	// Missing token, non-admin
	_, err = sl.DoUnsubscribe(context.Background(), sub, "", entity.Actor{ID: "pax"}, "", "")
	assert.ErrorIs(t, err, entity.ErrInvalidToken)

	// Missing token, admin
	_, err = sl.DoUnsubscribe(context.Background(), sub, "", entity.Actor{ID: "support", IsAdmin: true}, "passenger request", "")
	assert.NoError(t, err)
}

func TestReactivate(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	_, err := sl.Reactivate(context.Background(), sub)
	assert.ErrorIs(t, err, entity.ErrNotUnsubscribed)

	_, err = sl.DoUnsubscribe(context.Background(), sub, sub.Unsubscribe.Token, entity.Actor{ID: "pax"}, "", "")
	require.NoError(t, err)

	got, err := sl.Reactivate(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, entity.SubscriptionPending, got.Status()) // never verified
}

func TestReactivateExpiredStaysUnsubscribed(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)
	_, err := sl.DoUnsubscribe(context.Background(), sub, sub.Unsubscribe.Token, entity.Actor{ID: "pax"}, "", "")
	require.NoError(t, err)

	expired := testNow.Add(-time.Hour)
	sub.ExpiresAt = &expired

	_, err = sl.Reactivate(context.Background(), sub)
	assert.ErrorIs(t, err, entity.ErrExpired)
	assert.True(t, sub.Unsubscribe.IsUnsubscribed)
	assert.False(t, sub.IsActive)
}

func TestAddNotificationTruncatesHistory(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	for i := 0; i < entity.MaxNotificationHistory; i++ {
		_, err := sl.AddNotification(context.Background(), sub, entity.NotifyStatusChanges, entity.MethodEmail, entity.DeliverySent, "m", "")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(sub.Stats.History), entity.MaxNotificationHistory)
	}
	assert.Len(t, sub.Stats.History, entity.MaxNotificationHistory)

	// The 101st record trips the truncation down to the 50 most recent
	_, err := sl.AddNotification(context.Background(), sub, entity.NotifyDelays, entity.MethodEmail, entity.DeliverySent, "newest", "")
	require.NoError(t, err)
	require.Len(t, sub.Stats.History, entity.TruncatedNotificationHistory)

	// Newest entry survived, at the tail
	assert.Equal(t, "newest", sub.Stats.History[len(sub.Stats.History)-1].MessageID)
	// Order among the kept entries is preserved, oldest first
	for i := 1; i < len(sub.Stats.History); i++ {
		assert.False(t, sub.Stats.History[i].Timestamp.Before(sub.Stats.History[i-1].Timestamp))
	}

	assert.Equal(t, entity.MaxNotificationHistory+1, sub.Stats.TotalSent)
	assert.Equal(t, entity.MaxNotificationHistory+1, sub.Stats.PerMethod[entity.MethodEmail])
	require.NotNil(t, sub.Stats.LastSent)
}

func TestRequestDataExport(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	token, err := sl.RequestDataExport(context.Background(), sub)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.Len(t, sub.Exports, 1)
	assert.Equal(t, token, sub.Exports[0].Token)
	assert.Equal(t, testNow.Add(7*24*time.Hour), sub.Exports[0].ExpiresAt)
}

func TestRequestDeletion(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)

	got, err := sl.RequestDeletion(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, got.Deletion.Requested)
	require.NotNil(t, got.Deletion.RequestedAt)
}

func TestUpdateRetentionOnlyTightens(t *testing.T) {
	sl, _ := newTestLifecycle(t)
	sub := createTestSubscription(t, sl)
	initial := *sub.ExpiresAt // flightDate + 7d

	// Shorter retention tightens the expiry
	got, err := sl.UpdateRetention(context.Background(), sub, 10)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, 10), *got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Before(initial))

	// A longer retention never relaxes it back
	got, err = sl.UpdateRetention(context.Background(), sub, 365)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, 10), *got.ExpiresAt)
}

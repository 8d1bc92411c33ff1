package repository

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

func testSubscription(userID string) domain.Subscription {
	now := time.Now()
	return domain.Subscription{
		UserID:                userID,
		CustomerID:            "4212360",
		SubscriptionID:        "sub-100",
		Plan:                  domain.PlanStarter,
		Status:                domain.SubscriptionStatusActive,
		MonthlyCharacterLimit: 100000,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func TestInMemoryGetByUserIDNotFound(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(newTestLogger())

	_, err := repo.GetByUserID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInMemoryUpsertCreatesRecord(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(newTestLogger())
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, testSubscription("user-1"))
	require.NoError(t, err)

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestInMemoryUpsertKeepsImmutableFields(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(newTestLogger())
	ctx := context.Background()

	first, err := repo.Upsert(ctx, testSubscription("user-1"))
	require.NoError(t, err)

	replacement := testSubscription("user-1")
	replacement.Plan = domain.PlanPro
	replacement.MonthlyCharacterLimit = 1000000
	replacement.CustomerID = "999"
	replacement.CreatedAt = time.Now().Add(time.Hour)
	replacement.UpdatedAt = time.Now().Add(time.Hour)

	second, err := repo.Upsert(ctx, replacement)
	require.NoError(t, err)

	assert.Equal(t, domain.PlanPro, second.Plan)
	assert.Equal(t, 1000000, second.MonthlyCharacterLimit)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, first.CustomerID, second.CustomerID)
}

func TestInMemoryUpdateStatus(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(newTestLogger())
	ctx := context.Background()

	_, err := repo.Upsert(ctx, testSubscription("user-1"))
	require.NoError(t, err)

	updatedAt := time.Now().Add(time.Minute)
	require.NoError(t, repo.UpdateStatus(ctx, "user-1", domain.SubscriptionStatusCancelled, updatedAt))

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCancelled, got.Status)
	assert.Equal(t, updatedAt, got.UpdatedAt)

	// План и лимит не меняются при смене статуса
	assert.Equal(t, domain.PlanStarter, got.Plan)
	assert.Equal(t, 100000, got.MonthlyCharacterLimit)
}

func TestInMemoryUpdateStatusNotFound(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(newTestLogger())

	err := repo.UpdateStatus(context.Background(), "missing", domain.SubscriptionStatusCancelled, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInMemoryConcurrentUpserts(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(newTestLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Upsert(ctx, testSubscription("user-1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
}

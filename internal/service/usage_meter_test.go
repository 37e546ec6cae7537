package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/plan"
	"Lynx-Backend/internal/repository"
	"Lynx-Backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMeter(t *testing.T, storage repository.Storage) *service.UsageMeter {
	t.Helper()

	log := zap.NewNop()
	plans, err := plan.NewCache(context.Background(), storage, log)
	require.NoError(t, err)
	return service.NewUsageMeter(storage, plans, log)
}

func TestTryReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves up to the limit and then denies", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		for i := 0; i < 5; i++ {
			check, err := meter.TryReserve(ctx, freeUserID, domain.ActionCreateLink)
			require.NoError(t, err)
			assert.True(t, check.Allowed, "reservation %d", i+1)
		}

		check, err := meter.TryReserve(ctx, freeUserID, domain.ActionCreateLink)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.Equal(t, int64(5), check.Current)
		assert.Equal(t, int64(5), check.Limit)
	})

	t.Run("concurrent reservations at the last unit admit exactly one", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		// Burn the budget down to one remaining unit.
		for i := 0; i < 4; i++ {
			check, err := meter.TryReserve(ctx, freeUserID, domain.ActionCreateLink)
			require.NoError(t, err)
			require.True(t, check.Allowed)
		}

		const contenders = 16
		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0

		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				check, err := meter.TryReserve(ctx, freeUserID, domain.ActionCreateLink)
				require.NoError(t, err)
				if check.Allowed {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, admitted)

		record, err := storage.GetUsage(ctx, freeUserID, domain.MonthKey(time.Now()))
		require.NoError(t, err)
		assert.Equal(t, int64(5), record.LinksCreated)
	})

	t.Run("unlimited limit never denies", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		for i := 0; i < 100; i++ {
			check, err := meter.TryReserve(ctx, premiumUserID, domain.ActionCreateLink)
			require.NoError(t, err)
			assert.True(t, check.Allowed)
			assert.Equal(t, domain.Unlimited, check.Limit)
		}
	})

	t.Run("lapsed paid subscription denies without consuming", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		check, err := meter.TryReserve(ctx, lapsedUserID, domain.ActionCreateLink)
		require.NoError(t, err)
		assert.False(t, check.Allowed)

		record, err := storage.GetUsage(ctx, lapsedUserID, domain.MonthKey(time.Now()))
		require.NoError(t, err)
		assert.Zero(t, record.LinksCreated)
	})

	t.Run("unknown user", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		_, err := meter.TryReserve(ctx, 9999, domain.ActionCreateLink)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestCheckLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("reports without consuming", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		first, err := meter.CheckLimit(ctx, freeUserID, domain.ActionCreateLink)
		require.NoError(t, err)
		assert.True(t, first.Allowed)
		assert.Zero(t, first.Current)

		second, err := meter.CheckLimit(ctx, freeUserID, domain.ActionCreateLink)
		require.NoError(t, err)
		assert.Zero(t, second.Current, "check must not consume quota")
	})

	t.Run("lapsed subscription denies even under the limit", func(t *testing.T) {
		storage := seedStorage(t)
		meter := newMeter(t, storage)

		check, err := meter.CheckLimit(ctx, lapsedUserID, domain.ActionCreateLink)
		require.NoError(t, err)
		assert.False(t, check.Allowed)
	})
}

func TestUsage(t *testing.T) {
	ctx := context.Background()
	storage := seedStorage(t)
	meter := newMeter(t, storage)

	require.NoError(t, meter.Increment(ctx, freeUserID, domain.ActionAPIRequest))
	require.NoError(t, meter.Increment(ctx, freeUserID, domain.ActionAPIRequest))

	record, userPlan, err := meter.Usage(ctx, freeUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), record.APIRequests)
	assert.Equal(t, domain.TierFree, userPlan.Tier)
	assert.Equal(t, domain.MonthKey(time.Now()), record.Month)
}

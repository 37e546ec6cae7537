package plan

import (
	"context"
	"errors"
	"testing"

	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"
	"Lynx-Backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededStorage() *memory.MemStorage {
	s := memory.New()
	s.PutPlan(&domain.Plan{ID: 1, Tier: domain.TierFree, LinksPerMonth: 25})
	s.PutPlan(&domain.Plan{ID: 2, Tier: domain.TierPro, LinksPerMonth: 500})
	s.PutPlan(&domain.Plan{ID: 3, Tier: domain.TierPremium, LinksPerMonth: domain.Unlimited})
	return s
}

// failingPlanStorage turns plan listing off after construction.
type failingPlanStorage struct {
	repository.Storage
	fail bool
}

func (s *failingPlanStorage) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	if s.fail {
		return nil, errors.New("connection refused")
	}
	return s.Storage.ListPlans(ctx)
}

func TestCacheForTier(t *testing.T) {
	cache, err := NewCache(context.Background(), seededStorage(), zap.NewNop())
	require.NoError(t, err)

	p, err := cache.ForTier(domain.TierPro)
	require.NoError(t, err)
	assert.Equal(t, int64(500), p.LinksPerMonth)

	_, err = cache.ForTier("enterprise")
	assert.ErrorIs(t, err, repository.ErrPlanNotFound)
}

func TestCacheAll(t *testing.T) {
	cache, err := NewCache(context.Background(), seededStorage(), zap.NewNop())
	require.NoError(t, err)

	all := cache.All()
	require.Len(t, all, 3)
	assert.Equal(t, domain.TierFree, all[0].Tier)
	assert.Equal(t, domain.TierPremium, all[2].Tier)
}

func TestCacheRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("picks up plan changes", func(t *testing.T) {
		storage := seededStorage()
		cache, err := NewCache(ctx, storage, zap.NewNop())
		require.NoError(t, err)

		storage.PutPlan(&domain.Plan{ID: 2, Tier: domain.TierPro, LinksPerMonth: 1000})
		require.NoError(t, cache.Refresh(ctx))

		p, err := cache.ForTier(domain.TierPro)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), p.LinksPerMonth)
	})

	t.Run("keeps the previous snapshot on failure", func(t *testing.T) {
		storage := &failingPlanStorage{Storage: seededStorage()}
		cache, err := NewCache(ctx, storage, zap.NewNop())
		require.NoError(t, err)

		storage.fail = true
		assert.Error(t, cache.Refresh(ctx))

		p, err := cache.ForTier(domain.TierFree)
		require.NoError(t, err)
		assert.Equal(t, int64(25), p.LinksPerMonth)
	})

	t.Run("initial load failure is fatal", func(t *testing.T) {
		storage := &failingPlanStorage{Storage: seededStorage(), fail: true}
		_, err := NewCache(ctx, storage, zap.NewNop())
		assert.Error(t, err)
	})
}

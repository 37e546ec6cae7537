package plan

import (
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache holds the subscription plan reference data. Plans change rarely
// (operator-managed seed data), so they are loaded once and refreshed on an
// interval. The cache is constructed in main and passed explicitly to
// whoever needs plan lookups; there is no package-level instance.
type Cache struct {
	storage repository.Storage
	log     *zap.Logger

	mu     sync.RWMutex
	byTier map[string]*domain.Plan
}

// NewCache loads the plans and returns a ready cache. Failing the initial
// load is fatal for the caller: quota checks cannot run without plans.
func NewCache(ctx context.Context, storage repository.Storage, log *zap.Logger) (*Cache, error) {
	c := &Cache{
		storage: storage,
		log:     log,
		byTier:  make(map[string]*domain.Plan),
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed initial plan load: %w", err)
	}
	return c, nil
}

// Refresh reloads the plan set from storage. On failure the previous
// snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	plans, err := c.storage.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh plans: %w", err)
	}

	byTier := make(map[string]*domain.Plan, len(plans))
	for _, p := range plans {
		byTier[p.Tier] = p
	}

	c.mu.Lock()
	c.byTier = byTier
	c.mu.Unlock()

	c.log.Debug("refreshed plan cache", zap.Int("plans", len(plans)))
	return nil
}

// Run refreshes the cache on the given interval until the context ends.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Warn("plan cache refresh failed, keeping previous snapshot", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// ForTier returns the plan for a tier.
func (c *Cache) ForTier(tier string) (*domain.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	plan, ok := c.byTier[tier]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	return plan, nil
}

// All returns every cached plan, ordered by ID.
func (c *Cache) All() []*domain.Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()

	plans := make([]*domain.Plan, 0, len(c.byTier))
	for _, p := range c.byTier {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans
}

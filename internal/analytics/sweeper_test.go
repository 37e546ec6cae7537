package analytics

import (
	"context"
	"testing"
	"time"

	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweeperRun(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()

	storage.PutPlan(&domain.Plan{ID: 1, Tier: domain.TierFree, AnalyticsRetentionDays: 30})
	storage.PutUser(&domain.User{ID: 1, Tier: domain.TierFree, SubscriptionStatus: domain.SubscriptionActive})
	require.NoError(t, storage.CreateLink(ctx, &domain.Link{ID: "link-1", ShortCode: "abc123", OwnerID: 1}))

	now := time.Now()
	require.NoError(t, storage.InsertEvent(ctx, &domain.AnalyticsEvent{ID: "stale", LinkID: "link-1", Timestamp: now.AddDate(0, 0, -45)}))
	require.NoError(t, storage.InsertEvent(ctx, &domain.AnalyticsEvent{ID: "fresh", LinkID: "link-1", Timestamp: now.AddDate(0, 0, -1)}))

	sweeper := NewSweeper(storage, zap.NewNop())
	deleted, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, storage.EventCount())

	// A second run finds nothing left to delete.
	deleted, err = sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

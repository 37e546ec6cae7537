package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLink(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects duplicate short codes", func(t *testing.T) {
		s := New()
		require.NoError(t, s.CreateLink(ctx, &domain.Link{ID: "a", ShortCode: "abc123", OriginalURL: "https://one.example.com"}))

		err := s.CreateLink(ctx, &domain.Link{ID: "b", ShortCode: "abc123", OriginalURL: "https://two.example.com"})
		assert.ErrorIs(t, err, repository.ErrCodeExists)

		stored, err := s.GetLinkByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://one.example.com", stored.OriginalURL)
	})

	t.Run("returned links are copies", func(t *testing.T) {
		s := New()
		require.NoError(t, s.CreateLink(ctx, &domain.Link{ID: "a", ShortCode: "abc123"}))

		got, err := s.GetLinkByShortCode(ctx, "abc123")
		require.NoError(t, err)
		got.OriginalURL = "mutated"

		again, err := s.GetLinkByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Empty(t, again.OriginalURL)
	})
}

func TestIncrementClicksConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateLink(ctx, &domain.Link{ID: "a", ShortCode: "abc123"}))

	const clicks = 200
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, s.IncrementClicks(ctx, "a"))
		}()
	}
	wg.Wait()

	stored, err := s.GetLinkByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), stored.ClickCount)
}

func TestListLinksByOwner(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateLink(ctx, &domain.Link{
			ID:        fmt.Sprintf("link-%d", i),
			ShortCode: fmt.Sprintf("code%d", i),
			OwnerID:   1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.CreateLink(ctx, &domain.Link{ID: "other", ShortCode: "other1", OwnerID: 2}))

	t.Run("newest first", func(t *testing.T) {
		links, err := s.ListLinksByOwner(ctx, 1, 10, 0)
		require.NoError(t, err)
		require.Len(t, links, 5)
		assert.Equal(t, "link-4", links[0].ID)
		assert.Equal(t, "link-0", links[4].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		links, err := s.ListLinksByOwner(ctx, 1, 2, 2)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "link-2", links[0].ID)
		assert.Equal(t, "link-1", links[1].ID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		links, err := s.ListLinksByOwner(ctx, 1, 10, 99)
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestReserveUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at the limit", func(t *testing.T) {
		s := New()
		for i := 0; i < 3; i++ {
			ok, err := s.ReserveUsage(ctx, 1, "2026-08", domain.ActionCreateLink, 3)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := s.ReserveUsage(ctx, 1, "2026-08", domain.ActionCreateLink, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		record, err := s.GetUsage(ctx, 1, "2026-08")
		require.NoError(t, err)
		assert.Equal(t, int64(3), record.LinksCreated)
	})

	t.Run("unlimited never refuses", func(t *testing.T) {
		s := New()
		for i := 0; i < 100; i++ {
			ok, err := s.ReserveUsage(ctx, 1, "2026-08", domain.ActionAPIRequest, domain.Unlimited)
			require.NoError(t, err)
			require.True(t, ok)
		}
	})

	t.Run("concurrent contention admits the exact budget", func(t *testing.T) {
		s := New()
		const limit = 10
		const contenders = 100

		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.ReserveUsage(ctx, 1, "2026-08", domain.ActionCreateLink, limit)
				require.NoError(t, err)
				if ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, admitted)
	})

	t.Run("months are tracked separately", func(t *testing.T) {
		s := New()
		ok, err := s.ReserveUsage(ctx, 1, "2026-07", domain.ActionCreateLink, 1)
		require.NoError(t, err)
		require.True(t, ok)

		// The new month starts from a fresh counter.
		ok, err = s.ReserveUsage(ctx, 1, "2026-08", domain.ActionCreateLink, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestUpdateSubscription(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutUser(&domain.User{ID: 1, Tier: domain.TierPro, SubscriptionStatus: domain.SubscriptionActive})

	// Billing webhook marks the subscription lapsed.
	require.NoError(t, s.UpdateSubscription(ctx, 1, domain.TierPro, domain.SubscriptionLapsed))

	user, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionLapsed, user.SubscriptionStatus)
	assert.True(t, user.PaidTierLapsed())

	assert.ErrorIs(t, s.UpdateSubscription(ctx, 99, domain.TierPro, domain.SubscriptionActive), repository.ErrUserNotFound)
}

func TestSweepExpiredEvents(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.PutPlan(&domain.Plan{ID: 1, Tier: domain.TierFree, AnalyticsRetentionDays: 30})
	s.PutPlan(&domain.Plan{ID: 3, Tier: domain.TierPremium, AnalyticsRetentionDays: domain.Unlimited})
	s.PutUser(&domain.User{ID: 1, Tier: domain.TierFree, SubscriptionStatus: domain.SubscriptionActive})
	s.PutUser(&domain.User{ID: 2, Tier: domain.TierPremium, SubscriptionStatus: domain.SubscriptionActive})

	require.NoError(t, s.CreateLink(ctx, &domain.Link{ID: "free-link", ShortCode: "free01", OwnerID: 1}))
	require.NoError(t, s.CreateLink(ctx, &domain.Link{ID: "prem-link", ShortCode: "prem01", OwnerID: 2}))

	now := time.Now()
	old := now.AddDate(0, 0, -60)
	fresh := now.AddDate(0, 0, -5)

	require.NoError(t, s.InsertEvent(ctx, &domain.AnalyticsEvent{ID: "e1", LinkID: "free-link", Timestamp: old}))
	require.NoError(t, s.InsertEvent(ctx, &domain.AnalyticsEvent{ID: "e2", LinkID: "free-link", Timestamp: fresh}))
	require.NoError(t, s.InsertEvent(ctx, &domain.AnalyticsEvent{ID: "e3", LinkID: "prem-link", Timestamp: old}))

	deleted, err := s.SweepExpiredEvents(ctx, now)
	require.NoError(t, err)

	// Only the free user's 60-day-old event falls outside its 30-day window;
	// unlimited retention never sweeps.
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, s.EventsForLink("free-link"), 1)
	assert.Len(t, s.EventsForLink("prem-link"), 1)
}

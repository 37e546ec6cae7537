package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupStorage starts a throwaway PostgreSQL container. Set INTEGRATION_TESTS
// to run these; they need a Docker daemon.
func setupStorage(t *testing.T) *PostgresStorage {
	t.Helper()

	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS to run PostgreSQL integration tests")
	}

	ctx := context.Background()
	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("lynx_test"),
		tcpostgres.WithUsername("lynx"),
		tcpostgres.WithPassword("lynx"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Plan{},
		&domain.User{},
		&domain.Link{},
		&domain.UsageRecord{},
		&domain.AnalyticsEvent{},
	))

	return New(db, zap.NewNop())
}

func seedUser(t *testing.T, s *PostgresStorage, id int64, tier string, retentionDays int64) {
	t.Helper()
	require.NoError(t, s.db.Create(&domain.Plan{
		Tier: tier, DisplayName: tier,
		LinksPerMonth: 100, APIRequestsPerMonth: 1000,
		AnalyticsRetentionDays: retentionDays,
	}).Error)
	require.NoError(t, s.db.Create(&domain.User{
		ID: id, Tier: tier, SubscriptionStatus: domain.SubscriptionActive,
	}).Error)
}

func TestPostgresLinks(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()
	seedUser(t, s, 1, domain.TierFree, 30)

	t.Run("duplicate short code", func(t *testing.T) {
		require.NoError(t, s.CreateLink(ctx, &domain.Link{
			ID: "l1", OwnerID: 1, OriginalURL: "https://one.example.com", ShortCode: "dup123", IsActive: true,
		}))
		err := s.CreateLink(ctx, &domain.Link{
			ID: "l2", OwnerID: 1, OriginalURL: "https://two.example.com", ShortCode: "dup123", IsActive: true,
		})
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})

	t.Run("lookup is case sensitive", func(t *testing.T) {
		require.NoError(t, s.CreateLink(ctx, &domain.Link{
			ID: "l3", OwnerID: 1, OriginalURL: "https://example.com", ShortCode: "MiXeD1", IsActive: true,
		}))
		_, err := s.GetLinkByShortCode(ctx, "mixed1")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)

		link, err := s.GetLinkByShortCode(ctx, "MiXeD1")
		require.NoError(t, err)
		assert.Equal(t, "l3", link.ID)
	})

	t.Run("concurrent click increments all land", func(t *testing.T) {
		require.NoError(t, s.CreateLink(ctx, &domain.Link{
			ID: "l4", OwnerID: 1, OriginalURL: "https://example.com", ShortCode: "clk123", IsActive: true,
		}))

		const clicks = 50
		var wg sync.WaitGroup
		for i := 0; i < clicks; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.IncrementClicks(ctx, "l4"))
			}()
		}
		wg.Wait()

		link, err := s.GetLinkByShortCode(ctx, "clk123")
		require.NoError(t, err)
		assert.Equal(t, int64(clicks), link.ClickCount)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		require.NoError(t, s.CreateLink(ctx, &domain.Link{
			ID: "l5", OwnerID: 1, OriginalURL: "https://example.com", ShortCode: "del123", IsActive: true,
		}))
		require.NoError(t, s.DeleteLink(ctx, "l5"))

		_, err := s.GetLinkByShortCode(ctx, "del123")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
		assert.ErrorIs(t, s.DeleteLink(ctx, "l5"), repository.ErrLinkNotFound)
	})
}

func TestPostgresReserveUsage(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()
	seedUser(t, s, 1, domain.TierFree, 30)
	month := domain.MonthKey(time.Now())

	t.Run("contended reservations admit the exact budget", func(t *testing.T) {
		const limit = 5
		const contenders = 30

		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.ReserveUsage(ctx, 1, month, domain.ActionCreateLink, limit)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, admitted)

		record, err := s.GetUsage(ctx, 1, month)
		require.NoError(t, err)
		assert.Equal(t, int64(limit), record.LinksCreated)
	})

	t.Run("unlimited reservations never refuse", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			ok, err := s.ReserveUsage(ctx, 1, month, domain.ActionAPIRequest, domain.Unlimited)
			require.NoError(t, err)
			require.True(t, ok)
		}
	})
}

func TestPostgresSweepExpiredEvents(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()
	seedUser(t, s, 1, domain.TierFree, 30)

	require.NoError(t, s.CreateLink(ctx, &domain.Link{
		ID: "l1", OwnerID: 1, OriginalURL: "https://example.com", ShortCode: "swp123", IsActive: true,
	}))

	now := time.Now()
	require.NoError(t, s.InsertEvent(ctx, &domain.AnalyticsEvent{
		ID: "stale", LinkID: "l1", Timestamp: now.AddDate(0, 0, -45),
	}))
	require.NoError(t, s.InsertEvent(ctx, &domain.AnalyticsEvent{
		ID: "fresh", LinkID: "l1", Timestamp: now.AddDate(0, 0, -1),
	}))

	deleted, err := s.SweepExpiredEvents(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	byDevice, err := s.CountEventsByDevice(ctx, "l1")
	require.NoError(t, err)
	var total int64
	for _, n := range byDevice {
		total += n
	}
	assert.Equal(t, int64(1), total)
}

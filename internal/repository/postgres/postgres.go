package postgres

import (
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// usageColumns maps counted actions to their columns. Fixed allowlist: the
// column name is interpolated into SQL expressions and must never come from
// request input.
var usageColumns = map[domain.Action]string{
	domain.ActionCreateLink:     "links_created",
	domain.ActionAPIRequest:     "api_requests",
	domain.ActionCustomDomain:   "custom_domains_used",
	domain.ActionAnalyticsEvent: "analytics_events",
}

// PostgresStorage implements the Storage interface on PostgreSQL.
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new PostgreSQL storage instance
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// Ping verifies database connectivity for health checks.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// --- Link Methods ---

// CreateLink inserts a new link. Uniqueness of the short code is enforced by
// the unique constraint on links.short_code: a concurrent insert with the
// same code surfaces as ErrCodeExists, there is no check-then-insert window.
func (s *PostgresStorage) CreateLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to create link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetLinkByShortCode looks up a link by its exact short code. The match is
// case-sensitive, no normalization: text comparison in PostgreSQL is already
// exact and the caller must not fold case either.
func (s *PostgresStorage) GetLinkByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// IncrementClicks atomically bumps the click counter. The add happens inside
// the database so concurrent redirects on the same link never lose updates.
func (s *PostgresStorage) IncrementClicks(ctx context.Context, linkID string) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", linkID).
		UpdateColumn("click_count", gorm.Expr("click_count + 1"))
	if result.Error != nil {
		s.log.Error("failed to increment clicks", zap.String("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to increment clicks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

// ListLinksByOwner returns the owner's links newest first. Pagination is not
// stable across concurrent inserts; acceptable for a listing endpoint.
func (s *PostgresStorage) ListLinksByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to list links", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return links, nil
}

// UpdateLink saves mutable link fields.
func (s *PostgresStorage) UpdateLink(ctx context.Context, link *domain.Link) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"original_url":  link.OriginalURL,
			"custom_domain": link.CustomDomain,
			"title":         link.Title,
			"is_active":     link.IsActive,
			"expires_at":    link.ExpiresAt,
		})
	if result.Error != nil {
		s.log.Error("failed to update link", zap.String("link_id", link.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

// DeleteLink removes the link row. Hard delete; the short code is still
// never reused because generated codes are random and custom codes collide
// against analytics retention, not resurrection, per the data model.
func (s *PostgresStorage) DeleteLink(ctx context.Context, linkID string) error {
	result := s.db.WithContext(ctx).Where("id = ?", linkID).Delete(&domain.Link{})
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.String("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("deleted link", zap.String("link_id", linkID))
	return nil
}

// --- Usage Methods ---

// GetUsage reads the user's record for the month, creating a zeroed one if
// this is the first access in that month.
func (s *PostgresStorage) GetUsage(ctx context.Context, userID int64, month string) (*domain.UsageRecord, error) {
	if err := s.ensureUsageRecord(ctx, userID, month); err != nil {
		return nil, err
	}

	var record domain.UsageRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month).
		First(&record).Error
	if err != nil {
		s.log.Error("failed to get usage record", zap.Int64("user_id", userID), zap.String("month", month), zap.Error(err))
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return &record, nil
}

// IncrementUsage adds 1 to the action's counter without a ceiling check.
// Used for counters that are informational rather than gating.
func (s *PostgresStorage) IncrementUsage(ctx context.Context, userID int64, month string, action domain.Action) error {
	column, ok := usageColumns[action]
	if !ok {
		return fmt.Errorf("unknown usage action %q", action)
	}

	if err := s.ensureUsageRecord(ctx, userID, month); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Model(&domain.UsageRecord{}).
		Where("user_id = ? AND month = ?", userID, month).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	if err != nil {
		s.log.Error("failed to increment usage", zap.Int64("user_id", userID), zap.String("action", string(action)), zap.Error(err))
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// ReserveUsage performs the quota check and the increment as one atomic
// conditional update: the counter is bumped only while it is still under the
// limit, and the rows-affected count decides the outcome. Two concurrent
// reservations at limit-1 therefore admit exactly one.
func (s *PostgresStorage) ReserveUsage(ctx context.Context, userID int64, month string, action domain.Action, limit int64) (bool, error) {
	column, ok := usageColumns[action]
	if !ok {
		return false, fmt.Errorf("unknown usage action %q", action)
	}

	if err := s.ensureUsageRecord(ctx, userID, month); err != nil {
		return false, err
	}

	query := s.db.WithContext(ctx).Model(&domain.UsageRecord{}).
		Where("user_id = ? AND month = ?", userID, month)
	if limit != domain.Unlimited {
		query = query.Where(column+" < ?", limit)
	}

	result := query.UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		s.log.Error("failed to reserve usage",
			zap.Int64("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to reserve usage: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ensureUsageRecord lazily creates the month's zeroed record. ON CONFLICT DO
// NOTHING keeps concurrent first accesses idempotent.
func (s *PostgresStorage) ensureUsageRecord(ctx context.Context, userID int64, month string) error {
	record := domain.UsageRecord{UserID: userID, Month: month}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		s.log.Error("failed to ensure usage record", zap.Int64("user_id", userID), zap.String("month", month), zap.Error(err))
		return fmt.Errorf("failed to ensure usage record: %w", err)
	}
	return nil
}

// --- User and Plan Methods ---

// GetUser returns the user's tier and subscription status.
func (s *PostgresStorage) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpdateSubscription flips the user's tier and subscription status. Called
// from the billing webhook relay, which lives outside this core.
func (s *PostgresStorage) UpdateSubscription(ctx context.Context, userID int64, tier, status string) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"tier": tier, "subscription_status": status})
	if result.Error != nil {
		s.log.Error("failed to update subscription", zap.Int64("user_id", userID), zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	s.log.Info("updated subscription",
		zap.Int64("user_id", userID),
		zap.String("tier", tier),
		zap.String("status", status))
	return nil
}

// ListPlans returns all subscription plans.
func (s *PostgresStorage) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	var plans []*domain.Plan

	err := s.db.WithContext(ctx).Order("id").Find(&plans).Error
	if err != nil {
		s.log.Error("failed to list plans", zap.Error(err))
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	return plans, nil
}

// --- Analytics Methods ---

// InsertEvent appends one analytics event.
func (s *PostgresStorage) InsertEvent(ctx context.Context, event *domain.AnalyticsEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.log.Error("failed to insert analytics event", zap.String("link_id", event.LinkID), zap.Error(err))
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// CountEventsByDevice returns the click breakdown by device type for a link.
func (s *PostgresStorage) CountEventsByDevice(ctx context.Context, linkID string) (map[string]int64, error) {
	var results []struct {
		DeviceType string `gorm:"column:device_type"`
		Count      int64  `gorm:"column:count"`
	}

	err := s.db.WithContext(ctx).
		Model(&domain.AnalyticsEvent{}).
		Select("COALESCE(device_type, 'unknown') as device_type, count(*) as count").
		Where("link_id = ?", linkID).
		Group("device_type").
		Find(&results).Error
	if err != nil {
		s.log.Error("failed to count events by device", zap.String("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to count events by device: %w", err)
	}

	byDevice := make(map[string]int64, len(results))
	for _, r := range results {
		byDevice[r.DeviceType] = r.Count
	}

	return byDevice, nil
}

// SweepExpiredEvents deletes events older than the owning user's plan
// retention window. One set-based DELETE: idempotent, safe to run
// concurrently with new event writes, and a no-op for unlimited retention.
func (s *PostgresStorage) SweepExpiredEvents(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`
		DELETE FROM analytics_events ae
		USING links l, users u, subscription_plans p
		WHERE ae.link_id = l.id
		  AND l.owner_id = u.id
		  AND p.tier = u.tier
		  AND p.analytics_retention_days >= 0
		  AND ae.timestamp < ?::timestamptz - (p.analytics_retention_days * interval '1 day')`,
		now)
	if result.Error != nil {
		s.log.Error("failed to sweep expired events", zap.Error(result.Error))
		return 0, fmt.Errorf("failed to sweep expired events: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.log.Info("swept expired analytics events", zap.Int64("deleted", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

package repository

import (
	"Lynx-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrPlanNotFound = errors.New("plan not found")
)

// Storage is the single datastore boundary. All cross-request coordination
// (uniqueness, counter increments, quota reservations) happens inside the
// datastore via atomic operations, never with in-process locks, so multiple
// instances can share one database.
type Storage interface {
	// Link methods
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLinkByShortCode(ctx context.Context, code string) (*domain.Link, error)
	IncrementClicks(ctx context.Context, linkID string) error
	ListLinksByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Link, error)
	UpdateLink(ctx context.Context, link *domain.Link) error
	DeleteLink(ctx context.Context, linkID string) error

	// Usage methods
	GetUsage(ctx context.Context, userID int64, month string) (*domain.UsageRecord, error)
	IncrementUsage(ctx context.Context, userID int64, month string, action domain.Action) error
	ReserveUsage(ctx context.Context, userID int64, month string, action domain.Action, limit int64) (bool, error)

	// User and plan methods
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpdateSubscription(ctx context.Context, userID int64, tier, status string) error
	ListPlans(ctx context.Context) ([]*domain.Plan, error)

	// Analytics methods
	InsertEvent(ctx context.Context, event *domain.AnalyticsEvent) error
	CountEventsByDevice(ctx context.Context, linkID string) (map[string]int64, error)
	SweepExpiredEvents(ctx context.Context, now time.Time) (int64, error)
}

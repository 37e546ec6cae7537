package service

import (
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/plan"
	"Lynx-Backend/internal/repository"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LimitCheck is the outcome of a quota check or reservation.
type LimitCheck struct {
	Allowed bool
	Current int64
	Limit   int64
}

// UsageMeter gates quota-limited actions against the user's plan. The
// month's usage record is created lazily on first access; a limit of -1
// never denies; a lapsed paid subscription always denies.
type UsageMeter struct {
	storage repository.Storage
	plans   *plan.Cache
	log     *zap.Logger
}

func NewUsageMeter(storage repository.Storage, plans *plan.Cache, log *zap.Logger) *UsageMeter {
	return &UsageMeter{
		storage: storage,
		plans:   plans,
		log:     log,
	}
}

// CheckLimit reports whether the action would currently be allowed, without
// consuming quota. Informational only: two requests can both pass a check
// before either increments, which is why the creation path uses TryReserve
// instead.
func (m *UsageMeter) CheckLimit(ctx context.Context, userID int64, action domain.Action) (LimitCheck, error) {
	user, userPlan, err := m.userPlan(ctx, userID)
	if err != nil {
		return LimitCheck{}, err
	}

	limit := userPlan.LimitFor(action)
	record, err := m.storage.GetUsage(ctx, userID, domain.MonthKey(time.Now()))
	if err != nil {
		return LimitCheck{}, fmt.Errorf("failed to read usage: %w", err)
	}
	current := record.Counter(action)

	if user.PaidTierLapsed() {
		return LimitCheck{Allowed: false, Current: current, Limit: limit}, nil
	}
	if limit == domain.Unlimited {
		return LimitCheck{Allowed: true, Current: current, Limit: limit}, nil
	}
	return LimitCheck{Allowed: current < limit, Current: current, Limit: limit}, nil
}

// TryReserve checks the quota and consumes one unit as a single atomic
// operation. The storage layer performs a conditional increment that only
// applies while the counter is under the limit, so concurrent reservations
// at limit-1 admit exactly one.
func (m *UsageMeter) TryReserve(ctx context.Context, userID int64, action domain.Action) (LimitCheck, error) {
	user, userPlan, err := m.userPlan(ctx, userID)
	if err != nil {
		return LimitCheck{}, err
	}

	limit := userPlan.LimitFor(action)
	month := domain.MonthKey(time.Now())

	if user.PaidTierLapsed() {
		record, err := m.storage.GetUsage(ctx, userID, month)
		if err != nil {
			return LimitCheck{}, fmt.Errorf("failed to read usage: %w", err)
		}
		m.log.Debug("denied action for lapsed subscription",
			zap.Int64("user_id", userID),
			zap.String("tier", user.Tier),
			zap.String("action", string(action)))
		return LimitCheck{Allowed: false, Current: record.Counter(action), Limit: limit}, nil
	}

	allowed, err := m.storage.ReserveUsage(ctx, userID, month, action, limit)
	if err != nil {
		return LimitCheck{}, fmt.Errorf("failed to reserve usage: %w", err)
	}

	record, err := m.storage.GetUsage(ctx, userID, month)
	if err != nil {
		// The reservation itself succeeded or failed atomically; losing the
		// readback only costs the current/limit numbers in the response.
		m.log.Warn("failed to read usage after reservation", zap.Int64("user_id", userID), zap.Error(err))
		return LimitCheck{Allowed: allowed, Current: 0, Limit: limit}, nil
	}

	return LimitCheck{Allowed: allowed, Current: record.Counter(action), Limit: limit}, nil
}

// Increment adds one to the action's counter without a ceiling check.
func (m *UsageMeter) Increment(ctx context.Context, userID int64, action domain.Action) error {
	return m.storage.IncrementUsage(ctx, userID, domain.MonthKey(time.Now()), action)
}

// Usage returns the user's current month counters together with the plan
// they are measured against.
func (m *UsageMeter) Usage(ctx context.Context, userID int64) (*domain.UsageRecord, *domain.Plan, error) {
	_, userPlan, err := m.userPlan(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	record, err := m.storage.GetUsage(ctx, userID, domain.MonthKey(time.Now()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return record, userPlan, nil
}

func (m *UsageMeter) userPlan(ctx context.Context, userID int64) (*domain.User, *domain.Plan, error) {
	user, err := m.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	userPlan, err := m.plans.ForTier(user.Tier)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get plan for tier %q: %w", user.Tier, err)
	}
	return user, userPlan, nil
}

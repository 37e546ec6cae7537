package memory

import (
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage is an in-process Storage implementation. It mirrors the atomic
// semantics of the PostgreSQL storage (unique short codes, conditional quota
// reservations, lost-update-free click counts) behind a single mutex, which
// makes it suitable for unit and concurrency tests.
type MemStorage struct {
	mu           sync.RWMutex
	linksByCode  map[string]*domain.Link
	linksByID    map[string]*domain.Link
	usage        map[usageKey]*domain.UsageRecord
	users        map[int64]*domain.User
	plansByTier  map[string]*domain.Plan
	events       []*domain.AnalyticsEvent
	usageCounter int64
}

type usageKey struct {
	userID int64
	month  string
}

func New() *MemStorage {
	return &MemStorage{
		linksByCode: make(map[string]*domain.Link),
		linksByID:   make(map[string]*domain.Link),
		usage:       make(map[usageKey]*domain.UsageRecord),
		users:       make(map[int64]*domain.User),
		plansByTier: make(map[string]*domain.Plan),
	}
}

// Ping always succeeds; the store lives in process memory.
func (s *MemStorage) Ping(_ context.Context) error {
	return nil
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.linksByCode[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
		link.UpdatedAt = link.CreatedAt
	}
	cp := *link
	s.linksByCode[link.ShortCode] = &cp
	s.linksByID[link.ID] = &cp
	return nil
}

func (s *MemStorage) GetLinkByShortCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.linksByCode[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *MemStorage) IncrementClicks(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByID[linkID]
	if !ok {
		return repository.ErrLinkNotFound
	}
	link.ClickCount++
	return nil
}

func (s *MemStorage) ListLinksByOwner(_ context.Context, ownerID int64, limit, offset int) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.Link
	for _, link := range s.linksByCode {
		if link.OwnerID == ownerID {
			cp := *link
			owned = append(owned, &cp)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return nil, nil
	}
	owned = owned[offset:]
	if limit > 0 && limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, nil
}

func (s *MemStorage) UpdateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.linksByID[link.ID]
	if !ok {
		return repository.ErrLinkNotFound
	}
	stored.OriginalURL = link.OriginalURL
	stored.CustomDomain = link.CustomDomain
	stored.Title = link.Title
	stored.IsActive = link.IsActive
	stored.ExpiresAt = link.ExpiresAt
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemStorage) DeleteLink(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByID[linkID]
	if !ok {
		return repository.ErrLinkNotFound
	}
	delete(s.linksByCode, link.ShortCode)
	delete(s.linksByID, linkID)
	return nil
}

// --- Usage Methods ---

func (s *MemStorage) GetUsage(_ context.Context, userID int64, month string) (*domain.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureUsageLocked(userID, month)
	cp := *record
	return &cp, nil
}

func (s *MemStorage) IncrementUsage(_ context.Context, userID int64, month string, action domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addUsageLocked(s.ensureUsageLocked(userID, month), action, 1)
	return nil
}

func (s *MemStorage) ReserveUsage(_ context.Context, userID int64, month string, action domain.Action, limit int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.ensureUsageLocked(userID, month)
	if limit != domain.Unlimited && record.Counter(action) >= limit {
		return false, nil
	}
	s.addUsageLocked(record, action, 1)
	return true, nil
}

func (s *MemStorage) ensureUsageLocked(userID int64, month string) *domain.UsageRecord {
	key := usageKey{userID: userID, month: month}
	record, ok := s.usage[key]
	if !ok {
		s.usageCounter++
		record = &domain.UsageRecord{ID: s.usageCounter, UserID: userID, Month: month}
		s.usage[key] = record
	}
	return record
}

func (s *MemStorage) addUsageLocked(record *domain.UsageRecord, action domain.Action, delta int64) {
	switch action {
	case domain.ActionCreateLink:
		record.LinksCreated += delta
	case domain.ActionAPIRequest:
		record.APIRequests += delta
	case domain.ActionCustomDomain:
		record.CustomDomainsUsed += delta
	case domain.ActionAnalyticsEvent:
		record.AnalyticsEvents += delta
	}
	record.UpdatedAt = time.Now()
}

// --- User and Plan Methods ---

func (s *MemStorage) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemStorage) UpdateSubscription(_ context.Context, userID int64, tier, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Tier = tier
	user.SubscriptionStatus = status
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemStorage) ListPlans(_ context.Context) ([]*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]*domain.Plan, 0, len(s.plansByTier))
	for _, plan := range s.plansByTier {
		cp := *plan
		plans = append(plans, &cp)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

// PutUser seeds a user. Test helper; user provisioning is owned by the
// external auth service in production.
func (s *MemStorage) PutUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
}

// PutPlan seeds a subscription plan.
func (s *MemStorage) PutPlan(plan *domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *plan
	s.plansByTier[plan.Tier] = &cp
}

// --- Analytics Methods ---

func (s *MemStorage) InsertEvent(_ context.Context, event *domain.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *MemStorage) CountEventsByDevice(_ context.Context, linkID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDevice := make(map[string]int64)
	for _, event := range s.events {
		if event.LinkID != linkID {
			continue
		}
		device := "unknown"
		if event.DeviceType != nil {
			device = *event.DeviceType
		}
		byDevice[device]++
	}
	return byDevice, nil
}

func (s *MemStorage) SweepExpiredEvents(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*domain.AnalyticsEvent
	var deleted int64
	for _, event := range s.events {
		retention, ok := s.retentionForLinkLocked(event.LinkID)
		if ok && retention >= 0 && event.Timestamp.Before(now.AddDate(0, 0, -int(retention))) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
	return deleted, nil
}

// EventCount returns the number of stored events. Test helper.
func (s *MemStorage) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// EventsForLink returns copies of the stored events for a link. Test helper.
func (s *MemStorage) EventsForLink(linkID string) []*domain.AnalyticsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AnalyticsEvent
	for _, event := range s.events {
		if event.LinkID == linkID {
			cp := *event
			out = append(out, &cp)
		}
	}
	return out
}

func (s *MemStorage) retentionForLinkLocked(linkID string) (int64, bool) {
	link, ok := s.linksByID[linkID]
	if !ok {
		// Orphaned events have no owning plan; the sweep leaves them alone.
		return 0, false
	}
	user, ok := s.users[link.OwnerID]
	if !ok {
		return 0, false
	}
	plan, ok := s.plansByTier[user.Tier]
	if !ok {
		return 0, false
	}
	return plan.AnalyticsRetentionDays, true
}

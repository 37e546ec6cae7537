package service

import (
	"Lynx-Backend/internal/cache"
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/metrics"
	"Lynx-Backend/internal/plan"
	"Lynx-Backend/internal/repository"
	"Lynx-Backend/internal/shortcode"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotOwner means the caller tried to manage a link owned by another user.
var ErrNotOwner = errors.New("link owned by another user")

// CreateParams carries the inputs of one link creation request.
type CreateParams struct {
	OwnerID      int64
	OriginalURL  string
	CustomCode   string
	CustomDomain string
	Title        string
	ExpiresAt    *time.Time
}

// Shortener owns the link creation and management path.
type Shortener struct {
	storage repository.Storage
	gen     *shortcode.Generator
	meter   *UsageMeter
	plans   *plan.Cache
	links   *cache.LinkCache
	metrics *metrics.Metrics
	log     *zap.Logger

	maxAttempts int
}

func NewShortener(
	storage repository.Storage,
	gen *shortcode.Generator,
	meter *UsageMeter,
	plans *plan.Cache,
	links *cache.LinkCache,
	m *metrics.Metrics,
	log *zap.Logger,
	maxAttempts int,
) *Shortener {
	if maxAttempts <= 0 {
		maxAttempts = shortcode.MaxAttempts
	}
	return &Shortener{
		storage:     storage,
		gen:         gen,
		meter:       meter,
		plans:       plans,
		links:       links,
		metrics:     m,
		log:         log,
		maxAttempts: maxAttempts,
	}
}

// Create validates the request, reserves quota, and inserts the link.
// Generated-code collisions are retried up to the ceiling and then surface
// as ErrGenerationExhausted; a custom-code collision is reported as
// repository.ErrCodeExists without retrying, so the user gets an actionable
// conflict instead of a silent regenerate.
func (s *Shortener) Create(ctx context.Context, p CreateParams) (*domain.Link, error) {
	if err := validateURL(p.OriginalURL); err != nil {
		return nil, err
	}

	user, err := s.storage.GetUser(ctx, p.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	userPlan, err := s.plans.ForTier(user.Tier)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan for tier %q: %w", user.Tier, err)
	}
	caps := userPlan.Capabilities()

	if p.CustomCode != "" {
		if !caps.Has(domain.CapCustomCode) {
			return nil, fmt.Errorf("custom codes: %w", ErrFeatureUnavailable)
		}
		if err := s.gen.ValidateCustom(p.CustomCode); err != nil {
			return nil, &ValidationError{Field: "custom_code", Reason: err.Error()}
		}
	}
	if p.CustomDomain != "" && !caps.Has(domain.CapCustomDomain) {
		return nil, fmt.Errorf("custom domains: %w", ErrFeatureUnavailable)
	}

	check, err := s.meter.TryReserve(ctx, p.OwnerID, domain.ActionCreateLink)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &LimitExceededError{Action: domain.ActionCreateLink, Current: check.Current, Limit: check.Limit}
	}

	if p.CustomDomain != "" {
		domCheck, err := s.meter.TryReserve(ctx, p.OwnerID, domain.ActionCustomDomain)
		if err != nil {
			return nil, err
		}
		if !domCheck.Allowed {
			return nil, &LimitExceededError{Action: domain.ActionCustomDomain, Current: domCheck.Current, Limit: domCheck.Limit}
		}
	}

	link := &domain.Link{
		OwnerID:     p.OwnerID,
		OriginalURL: p.OriginalURL,
		IsActive:    true,
		ExpiresAt:   p.ExpiresAt,
	}
	if p.Title != "" {
		title := p.Title
		link.Title = &title
	}
	if p.CustomDomain != "" {
		dom := p.CustomDomain
		link.CustomDomain = &dom
	}

	if p.CustomCode != "" {
		link.ID = uuid.NewString()
		link.ShortCode = p.CustomCode
		if err := s.storage.CreateLink(ctx, link); err != nil {
			return nil, err
		}
	} else if err := s.createWithGeneratedCode(ctx, link); err != nil {
		return nil, err
	}

	s.metrics.LinksCreated.Inc()
	s.log.Info("created link",
		zap.String("short_code", link.ShortCode),
		zap.Int64("owner_id", link.OwnerID))
	return link, nil
}

// createWithGeneratedCode inserts with a fresh random code, regenerating on
// a uniqueness-constraint collision up to the retry ceiling.
func (s *Shortener) createWithGeneratedCode(ctx context.Context, link *domain.Link) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return fmt.Errorf("failed to generate short code: %w", err)
		}

		link.ID = uuid.NewString()
		link.ShortCode = code
		err = s.storage.CreateLink(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return err
		}

		s.log.Warn("generated short code collided",
			zap.String("short_code", code),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts))
	}

	s.metrics.GenerationExhausted.Inc()
	s.log.Error("short code generation exhausted, alphabet space may be running out",
		zap.Int("attempts", s.maxAttempts))
	return ErrGenerationExhausted
}

// UpdateParams carries a partial link update. Nil fields keep their current
// value.
type UpdateParams struct {
	OriginalURL *string
	Title       *string
	IsActive    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// Update applies a partial update after an ownership check and drops the
// cached entry so the change takes effect on the next redirect.
func (s *Shortener) Update(ctx context.Context, ownerID int64, code string, p UpdateParams) (*domain.Link, error) {
	link, err := s.storage.GetLinkByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	if p.OriginalURL != nil {
		if err := validateURL(*p.OriginalURL); err != nil {
			return nil, err
		}
		link.OriginalURL = *p.OriginalURL
	}
	if p.Title != nil {
		link.Title = p.Title
	}
	if p.IsActive != nil {
		link.IsActive = *p.IsActive
	}
	if p.ClearExpiry {
		link.ExpiresAt = nil
	} else if p.ExpiresAt != nil {
		link.ExpiresAt = p.ExpiresAt
	}

	if err := s.storage.UpdateLink(ctx, link); err != nil {
		return nil, err
	}
	s.links.Invalidate(ctx, code)

	return link, nil
}

// Delete hard-deletes a link after an ownership check and drops it from the
// lookup cache so stale redirects stop immediately.
func (s *Shortener) Delete(ctx context.Context, ownerID int64, code string) error {
	link, err := s.storage.GetLinkByShortCode(ctx, code)
	if err != nil {
		return err
	}
	if link.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.storage.DeleteLink(ctx, link.ID); err != nil {
		return err
	}
	s.links.Invalidate(ctx, code)

	return nil
}

// Stats returns a link's click count and device breakdown for its owner.
func (s *Shortener) Stats(ctx context.Context, ownerID int64, code string) (*domain.Link, map[string]int64, error) {
	link, err := s.storage.GetLinkByShortCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if link.OwnerID != ownerID {
		return nil, nil, ErrNotOwner
	}

	byDevice, err := s.storage.CountEventsByDevice(ctx, link.ID)
	if err != nil {
		s.log.Error("failed to count events by device", zap.String("link_id", link.ID), zap.Error(err))
		byDevice = map[string]int64{}
	}

	return link, byDevice, nil
}

// List returns the owner's links newest first.
func (s *Shortener) List(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Link, error) {
	return s.storage.ListLinksByOwner(ctx, ownerID, limit, offset)
}

func validateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "original_url", Reason: "must not be empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "original_url", Reason: "not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "original_url", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "original_url", Reason: "host must not be empty"}
	}
	return nil
}

package service

import (
	"Lynx-Backend/internal/analytics"
	"Lynx-Backend/internal/cache"
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/metrics"
	"Lynx-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Outcome classifies one resolution attempt. NotFound, Expired and Inactive
// are three different user-visible states, not one generic failure.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeNotFound Outcome = "not_found"
	OutcomeExpired  Outcome = "expired"
	OutcomeInactive Outcome = "inactive"
)

// Resolution is the result of resolving a short code.
type Resolution struct {
	Outcome Outcome
	Link    *domain.Link
}

// RequestMeta carries the request attributes recorded with a click. Country
// and city come pre-enriched from the edge infrastructure when present.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
	Country   string
	City      string
}

// ClickRecorder accepts click jobs for asynchronous recording.
type ClickRecorder interface {
	Submit(job analytics.ClickJob) error
}

// Resolver orchestrates a redirect: lookup, lifecycle checks, best-effort
// analytics and click counting, destination.
type Resolver struct {
	storage  repository.Storage
	links    *cache.LinkCache
	recorder ClickRecorder
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewResolver(
	storage repository.Storage,
	links *cache.LinkCache,
	recorder ClickRecorder,
	m *metrics.Metrics,
	log *zap.Logger,
) *Resolver {
	return &Resolver{
		storage:  storage,
		links:    links,
		recorder: recorder,
		metrics:  m,
		log:      log,
	}
}

// Resolve looks up the short code and classifies it against a single "now"
// snapshot. The expiry check strictly precedes both side effects: an expired
// link records no click and no event, even when hit concurrently with its
// expiry instant. On Valid, analytics is fire-and-forget and the click
// increment is retried once; neither can fail the redirect.
func (r *Resolver) Resolve(ctx context.Context, code string, meta RequestMeta) (Resolution, error) {
	now := time.Now()

	link, err := r.lookup(ctx, code)
	if errors.Is(err, repository.ErrLinkNotFound) {
		r.metrics.RedirectOutcome(string(OutcomeNotFound))
		return Resolution{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to resolve %q: %w", code, err)
	}

	if link.IsExpired(now) {
		r.metrics.RedirectOutcome(string(OutcomeExpired))
		return Resolution{Outcome: OutcomeExpired, Link: link}, nil
	}
	if !link.IsActive {
		r.metrics.RedirectOutcome(string(OutcomeInactive))
		return Resolution{Outcome: OutcomeInactive, Link: link}, nil
	}

	r.recordClick(link, meta, now)
	r.incrementClicks(ctx, link)

	r.metrics.RedirectOutcome(string(OutcomeValid))
	return Resolution{Outcome: OutcomeValid, Link: link}, nil
}

// lookup reads through the cache. Lifecycle checks stay with the caller so a
// cached link that expired since it was stored still resolves as Expired.
func (r *Resolver) lookup(ctx context.Context, code string) (*domain.Link, error) {
	if link, ok := r.links.Get(ctx, code); ok {
		return link, nil
	}

	link, err := r.storage.GetLinkByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.links.Set(ctx, link)
	return link, nil
}

// recordClick hands the click to the async recorder. Failures are logged and
// swallowed: redirect correctness does not depend on analytics durability.
func (r *Resolver) recordClick(link *domain.Link, meta RequestMeta, now time.Time) {
	if r.recorder == nil {
		return
	}

	job := analytics.ClickJob{
		LinkID:     link.ID,
		OwnerID:    link.OwnerID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Referer:    meta.Referer,
		Country:    meta.Country,
		City:       meta.City,
		OccurredAt: now,
	}
	if err := r.recorder.Submit(job); err != nil {
		r.log.Warn("failed to submit click for recording",
			zap.String("link_id", link.ID),
			zap.Error(err))
	}
}

// incrementClicks bumps the click counter, retrying once on transient
// storage failure, then logging and dropping. The count may drift under
// sustained storage failure; that is the accepted policy.
func (r *Resolver) incrementClicks(ctx context.Context, link *domain.Link) {
	err := r.storage.IncrementClicks(ctx, link.ID)
	if err == nil {
		return
	}
	if errors.Is(err, repository.ErrLinkNotFound) {
		// Deleted between lookup and increment; nothing to count.
		return
	}

	r.log.Warn("click increment failed, retrying once", zap.String("link_id", link.ID), zap.Error(err))
	if err := r.storage.IncrementClicks(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
		r.log.Error("click increment failed after retry, dropping",
			zap.String("link_id", link.ID),
			zap.Error(err))
	}
}

package analytics

import (
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/metrics"
	"Lynx-Backend/internal/repository"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Lynx-Backend/pkg/useragent"
)

// ClickJob is one click waiting to be recorded.
type ClickJob struct {
	LinkID     string
	OwnerID    int64
	IPAddress  string
	UserAgent  string
	Referer    string
	Country    string
	City       string
	OccurredAt time.Time
}

// Config holds configuration for the analytics processor.
type Config struct {
	Workers         int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of retry attempts for failed jobs
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Workers:         3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Processor records clicks asynchronously. The hot redirect path only ever
// enqueues; inserts, User-Agent enrichment and retries happen on worker
// goroutines, so a slow or failing datastore never delays a redirect.
type Processor struct {
	config  Config
	storage repository.Storage
	ua      *useragent.Parser
	metrics *metrics.Metrics
	log     *zap.Logger

	jobQueue chan ClickJob
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	started bool
}

// NewProcessor creates a new analytics processor
func NewProcessor(storage repository.Storage, ua *useragent.Parser, m *metrics.Metrics, log *zap.Logger, config Config) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		config:   config,
		storage:  storage,
		ua:       ua,
		metrics:  m,
		log:      log,
		jobQueue: make(chan ClickJob, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing click jobs.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}

	p.log.Info("starting analytics processor",
		zap.Int("workers", p.config.Workers),
		zap.Int("buffer_size", p.config.BufferSize),
		zap.Int("retry_attempts", p.config.RetryAttempts))

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop drains the queue and shuts the workers down, giving up after the
// configured timeout.
func (p *Processor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	p.log.Info("stopping analytics processor")
	close(p.jobQueue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("analytics processor stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		p.log.Warn("analytics processor shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	p.cancel()
	p.started = false
	return nil
}

// Submit enqueues a click for recording. Never blocks: when the queue is
// full the click is counted as dropped and the caller proceeds.
func (p *Processor) Submit(job ClickJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	select {
	case p.jobQueue <- job:
		p.metrics.AnalyticsQueueDepth.Set(float64(len(p.jobQueue)))
		return nil
	default:
		p.metrics.AnalyticsDropped.Inc()
		p.log.Error("analytics queue is full, dropping click",
			zap.String("link_id", job.LinkID),
			zap.Int("queue_size", len(p.jobQueue)))
		return fmt.Errorf("analytics queue is full")
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Info("analytics worker started")

	for job := range p.jobQueue {
		p.metrics.AnalyticsQueueDepth.Set(float64(len(p.jobQueue)))
		p.recordWithRetry(log, job)
	}

	log.Info("analytics worker stopped")
}

// recordWithRetry inserts one event with bounded retries and exponential
// backoff. Exhausting the retries drops the event: click analytics is
// best-effort and must never wedge the queue.
func (p *Processor) recordWithRetry(log *zap.Logger, job ClickJob) {
	var lastErr error

	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
		err := p.record(ctx, job)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Info("click recording succeeded after retry",
					zap.String("link_id", job.LinkID),
					zap.Int("attempt", attempt))
			}
			return
		}

		lastErr = err
		log.Warn("click recording failed",
			zap.String("link_id", job.LinkID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.config.RetryAttempts),
			zap.Error(err))

		if attempt == p.config.RetryAttempts {
			break
		}

		delay := p.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-p.ctx.Done():
			log.Info("worker shutdown during retry delay")
			return
		}
	}

	log.Error("click recording failed after all retries, dropping event",
		zap.String("link_id", job.LinkID),
		zap.Int("attempts", p.config.RetryAttempts),
		zap.Error(lastErr))
}

// record builds and appends one analytics event.
func (p *Processor) record(ctx context.Context, job ClickJob) error {
	event := &domain.AnalyticsEvent{
		ID:        uuid.NewString(),
		LinkID:    job.LinkID,
		Timestamp: job.OccurredAt,
	}
	if job.IPAddress != "" {
		event.IPAddress = &job.IPAddress
	}
	if job.UserAgent != "" {
		event.UserAgent = &job.UserAgent
	}
	if job.Referer != "" {
		event.Referer = &job.Referer
	}
	if job.Country != "" {
		event.Country = &job.Country
	}
	if job.City != "" {
		event.City = &job.City
	}

	if p.ua != nil && job.UserAgent != "" {
		info := p.ua.Parse(job.UserAgent)
		event.DeviceType = &info.DeviceType
		event.Browser = &info.Browser
		event.OS = &info.OS
	}

	if err := p.storage.InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	// Informational counter only; losing it never fails the event.
	month := domain.MonthKey(job.OccurredAt)
	if err := p.storage.IncrementUsage(ctx, job.OwnerID, month, domain.ActionAnalyticsEvent); err != nil {
		p.log.Warn("failed to bump analytics usage counter",
			zap.Int64("owner_id", job.OwnerID),
			zap.Error(err))
	}

	return nil
}

// QueueDepth returns the number of jobs waiting in the queue.
func (p *Processor) QueueDepth() int {
	return len(p.jobQueue)
}

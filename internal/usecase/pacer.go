package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"go.uber.org/zap"
)

// PacingConfig holds the delays inserted between bursts of requests.
type PacingConfig struct {
	PageDelay    time.Duration // after every full repository page
	BatchDelay   time.Duration // after every BatchSize-th repository during enrichment
	BatchSize    int
	MinRemaining int           // quota at or below which delays stretch to the reset time
	MaxWait      time.Duration // cap on a stretched delay
}

// Pacer inserts bounded delays to stay under the host API's rate limits.
// It is safe for concurrent use.
type Pacer struct {
	cfg    PacingConfig
	logger *zap.SugaredLogger

	mu   sync.Mutex
	rate domain.RateLimit

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer. A zero config never sleeps.
func NewPacer(cfg PacingConfig, logger *zap.SugaredLogger) *Pacer {
	return &Pacer{
		cfg:    cfg,
		logger: logger.Named("pacer"),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Observe records the latest rate limit snapshot. Snapshots without data are ignored.
func (p *Pacer) Observe(rate domain.RateLimit) {
	if !rate.Known() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
}

// AfterPage is called after every full page during enumeration.
func (p *Pacer) AfterPage(ctx context.Context) error {
	return p.wait(ctx, p.cfg.PageDelay)
}

// AfterRepository is called once the repository at index (of total) was dispatched.
// It pauses after every BatchSize-th repository except the last one.
func (p *Pacer) AfterRepository(ctx context.Context, index, total int) error {
	if p.cfg.BatchSize <= 0 || (index+1)%p.cfg.BatchSize != 0 || index >= total-1 {
		return nil
	}
	return p.wait(ctx, p.cfg.BatchDelay)
}

func (p *Pacer) wait(ctx context.Context, base time.Duration) error {
	d := p.delay(base)
	if d <= 0 {
		return nil
	}
	if d > base {
		p.logger.Warnw("rate limit nearly exhausted, waiting for reset", "wait", d)
	}
	return p.sleep(ctx, d)
}

// delay stretches base up to the reset time when the remaining quota is low.
func (p *Pacer) delay(base time.Duration) time.Duration {
	p.mu.Lock()
	rate := p.rate
	p.mu.Unlock()

	if !rate.Known() || rate.Remaining > p.cfg.MinRemaining {
		return base
	}
	untilReset := rate.Reset.Sub(p.now())
	if untilReset <= base {
		return base
	}
	if p.cfg.MaxWait > 0 && untilReset > p.cfg.MaxWait {
		return p.cfg.MaxWait
	}
	return untilReset
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package riskconfig

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/pkg/metrics"
)

// Fetcher loads the currently active configuration from a store. A nil
// result with a nil error means no active record exists.
type Fetcher interface {
	FetchActive(ctx context.Context) (*RiskConfiguration, error)
}

// DefaultTTL bounds how long a fetched configuration is served without a
// refresh.
const DefaultTTL = 60 * time.Second

// Provider caches the active configuration with a TTL and an explicit
// invalidation hook. Construct one per process and inject it; tests get an
// isolated instance instead of hidden shared state.
type Provider struct {
	fetcher Fetcher
	logger  *zap.Logger
	ttl     time.Duration

	mu        sync.Mutex
	cached    RiskConfiguration
	fetchedAt time.Time
	valid     bool
}

// NewProvider creates a provider reading through fetcher. A non-positive
// ttl falls back to DefaultTTL.
func NewProvider(fetcher Fetcher, logger *zap.Logger, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{fetcher: fetcher, logger: logger, ttl: ttl}
}

// Get returns the active configuration. A fetch failure or an empty store
// is transparently replaced by the built-in default; callers always get a
// usable configuration.
func (p *Provider) Get(ctx context.Context) RiskConfiguration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.valid && time.Since(p.fetchedAt) < p.ttl {
		return p.cached
	}

	cfg, err := p.fetcher.FetchActive(ctx)
	if err != nil {
		metrics.RiskConfigFallbacks.Inc()
		p.logger.Warn("risk configuration fetch failed; serving built-in default", zap.Error(err))
		return Defaults()
	}
	if cfg == nil {
		metrics.RiskConfigFallbacks.Inc()
		p.logger.Warn("no active risk configuration; serving built-in default")
		return Defaults()
	}

	p.cached = *cfg
	p.fetchedAt = time.Now()
	p.valid = true
	return p.cached
}

// Invalidate drops the cached record so the next Get refetches.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.valid = false
	p.mu.Unlock()
}

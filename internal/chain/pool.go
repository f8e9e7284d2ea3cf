package chain

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/utils"
	"golang.org/x/time/rate"
)

// PoolOptions tunes the endpoint pool
type PoolOptions struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second per endpoint
	Burst     int
	Cooldown  time.Duration // how long an unreachable endpoint is tried last
}

// DefaultPoolOptions mirrors the dashboard defaults: 10s transport timeout
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		Timeout:   10 * time.Second,
		RateLimit: 5,
		Burst:     10,
		Cooldown:  30 * time.Second,
	}
}

// Pool manages the chain REST endpoints with ordered fallback and rate limiting
type Pool struct {
	endpoints []*Endpoint
	cooldown  time.Duration
	logger    zerolog.Logger
}

// Endpoint represents a single REST endpoint with its own rate limiter
type Endpoint struct {
	URL           string
	client        *utils.HTTPClient
	limiter       *rate.Limiter
	healthy       bool
	cooldownUntil time.Time
	mutex         sync.RWMutex
}

// NewPool creates a pool over the given base URLs. The first URL is the primary.
func NewPool(urls []string, opts PoolOptions, logger zerolog.Logger) *Pool {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	endpoints := make([]*Endpoint, len(urls))
	for i, u := range urls {
		u = strings.TrimRight(u, "/")
		endpoints[i] = &Endpoint{
			URL: u,
			client: utils.NewHTTPClient(
				utils.WithBaseURL(u),
				utils.WithTimeout(opts.Timeout),
			),
			limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
			healthy: true,
		}

		metrics.SetChainEndpointHealth(u, true)
	}

	return &Pool{
		endpoints: endpoints,
		cooldown:  opts.Cooldown,
		logger:    logger.With().Str("component", "chain_pool").Logger(),
	}
}

// Candidates returns every endpoint in the order a request should try them:
// available endpoints in configured order, then those cooling down
func (p *Pool) Candidates() []*Endpoint {
	now := time.Now()
	ready := make([]*Endpoint, 0, len(p.endpoints))
	var cooling []*Endpoint

	for _, endpoint := range p.endpoints {
		endpoint.mutex.RLock()
		available := endpoint.healthy || now.After(endpoint.cooldownUntil)
		endpoint.mutex.RUnlock()

		if available {
			ready = append(ready, endpoint)
		} else {
			p.logger.Debug().
				Str("endpoint", endpoint.URL).
				Msg("Endpoint in cooldown, trying last")
			cooling = append(cooling, endpoint)
		}
	}

	return append(ready, cooling...)
}

// Wait blocks until the endpoint's rate limiter admits a request
func (e *Endpoint) Wait(ctx context.Context) error {
	return e.limiter.Wait(ctx)
}

// Client returns the HTTP client bound to the endpoint's base URL
func (e *Endpoint) Client() *utils.HTTPClient {
	return e.client
}

// MarkUnhealthy marks an endpoint as unreachable and starts its cooldown
func (p *Pool) MarkUnhealthy(url string) {
	for _, endpoint := range p.endpoints {
		if endpoint.URL == url {
			endpoint.mutex.Lock()
			endpoint.healthy = false
			endpoint.cooldownUntil = time.Now().Add(p.cooldown)
			endpoint.mutex.Unlock()

			metrics.SetChainEndpointHealth(url, false)
			p.logger.Warn().
				Str("endpoint", url).
				Dur("cooldown", p.cooldown).
				Msg("Marked endpoint as unhealthy")
			break
		}
	}
}

// MarkHealthy marks an endpoint as healthy
func (p *Pool) MarkHealthy(url string) {
	for _, endpoint := range p.endpoints {
		if endpoint.URL == url {
			endpoint.mutex.Lock()
			wasHealthy := endpoint.healthy
			endpoint.healthy = true
			endpoint.cooldownUntil = time.Time{}
			endpoint.mutex.Unlock()

			if !wasHealthy {
				metrics.SetChainEndpointHealth(url, true)
				p.logger.Info().Str("endpoint", url).Msg("Marked endpoint as healthy")
			}
			break
		}
	}
}

// GetHealthyEndpointCount returns the number of healthy endpoints
func (p *Pool) GetHealthyEndpointCount() int {
	count := 0
	for _, endpoint := range p.endpoints {
		endpoint.mutex.RLock()
		if endpoint.healthy {
			count++
		}
		endpoint.mutex.RUnlock()
	}
	return count
}

// Size returns the number of configured endpoints
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// GetStats returns pool statistics
func (p *Pool) GetStats() map[string]interface{} {
	endpoints := make([]map[string]interface{}, len(p.endpoints))
	for i, endpoint := range p.endpoints {
		endpoint.mutex.RLock()
		endpoints[i] = map[string]interface{}{
			"url":            endpoint.URL,
			"healthy":        endpoint.healthy,
			"in_cooldown":    time.Now().Before(endpoint.cooldownUntil),
			"cooldown_until": endpoint.cooldownUntil,
		}
		endpoint.mutex.RUnlock()
	}

	return map[string]interface{}{
		"total_endpoints":   len(p.endpoints),
		"healthy_endpoints": p.GetHealthyEndpointCount(),
		"endpoints":         endpoints,
	}
}

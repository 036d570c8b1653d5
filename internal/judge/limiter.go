package judge

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// adaptiveLimiter wraps a rate.Limiter that halves its rate on 429 responses
// and recovers by 20% per success, never above the configured rate.
type adaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// newAdaptiveLimiter converts requests per minute into a limiter. A
// non-positive value disables limiting.
func newAdaptiveLimiter(perMinute int) *adaptiveLimiter {
	if perMinute <= 0 {
		return &adaptiveLimiter{limiter: rate.NewLimiter(rate.Inf, 1), maxRate: rate.Inf, minRate: rate.Inf, currentRate: rate.Inf}
	}
	r := rate.Limit(float64(perMinute) / 60)
	return &adaptiveLimiter{
		limiter:     rate.NewLimiter(r, max(1, perMinute/10)),
		maxRate:     r,
		minRate:     r / 4,
		currentRate: r,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate == a.maxRate {
		return
	}
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

func (a *adaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate == rate.Inf {
		return
	}
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("judge: reducing request rate after 429",
		zap.Float64("requests_per_minute", float64(a.currentRate)*60),
	)
}

func (a *adaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

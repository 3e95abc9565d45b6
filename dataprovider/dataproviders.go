package dataprovider

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// SymbolSource fetches candidate trading symbols from one external source.
// Implementations return base symbols in upper case (e.g. "BTC"); merging,
// deduplication and capping is the universe refresher's job.
type SymbolSource interface {
	Name() string
	FetchSymbols(ctx context.Context) ([]string, error)
}

// NewHTTPClient builds the shared HTTP client for symbol sources from the
// universe config.
func NewHTTPClient(cfg utilities.UniverseConfig) *http.Client {
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// NewRateLimiter builds a per-source request limiter from the universe config.
func NewRateLimiter(cfg utilities.UniverseConfig) *rate.Limiter {
	perSec := cfg.RateLimitPerSec
	if perSec <= 0 {
		perSec = 1
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// RetrySettings returns the retry count and delay for source requests.
func RetrySettings(cfg utilities.UniverseConfig) (int, time.Duration) {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := time.Duration(cfg.RetryDelaySec) * time.Second
	if delay <= 0 {
		delay = time.Second
	}
	return retries, delay
}

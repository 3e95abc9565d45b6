// File: dataprovider/dextools/dxclient.go
package dextools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Quaser41/Autonomous-Trader/dataprovider"
	utils "github.com/Quaser41/Autonomous-Trader/utilities"
)

const (
	providerName    = "dextools"
	trendingURLBase = "https://www.dextools.io/shared/data/pairs/trending?chain="
)

// Chains queried for trending pairs, in order.
var defaultChains = []string{"ether", "bsc"}

// Client fetches trending DEX pairs and extracts their base token symbols.
// DEXTools sits behind Cloudflare, so a blocked or HTML response from one
// chain is not an error for the whole fetch.
type Client struct {
	HTTPClient *http.Client
	limiter    *rate.Limiter
	logger     *utils.Logger
	chains     []string
	maxRetries int
	retryDelay time.Duration
}

type dxTrendingResponse struct {
	Data []dxPair `json:"data"`
}

type dxPair struct {
	BaseToken struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"baseToken"`
}

// NewClient builds a DEXTools trending client from the universe config.
func NewClient(cfg utils.UniverseConfig, logger *utils.Logger) *Client {
	retries, delay := dataprovider.RetrySettings(cfg)
	return &Client{
		HTTPClient: dataprovider.NewHTTPClient(cfg),
		limiter:    dataprovider.NewRateLimiter(cfg),
		logger:     logger,
		chains:     defaultChains,
		maxRetries: retries,
		retryDelay: delay,
	}
}

// Name identifies this source in logs and merge diagnostics.
func (c *Client) Name() string { return providerName }

// FetchSymbols returns base token symbols of trending pairs across all
// configured chains. It fails only when every chain fails.
func (c *Client) FetchSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	var lastErr error
	for _, chain := range c.chains {
		chainSyms, err := c.fetchChain(ctx, chain)
		if err != nil {
			c.logger.LogDebug("DEXTools: chain %s fetch failed: %v", chain, err)
			lastErr = err
			continue
		}
		symbols = append(symbols, chainSyms...)
	}
	if len(symbols) == 0 && lastErr != nil {
		return nil, fmt.Errorf("dextools: all chains failed: %w", lastErr)
	}
	c.logger.LogDebug("DEXTools: fetched %d trending symbols.", len(symbols))
	return symbols, nil
}

func (c *Client) fetchChain(ctx context.Context, chain string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trendingURLBase+chain, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TrendFetcher/1.2)")

	var resp dxTrendingResponse
	if err := utils.DoJSONRequest(c.HTTPClient, req, c.maxRetries, c.retryDelay, &resp); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(resp.Data))
	for _, pair := range resp.Data {
		sym := strings.ToUpper(strings.TrimSpace(pair.BaseToken.Symbol))
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out, nil
}

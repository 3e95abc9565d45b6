// File: dataprovider/coinmarketcap/cmclient.go
package coinmarketcap

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
	providerName       = "coinmarketcap"
	defaultTrendingURL = "https://api.coinmarketcap.com/data-api/v3/topsearch/rank"
)

// Client fetches CoinMarketCap's top-search trending symbols.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
	logger     *utils.Logger
	maxRetries int
	retryDelay time.Duration
}

// --- CMC API Response Structs ---

type cmcTrendingResponse struct {
	Data struct {
		CryptoTopSearchRanks []cmcTrendingEntry `json:"cryptoTopSearchRanks"`
	} `json:"data"`
	Status cmcStatus `json:"status"`
}

type cmcTrendingEntry struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Slug   string `json:"slug"`
}

type cmcStatus struct {
	Timestamp    string `json:"timestamp"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewClient builds a CoinMarketCap trending client from the universe config.
func NewClient(cfg utils.UniverseConfig, logger *utils.Logger) *Client {
	retries, delay := dataprovider.RetrySettings(cfg)
	return &Client{
		BaseURL:    defaultTrendingURL,
		HTTPClient: dataprovider.NewHTTPClient(cfg),
		limiter:    dataprovider.NewRateLimiter(cfg),
		logger:     logger,
		maxRetries: retries,
		retryDelay: delay,
	}
}

// Name identifies this source in logs and merge diagnostics.
func (c *Client) Name() string { return providerName }

// FetchSymbols returns the current top-search symbols, most searched first.
func (c *Client) FetchSymbols(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cmc: failed to build trending request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var resp cmcTrendingResponse
	if err := utils.DoJSONRequest(c.HTTPClient, req, c.maxRetries, c.retryDelay, &resp); err != nil {
		return nil, fmt.Errorf("cmc: trending request failed: %w", err)
	}
	if resp.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("cmc: API error %d: %s", resp.Status.ErrorCode, resp.Status.ErrorMessage)
	}

	symbols := make([]string, 0, len(resp.Data.CryptoTopSearchRanks))
	for _, entry := range resp.Data.CryptoTopSearchRanks {
		sym := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if sym != "" {
			symbols = append(symbols, sym)
		}
	}
	c.logger.LogDebug("CMC: fetched %d trending symbols.", len(symbols))
	return symbols, nil
}

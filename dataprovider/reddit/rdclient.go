// File: dataprovider/reddit/rdclient.go
package reddit

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Quaser41/Autonomous-Trader/dataprovider"
	utils "github.com/Quaser41/Autonomous-Trader/utilities"
)

const (
	providerName = "reddit"
	hotURLFmt    = "https://www.reddit.com/r/%s/hot.json?limit=%d"
	postLimit    = 25
)

// Subreddits scanned when the config does not name any.
var defaultSubs = []string{"CryptoCurrency", "CryptoMarkets", "SatoshiStreetBets", "Altcoin"}

// Stopwords drop false positives from the ALLCAPS scan. Quote currencies are
// excluded too; only base symbols are of interest.
var stopwords = map[string]bool{
	"A": true, "AN": true, "AND": true, "THE": true, "FOR": true, "WITH": true,
	"TO": true, "OF": true, "ON": true, "IN": true, "IS": true, "ARE": true,
	"ALL": true, "HERE": true, "READ": true, "RULES": true, "THIS": true,
	"USDT": true, "USDC": true, "USD": true,
}

var (
	cashPattern = regexp.MustCompile(`\$([A-Za-z]{2,10})`)
	capsPattern = regexp.MustCompile(`\b([A-Z]{2,10})\b`)
)

// Client scans hot posts of crypto subreddits for ticker mentions. $TICKER
// tags are preferred; bare ALLCAPS words (2-6 chars) are the fallback.
type Client struct {
	HTTPClient *http.Client
	limiter    *rate.Limiter
	logger     *utils.Logger
	subs       []string
	maxRetries int
	retryDelay time.Duration
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				SelfText string `json:"selftext"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewClient builds a Reddit mention scanner from the universe config.
func NewClient(cfg utils.UniverseConfig, logger *utils.Logger) *Client {
	subs := cfg.RedditSubs
	if len(subs) == 0 {
		subs = defaultSubs
	}
	retries, delay := dataprovider.RetrySettings(cfg)
	return &Client{
		HTTPClient: dataprovider.NewHTTPClient(cfg),
		limiter:    dataprovider.NewRateLimiter(cfg),
		logger:     logger,
		subs:       subs,
		maxRetries: retries,
		retryDelay: delay,
	}
}

// Name identifies this source in logs and merge diagnostics.
func (c *Client) Name() string { return providerName }

// FetchSymbols returns ticker mentions across all configured subreddits. A
// failing subreddit is logged and skipped; the fetch fails only when every
// subreddit fails.
func (c *Client) FetchSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	var lastErr error
	for _, sub := range c.subs {
		subSyms, err := c.fetchSub(ctx, sub)
		if err != nil {
			c.logger.LogDebug("Reddit: r/%s fetch failed: %v", sub, err)
			lastErr = err
			continue
		}
		symbols = append(symbols, subSyms...)
	}
	if len(symbols) == 0 && lastErr != nil {
		return nil, fmt.Errorf("reddit: all subreddits failed: %w", lastErr)
	}
	c.logger.LogDebug("Reddit: extracted %d ticker mentions.", len(symbols))
	return symbols, nil
}

func (c *Client) fetchSub(ctx context.Context, sub string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(hotURLFmt, sub, postLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TrendFetcher/1.2)")

	var listing redditListing
	if err := utils.DoJSONRequest(c.HTTPClient, req, c.maxRetries, c.retryDelay, &listing); err != nil {
		return nil, err
	}

	var out []string
	for _, post := range listing.Data.Children {
		text := strings.ToUpper(post.Data.Title + " " + post.Data.SelfText)
		out = append(out, ExtractTickers(text)...)
	}
	return out, nil
}

// ExtractTickers pulls candidate symbols out of already-uppercased text.
func ExtractTickers(text string) []string {
	var out []string
	for _, m := range cashPattern.FindAllStringSubmatch(text, -1) {
		tok := strings.ToUpper(m[1])
		if !stopwords[tok] {
			out = append(out, tok)
		}
	}
	for _, m := range capsPattern.FindAllStringSubmatch(text, -1) {
		tok := m[1]
		if len(tok) >= 2 && len(tok) <= 6 && !stopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

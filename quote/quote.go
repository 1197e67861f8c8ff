// Package quote supplies the short uplifting quote shared when a user
// sounds frustrated.
package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
)

type Fetcher interface {
	FetchQuote(ctx context.Context) (string, error)
}

const DefaultZenQuotesURL = "https://zenquotes.io/api/random"

type zenQuote struct {
	Quote  string `json:"q"`
	Author string `json:"a"`
}

// ZenQuotesClient fetches a random quote from zenquotes.io.
type ZenQuotesClient struct {
	httpClient *http.Client
	url        string
}

type ZenQuotesOption func(*ZenQuotesClient)

func WithURL(url string) ZenQuotesOption {
	return func(c *ZenQuotesClient) { c.url = url }
}

func WithTimeout(timeout time.Duration) ZenQuotesOption {
	return func(c *ZenQuotesClient) { c.httpClient.Timeout = timeout }
}

func NewZenQuotesClient(opts ...ZenQuotesOption) *ZenQuotesClient {
	c := &ZenQuotesClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		url:        DefaultZenQuotesURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ZenQuotesClient) FetchQuote(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("quote service returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read quote: %w", err)
	}
	var quotes []zenQuote
	if err := sonic.Unmarshal(data, &quotes); err != nil {
		return "", fmt.Errorf("failed to decode quote: %w", err)
	}
	if len(quotes) == 0 || strings.TrimSpace(quotes[0].Quote) == "" {
		return "", errors.New("quote service returned no quote")
	}
	return format(quotes[0]), nil
}

func format(q zenQuote) string {
	text := fmt.Sprintf("%q", strings.TrimSpace(q.Quote))
	if author := strings.TrimSpace(q.Author); author != "" {
		text += " - " + author
	}
	return text
}

// DefaultQuotes back the static fetcher when no list is configured.
var DefaultQuotes = []string{
	`"Keep your face always toward the sunshine, and shadows will fall behind you." - Walt Whitman`,
	`"It does not matter how slowly you go as long as you do not stop." - Confucius`,
	`"Patience is not the ability to wait, but the ability to keep a good attitude while waiting." - Joyce Meyer`,
}

// StaticFetcher cycles through a fixed list and never fails unless the list
// is empty.
type StaticFetcher struct {
	Quotes []string
	next   atomic.Uint64
}

func NewStaticFetcher(quotes ...string) *StaticFetcher {
	if len(quotes) == 0 {
		quotes = DefaultQuotes
	}
	return &StaticFetcher{Quotes: quotes}
}

func (f *StaticFetcher) FetchQuote(ctx context.Context) (string, error) {
	if len(f.Quotes) == 0 {
		return "", errors.New("no static quotes configured")
	}
	i := f.next.Add(1) - 1
	return f.Quotes[i%uint64(len(f.Quotes))], nil
}

// FailbackFetcher returns the first quote any fetcher produces.
type FailbackFetcher struct {
	fetchers []Fetcher
}

func NewFailbackFetcher(fetchers ...Fetcher) *FailbackFetcher {
	return &FailbackFetcher{fetchers: fetchers}
}

func (f *FailbackFetcher) FetchQuote(ctx context.Context) (string, error) {
	var lastErr error
	for _, fetcher := range f.fetchers {
		q, err := fetcher.FetchQuote(ctx)
		if err == nil {
			return q, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no quote fetchers configured")
	}
	return "", fmt.Errorf("all quote fetchers failed: %w", lastErr)
}

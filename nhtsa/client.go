// Package nhtsa implements vehicle.Lookup against the NHTSA vPIC API.
package nhtsa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/onboard/cache"
	"github.com/tbxark/onboard/types"
	"github.com/tbxark/onboard/vehicle"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL  = "https://vpic.nhtsa.dot.gov/api/vehicles"
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 24 * time.Hour

	// invalidErrorCode is the first vPIC error code that means the VIN
	// structure itself is wrong. Lower codes are warnings.
	invalidErrorCode = 7

	carMakesKey = "makes:car"
	allMakesKey = "makes:all"
)

var suspiciousMakes = map[string]bool{
	"SHERMAN + REILLY": true,
	"INCOMPLETE":       true,
	"NOT APPLICABLE":   true,
}

var _ vehicle.Lookup = (*Client)(nil)

type Client struct {
	httpClient *http.Client
	baseURL    string
	cacheTTL   time.Duration
	observe    func(op string, d time.Duration, err error)

	records cache.Cache[*types.VehicleRecord]
	makes   cache.Cache[map[string]bool]
	group   singleflight.Group
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		cacheTTL:   defaultCacheTTL,
	}
	for _, option := range options {
		option(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	c.records = cache.NewMemoryCache[*types.VehicleRecord](cache.WithTTL(c.cacheTTL))
	c.makes = cache.NewMemoryCache[map[string]bool](cache.WithTTL(c.cacheTTL))
	return c
}

// LookupVIN decodes vin. A VIN vPIC rejects (error code 7 or above, or no
// make) is ErrNotFound. Makes that are not consumer vehicles need a model
// year to count.
func (c *Client) LookupVIN(ctx context.Context, vin string) (rec *types.VehicleRecord, err error) {
	start := time.Now()
	defer func() { c.report("decode_vin", start, err) }()

	if cached, ok, _ := c.records.Get(ctx, vin); ok {
		return cached, nil
	}

	var resp decodeResponse
	if err := c.getJSON(ctx, "/DecodeVinValues/"+url.PathEscape(vin), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: no decode results", vehicle.ErrNotFound)
	}
	result := resp.Results[0]

	if code := parseErrorCode(result.ErrorCode); code >= invalidErrorCode {
		return nil, fmt.Errorf("%w: %s", vehicle.ErrNotFound, strings.TrimSpace(result.ErrorText))
	}
	makeName := strings.TrimSpace(result.Make)
	if makeName == "" {
		return nil, fmt.Errorf("%w: no make decoded", vehicle.ErrNotFound)
	}
	year, _ := strconv.Atoi(strings.TrimSpace(result.ModelYear))
	if (suspiciousMakes[strings.ToUpper(makeName)] || strings.Contains(makeName, "+")) && year == 0 {
		return nil, fmt.Errorf("%w: not a consumer vehicle", vehicle.ErrNotFound)
	}

	rec = &types.VehicleRecord{
		Year:     year,
		Make:     makeName,
		Model:    strings.TrimSpace(result.Model),
		BodyType: strings.TrimSpace(result.BodyClass),
	}
	_ = c.records.Set(ctx, vin, rec)
	return rec, nil
}

// IsKnownMake checks the passenger-car make list first and falls back to
// every make vPIC knows.
func (c *Client) IsKnownMake(ctx context.Context, name string) (known bool, err error) {
	start := time.Now()
	defer func() { c.report("known_make", start, err) }()

	key := strings.ToUpper(strings.TrimSpace(name))
	carMakes, err := c.makeSet(ctx, carMakesKey)
	if err != nil {
		return false, err
	}
	if carMakes[key] {
		return true, nil
	}
	allMakes, err := c.makeSet(ctx, allMakesKey)
	if err != nil {
		return false, err
	}
	return allMakes[key], nil
}

// makeSet loads a make list once per TTL; concurrent callers share the
// in-flight request.
func (c *Client) makeSet(ctx context.Context, key string) (map[string]bool, error) {
	if set, ok, _ := c.makes.Get(ctx, key); ok {
		return set, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		set, err := c.fetchMakes(ctx, key)
		if err != nil {
			return nil, err
		}
		_ = c.makes.Set(ctx, key, set)
		slog.Debug("Loaded vehicle makes", "list", key, "count", len(set))
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]bool), nil
}

func (c *Client) fetchMakes(ctx context.Context, key string) (map[string]bool, error) {
	set := map[string]bool{}
	switch key {
	case carMakesKey:
		var resp makesForTypeResponse
		if err := c.getJSON(ctx, "/GetMakesForVehicleType/car", &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			set[strings.ToUpper(strings.TrimSpace(r.MakeName))] = true
		}
	case allMakesKey:
		var resp allMakesResponse
		if err := c.getJSON(ctx, "/GetAllMakes", &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			set[strings.ToUpper(strings.TrimSpace(r.MakeName))] = true
		}
	default:
		return nil, fmt.Errorf("unknown make list %q", key)
	}
	return set, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?format=json", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: vPIC returned %s", vehicle.ErrPending, resp.Status)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vPIC error: %s - %s", resp.Status, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) report(op string, start time.Time, err error) {
	if c.observe == nil {
		return
	}
	if errors.Is(err, vehicle.ErrNotFound) {
		err = nil
	}
	c.observe(op, time.Since(start), err)
}

// parseErrorCode reads the leading code of a vPIC ErrorCode such as "0" or
// "1,11". Anything unreadable counts as 0.
func parseErrorCode(raw string) int {
	first, _, _ := strings.Cut(raw, ",")
	code, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0
	}
	return code
}

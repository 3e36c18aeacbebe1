// Package marketdata provides the EODHD market-data client: daily closes and
// live quotes, rate-limited and disk-cached.
package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"go.uber.org/zap"

	"github.com/quarry/folio"
)

const (
	defaultBaseURL = "https://eodhd.com"

	// Minimum spacing between successive API calls, to respect provider
	// quotas.
	defaultMinSpacing = 250 * time.Millisecond
)

// EODHD is a client for the eodhd.com API. It satisfies folio.Provider.
//
// A 402 or 429 from the API is surfaced as folio.ErrRateLimited so callers
// stop issuing further calls for the run and retry on the next scheduled one.
type EODHD struct {
	apiKey  string
	base    string
	http    *http.Client
	limiter *spacer
	log     *zap.Logger
}

// Option configures an EODHD client.
type Option func(*EODHD)

// WithBaseURL points the client at another endpoint, for tests.
func WithBaseURL(base string) Option { return func(c *EODHD) { c.base = base } }

// WithHTTPClient replaces the default daily-cached client.
func WithHTTPClient(hc *http.Client) Option { return func(c *EODHD) { c.http = hc } }

// WithMinSpacing overrides the minimum delay between API calls.
func WithMinSpacing(d time.Duration) Option {
	return func(c *EODHD) { c.limiter = newSpacer(d) }
}

func NewEODHD(apiKey string, log *zap.Logger, opts ...Option) *EODHD {
	if log == nil {
		log = zap.NewNop()
	}
	c := &EODHD{
		apiKey:  apiKey,
		base:    defaultBaseURL,
		limiter: newSpacer(defaultMinSpacing),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = cached(&http.Client{Timeout: 30 * time.Second}, log)
	}
	return c
}

// DailyCloses returns the split-adjusted daily closes of ticker over r, date
// ordered. Range bounds are inclusive; non-trading days are absent from the
// response.
func (c *EODHD) DailyCloses(ctx context.Context, ticker string, r folio.Range) ([]folio.PricePoint, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s/api/eod/%s?fmt=json&api_token=%s&from=%s&to=%s",
		c.base, url.PathEscape(ticker), url.QueryEscape(c.apiKey), r.From, r.To)

	type row struct {
		Date  folio.Date `json:"date"`
		Close float64    `json:"adjusted_close"`
	}
	content := make([]row, 0)
	if err := c.jwget(ctx, addr, &content); err != nil {
		return nil, fmt.Errorf("eod %s: %w", ticker, err)
	}

	points := make([]folio.PricePoint, 0, len(content))
	for _, info := range content {
		points = append(points, folio.PricePoint{Date: info.Date, Close: info.Close})
	}
	return points, nil
}

// LiveQuote returns the most recent price of ticker from the real-time
// endpoint. A delayed close is still a quote; staleness shows in AsOf.
func (c *EODHD) LiveQuote(ctx context.Context, ticker string) (folio.Quote, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return folio.Quote{}, err
	}
	addr := fmt.Sprintf("%s/api/real-time/%s?fmt=json&api_token=%s",
		c.base, url.PathEscape(ticker), url.QueryEscape(c.apiKey))

	var jobj any
	if err := c.jwget(ctx, addr, &jobj); err != nil {
		return folio.Quote{}, fmt.Errorf("real-time %s: %w", ticker, err)
	}

	// The payload shape drifts (close can be "NA" after hours), so pick the
	// first usable price field instead of a rigid struct.
	price, err := jsonFloat(jobj, "$.close", "$.previousClose")
	if err != nil {
		return folio.Quote{}, fmt.Errorf("real-time %s: %w", ticker, folio.ErrNoPrice)
	}

	asOf := folio.Today()
	if ts, err := jsonFloat(jobj, "$.timestamp"); err == nil && ts > 0 {
		t := time.Unix(int64(ts), 0).UTC()
		asOf = folio.NewDate(t.Date())
	}
	return folio.Quote{Price: price, AsOf: asOf}, nil
}

// jsonFloat extracts the first float found at any of the given jsonpath
// expressions.
func jsonFloat(jobj any, paths ...string) (float64, error) {
	for _, path := range paths {
		jval, err := jsonpath.Get(path, jobj)
		if err != nil {
			continue
		}
		// jsonpath is never clear about whether it returns a list of one
		// answer or a single answer, keep the first one if any.
		if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
			jval = jlist[0]
		}
		if val, ok := jval.(float64); ok {
			return val, nil
		}
	}
	return 0, fmt.Errorf("no numeric value at %v", paths)
}

// jwget performs an HTTP GET and unmarshals the JSON response into data.
func (c *EODHD) jwget(ctx context.Context, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusPaymentRequired:
		return fmt.Errorf("%v %v: %s: %w",
			resp.Request.URL.Host, resp.Request.URL.Path, resp.Status, folio.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("cannot http GET %v%v: %v",
			resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

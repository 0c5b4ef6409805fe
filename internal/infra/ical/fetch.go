package ical

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"staysync/internal/app/policies"
)

const (
	// Some channel managers reject non-browser agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultMaxBytes  = 5 << 20
	DefaultTimeout   = 15 * time.Second
)

// Fetcher downloads remote calendar feeds. It never retries; the sync job
// runs again on its own schedule.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
	Parser    Parser
}

func NewFetcher(client *http.Client, userAgent string, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{Client: client, UserAgent: userAgent, MaxBytes: maxBytes}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if int64(len(body)) > f.MaxBytes {
		return nil, fmt.Errorf("%w: feed exceeds %d bytes", ErrMalformedFeed, f.MaxBytes)
	}
	return body, nil
}

// Load fetches and parses a feed in one step.
func (f *Fetcher) Load(ctx context.Context, url string) (ParseResult, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return ParseResult{}, err
	}
	return f.Parser.Parse(bytes.NewReader(body))
}

// FetchBlocks adapts Load to the calendar sync port.
func (f *Fetcher) FetchBlocks(ctx context.Context, url string) (policies.ExternalFeed, error) {
	res, err := f.Load(ctx, url)
	if err != nil {
		return policies.ExternalFeed{}, err
	}
	return policies.ExternalFeed{Ranges: res.Ranges, Skipped: res.Skipped}, nil
}

var _ policies.CalendarFetcher = (*Fetcher)(nil)

package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultListingURL is the catalog index page scraped for feed links.
const DefaultListingURL = "https://celestrak.org/NORAD/elements/"

// FetchConfig controls remote retrieval.
type FetchConfig struct {
	Timeout      time.Duration // per request (default: 30s)
	MaxBodyBytes int64         // response size limit (default: 50 MB)
	Workers      int           // concurrent downloads (default: 4)
}

// Feed is the raw content of one remote source.
type Feed struct {
	URL      string
	Data     []byte
	Err      error
	Duration time.Duration
}

// Fetcher retrieves raw TLE data from remote sources.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	workers    int
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher; zero config fields take their defaults.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 50 << 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxBytes: cfg.MaxBodyBytes,
		workers:  cfg.Workers,
		logger:   orDiscard(logger),
	}
}

// Fetch performs an HTTP GET and returns the body. HTML-wrapped single
// record pages are unwrapped to their preformatted text.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	body, err := f.get(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if looksLikeHTML(body) {
		if text, err := ExtractPre(body); err == nil {
			return text, nil
		}
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", sourceURL, f.maxBytes)
	}
	return body, nil
}

// FetchAll downloads every URL on the worker pool and returns the feeds in
// the order of urls. A failed download is reported in its Feed.Err and
// logged; it does not stop the others.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Feed {
	feeds := make([]Feed, len(urls))
	if len(urls) == 0 {
		return feeds
	}

	type job struct {
		index int
		url   string
	}
	jobs := make(chan job, f.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				start := time.Now()
				data, err := f.Fetch(ctx, j.url)
				if err != nil {
					f.logger.Warn("fetch failed", "url", j.url, "error", err)
				} else {
					f.logger.Debug("fetched feed", "url", j.url, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
				}
				// Each worker writes a distinct index.
				feeds[j.index] = Feed{URL: j.url, Data: data, Err: err, Duration: time.Since(start)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, u := range urls {
			select {
			case jobs <- job{index: i, url: u}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	for i := range feeds {
		if feeds[i].URL == "" {
			feeds[i] = Feed{URL: urls[i], Err: ctx.Err()}
		}
	}
	return feeds
}

// FetchListing scrapes listingURL for feed links and downloads them all.
func (f *Fetcher) FetchListing(ctx context.Context, listingURL string) ([]Feed, error) {
	if listingURL == "" {
		listingURL = DefaultListingURL
	}
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing URL: %w", err)
	}

	page, err := f.get(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	links, err := ListingLinks(page, base)
	if err != nil {
		return nil, err
	}
	f.logger.Info("catalog listing scanned", "url", listingURL, "feeds", len(links))

	return f.FetchAll(ctx, links), nil
}

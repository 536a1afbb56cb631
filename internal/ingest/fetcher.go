// Package ingest implements the feed fetch, deduplication, and
// validate-and-store pipeline.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"news-impact-alerts/internal/schema"
)

var tagPattern = regexp.MustCompile(`<.*?>`)

// cleanHTML strips markup from a feed description.
func cleanHTML(raw string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(raw, ""))
}

// FetcherOptions parameterise the RSS fetcher.
type FetcherOptions struct {
	URLs      []string
	File      string
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves and normalizes items from configured RSS/Atom feeds.
type Fetcher struct {
	opts   FetcherOptions
	client *http.Client
	logger zerolog.Logger
}

// NewFetcher constructs a feed fetcher.
func NewFetcher(opts FetcherOptions, logger zerolog.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "feed_fetcher").Logger(),
	}
}

// FeedURLs merges the inline URL list with the optional feed file: one URL
// per line, blank lines and '#' comments skipped.
func (f *Fetcher) FeedURLs() ([]string, error) {
	urls := append([]string(nil), f.opts.URLs...)

	if f.opts.File != "" {
		file, err := os.Open(f.opts.File)
		if err != nil {
			if os.IsNotExist(err) {
				f.logger.Warn().Str("path", f.opts.File).Msg("feed file not found")
				return urls, nil
			}
			return nil, fmt.Errorf("open feed file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read feed file: %w", err)
		}
	}

	return urls, nil
}

// FetchAll retrieves every configured feed and returns normalized candidate
// requests. Per-feed failures are logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context) []schema.AnalyzeRequest {
	urls, err := f.FeedURLs()
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to resolve feed list")
		return nil
	}

	var results []schema.AnalyzeRequest
	for _, url := range urls {
		items, err := f.fetchFeed(ctx, url)
		if err != nil {
			f.logger.Error().Err(err).Str("url", url).Msg("feed fetch failed")
			continue
		}
		results = append(results, items...)
	}
	return results
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]schema.AnalyzeRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := feed.Title
	if source == "" {
		source = "Unknown Source"
	}

	now := time.Now().UTC()
	items := make([]schema.AnalyzeRequest, 0, len(feed.Items))
	for _, entry := range feed.Items {
		headline := entry.Title
		if headline == "" {
			headline = "No Title"
		}

		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		ts := published

		items = append(items, schema.AnalyzeRequest{
			Headline:  headline,
			Source:    source,
			Timestamp: &ts,
			Text:      cleanHTML(entry.Description),
		})
	}

	f.logger.Info().Str("url", url).Int("items", len(items)).Msg("feed fetched")
	return items, nil
}

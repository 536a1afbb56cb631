package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Wire</title>
    <item>
      <title>Central bank raises rates</title>
      <description>&lt;p&gt;The central bank &lt;b&gt;raised&lt;/b&gt; rates today.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Oil prices surge</title>
      <description>Crude jumped 5%.</description>
    </item>
  </channel>
</rss>`

func TestFetchAllParsesFeed(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{
		URLs:      []string{srv.URL},
		UserAgent: "geopulse-test/1.0",
	}, zerolog.Nop())

	items := f.FetchAll(context.Background())
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if gotUA != "geopulse-test/1.0" {
		t.Fatalf("user agent = %q", gotUA)
	}

	first := items[0]
	if first.Headline != "Central bank raises rates" {
		t.Fatalf("headline = %q", first.Headline)
	}
	if first.Source != "Test Wire" {
		t.Fatalf("source = %q, want feed title", first.Source)
	}
	if first.Text != "The central bank raised rates today." {
		t.Fatalf("markup must be stripped, got %q", first.Text)
	}
	if first.Timestamp == nil || first.Timestamp.IsZero() {
		t.Fatal("published timestamp missing")
	}

	second := items[1]
	if second.Timestamp == nil || second.Timestamp.IsZero() {
		t.Fatal("items without pubDate must default to fetch time")
	}
}

func TestFetchAllSkipsFailingFeeds(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer good.Close()

	f := NewFetcher(FetcherOptions{URLs: []string{bad.URL, good.URL}}, zerolog.Nop())

	items := f.FetchAll(context.Background())
	if len(items) != 2 {
		t.Fatalf("a failing feed must not block the rest, items = %d", len(items))
	}
}

func TestFeedURLsMergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.txt")
	content := "# primary feeds\nhttps://example.com/a.rss\n\n  https://example.com/b.rss  \n# trailing comment\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feed file: %v", err)
	}

	f := NewFetcher(FetcherOptions{
		URLs: []string{"https://example.com/inline.rss"},
		File: path,
	}, zerolog.Nop())

	urls, err := f.FeedURLs()
	if err != nil {
		t.Fatalf("FeedURLs: %v", err)
	}
	want := []string{
		"https://example.com/inline.rss",
		"https://example.com/a.rss",
		"https://example.com/b.rss",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestFeedURLsMissingFileIsNotFatal(t *testing.T) {
	f := NewFetcher(FetcherOptions{
		URLs: []string{"https://example.com/inline.rss"},
		File: filepath.Join(t.TempDir(), "absent.txt"),
	}, zerolog.Nop())

	urls, err := f.FeedURLs()
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("urls = %v", urls)
	}
}

func TestCleanHTML(t *testing.T) {
	in := `  <p>Hello <a href="x">world</a></p> `
	if got := cleanHTML(in); got != "Hello world" {
		t.Fatalf("cleanHTML = %q", got)
	}
}

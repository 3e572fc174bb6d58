package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roy0424/memenews/internal/apperr"
)

func newTestExtractor(baseURL string) *Extractor {
	return New(baseURL, "test-agent", nil)
}

func serveHTML(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArticlePrimarySelectors(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/article": `<html><body>
			<div id="title_area">  Breaking   News  </div>
			<div id="dic_area">Article body text here.</div>
		</body></html>`,
	})

	e := newTestExtractor(srv.URL)
	article, err := e.Article(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title != "Breaking News" {
		t.Errorf("expected normalized title, got %q", article.Title)
	}
	if article.Body != "Article body text here." {
		t.Errorf("unexpected body %q", article.Body)
	}
	if article.URL != srv.URL+"/article" {
		t.Errorf("unexpected URL %q", article.URL)
	}
}

func TestArticleFallbackSelectors(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/old": `<html><body>
			<h3 id="articleTitle">Legacy Title</h3>
			<div class="article_body">Legacy body text.</div>
		</body></html>`,
	})

	e := newTestExtractor(srv.URL)
	article, err := e.Article(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title != "Legacy Title" {
		t.Errorf("expected fallback title, got %q", article.Title)
	}
	if article.Body != "Legacy body text." {
		t.Errorf("expected fallback body, got %q", article.Body)
	}
}

func TestArticleSelectorOrder(t *testing.T) {
	// When multiple selectors match, the first in the chain wins.
	srv := serveHTML(t, map[string]string{
		"/both": `<html><body>
			<div id="title_area">Primary Title</div>
			<h3 id="articleTitle">Secondary Title</h3>
			<div id="dic_area">Primary body.</div>
			<div class="article_body">Secondary body.</div>
		</body></html>`,
	})

	e := newTestExtractor(srv.URL)
	article, err := e.Article(context.Background(), srv.URL+"/both")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title != "Primary Title" {
		t.Errorf("expected first selector to win, got %q", article.Title)
	}
	if article.Body != "Primary body." {
		t.Errorf("expected first body selector to win, got %q", article.Body)
	}
}

func TestArticleReadabilityFallback(t *testing.T) {
	para := strings.Repeat("This paragraph carries enough real article text for extraction. ", 5)
	srv := serveHTML(t, map[string]string{
		"/blog": `<html><head><title>Readable Title</title></head><body>
			<article>
				<p>` + para + `</p>
				<p>` + para + `</p>
			</article>
		</body></html>`,
	})

	e := newTestExtractor(srv.URL)
	article, err := e.Article(context.Background(), srv.URL+"/blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title == "" {
		t.Error("expected readability to recover a title")
	}
	if !strings.Contains(article.Body, "enough real article text") {
		t.Errorf("expected readability body, got %q", article.Body)
	}
}

func TestArticleExtractionError(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/empty": `<html><body><div class="nav">menu</div></body></html>`,
	})

	e := newTestExtractor(srv.URL)
	_, err := e.Article(context.Background(), srv.URL+"/empty")
	if err == nil {
		t.Fatal("expected error for page without extractable content")
	}
	if _, ok := err.(*apperr.ExtractionError); !ok {
		t.Errorf("expected ExtractionError, got %T", err)
	}
}

func TestArticleFetchError(t *testing.T) {
	srv := serveHTML(t, map[string]string{})

	e := newTestExtractor(srv.URL)
	_, err := e.Article(context.Background(), srv.URL+"/missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	fetchErr, ok := err.(*apperr.FetchError)
	if !ok {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", fetchErr.Status)
	}
}

func listingHTML(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="section_latest">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<div class="sa_text">
			<a class="sa_text_title" href="/article/%d">Headline %d</a>
			<div class="sa_text_press">Press %d</div>
		</div>`, i, i, i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestListing(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/section/100": listingHTML(3),
	})

	e := newTestExtractor(srv.URL)
	items, err := e.Listing(context.Background(), "politics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Title != "Headline 1" {
		t.Errorf("expected document order, got %q first", items[0].Title)
	}
	if items[0].URL != srv.URL+"/article/1" {
		t.Errorf("expected absolutized URL, got %q", items[0].URL)
	}
	if items[0].Press != "Press 1" {
		t.Errorf("expected press name, got %q", items[0].Press)
	}
}

func TestListingCategoryCodes(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, listingHTML(1))
	}))
	defer srv.Close()

	e := newTestExtractor(srv.URL)
	if _, err := e.Listing(context.Background(), "it"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/section/105" {
		t.Errorf("expected /section/105 for it, got %q", gotPath)
	}

	// Unknown category falls back to politics rather than failing.
	if _, err := e.Listing(context.Background(), "sports"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/section/100" {
		t.Errorf("expected politics fallback, got %q", gotPath)
	}
}

func TestListingCapsAtTwenty(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/section/100": listingHTML(30),
	})

	e := newTestExtractor(srv.URL)
	items, err := e.Listing(context.Background(), "politics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 20 {
		t.Errorf("expected 20 items, got %d", len(items))
	}
	if items[19].Title != "Headline 20" {
		t.Errorf("expected first 20 in order, got %q last", items[19].Title)
	}
}

func TestListingSkipsIncompleteBlocks(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/section/100": `<html><body>
			<div class="sa_text"><a class="sa_text_title" href="/a">Good</a></div>
			<div class="sa_text"><a class="sa_text_title" href="/b">   </a></div>
			<div class="sa_text"><span class="sa_text_title">No link</span></div>
			<div class="sa_text"><a class="sa_text_title" href="https://other.example.com/c">Absolute</a></div>
		</body></html>`,
	})

	e := newTestExtractor(srv.URL)
	items, err := e.Listing(context.Background(), "politics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items after skipping incomplete blocks, got %d", len(items))
	}
	if items[1].URL != "https://other.example.com/c" {
		t.Errorf("expected absolute URL kept as-is, got %q", items[1].URL)
	}
}

func TestListingEmpty(t *testing.T) {
	srv := serveHTML(t, map[string]string{
		"/section/100": `<html><body><p>nothing here</p></body></html>`,
	})

	e := newTestExtractor(srv.URL)
	items, err := e.Listing(context.Background(), "politics")
	if err != nil {
		t.Fatalf("expected no error for empty listing, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d items", len(items))
	}
}

func TestListingFromFeed(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>Example Press</title>
	<item><title>Feed Headline 1</title><link>https://example.com/1</link></item>
	<item><title>Feed Headline 2</title><link>https://example.com/2</link></item>
	<item><title></title><link>https://example.com/3</link></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	e := New("https://news.example.com", "test-agent", map[string]string{"tech": srv.URL})
	items, err := e.Listing(context.Background(), "tech")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (empty title skipped), got %d", len(items))
	}
	if items[0].Title != "Feed Headline 1" {
		t.Errorf("unexpected first item %q", items[0].Title)
	}
	if items[0].Press != "Example Press" {
		t.Errorf("expected channel title as press, got %q", items[0].Press)
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  one \n\t two   three ")
	if got != "one two three" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

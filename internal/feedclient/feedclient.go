// Package feedclient reads the meme feed of a running server page by
// page. It mirrors the browser feed loader: one request in flight at a
// time, pages chained through nextCursor, incoming items deduplicated by
// identifier, and loading stops once a page adds nothing new or carries
// no cursor.
package feedclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roy0424/memenews/internal/database"
)

// Reader incrementally accumulates feed pages.
type Reader struct {
	baseURL  string
	pageSize int
	client   *http.Client

	memes      []database.Meme
	seen       map[string]struct{}
	nextCursor string
	started    bool
	done       bool
	inFlight   bool
}

// New creates a Reader against the given server base URL.
func New(baseURL string, pageSize int) *Reader {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Reader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
		seen:     make(map[string]struct{}),
	}
}

// Memes returns everything loaded so far, in feed order.
func (r *Reader) Memes() []database.Meme {
	return r.memes
}

// HasMore reports whether another page may exist.
func (r *Reader) HasMore() bool {
	return !r.done
}

// LoadMore fetches the next page and merges it into the accumulated feed,
// returning the number of new items. A page that yields zero new items or
// omits nextCursor ends the feed. Calls while a request is in flight or
// after the feed ended are no-ops.
func (r *Reader) LoadMore(ctx context.Context) (int, error) {
	if r.inFlight || r.done {
		return 0, nil
	}
	r.inFlight = true
	defer func() { r.inFlight = false }()

	pageURL := r.baseURL + "/memes?limit=" + strconv.Itoa(r.pageSize)
	if r.nextCursor != "" {
		pageURL += "&cursor=" + url.QueryEscape(r.nextCursor)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed request failed: HTTP %d", resp.StatusCode)
	}

	var page struct {
		Memes      []database.Meme `json:"memes"`
		NextCursor string          `json:"nextCursor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return 0, fmt.Errorf("decoding feed page: %w", err)
	}

	added := 0
	for _, meme := range page.Memes {
		if _, ok := r.seen[meme.ID]; ok {
			continue
		}
		r.seen[meme.ID] = struct{}{}
		r.memes = append(r.memes, meme)
		added++
	}

	r.nextCursor = page.NextCursor
	if page.NextCursor == "" || (r.started && added == 0) {
		r.done = true
	}
	r.started = true
	return added, nil
}

// LoadAll pages through the entire feed.
func (r *Reader) LoadAll(ctx context.Context) ([]database.Meme, error) {
	for r.HasMore() {
		if _, err := r.LoadMore(ctx); err != nil {
			return nil, err
		}
	}
	return r.memes, nil
}

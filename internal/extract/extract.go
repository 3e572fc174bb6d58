// Package extract pulls structured article data out of third-party news
// markup. The source site's templates have drifted over the years, so both
// the title and the body are located through ordered selector fallback
// chains; when every selector misses we prefer reporting an extraction
// failure over guessing.
package extract

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/roy0424/memenews/internal/apperr"
)

const maxListingItems = 20

// Article holds the extracted text of a single news page.
type Article struct {
	Title string
	Body  string
	URL   string
}

// ListingItem is one headline on a category index page.
type ListingItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Press string `json:"press,omitempty"`
}

// categoryCodes maps the public category names to the source's section
// codes. Unknown categories fall back to politics rather than failing.
var categoryCodes = map[string]string{
	"politics": "100",
	"economy":  "101",
	"society":  "102",
	"culture":  "103",
	"world":    "104",
	"it":       "105",
}

var titleSelectors = []string{"#title_area", "h2.media_end_head_headline", "h3#articleTitle"}
var bodySelectors = []string{"#dic_area", "#articeBody", ".article_body"}

// Extractor fetches and parses pages from the configured news source.
type Extractor struct {
	baseURL   string
	userAgent string
	feeds     map[string]string
	client    *http.Client
}

// New creates an Extractor for the given source.
func New(baseURL, userAgent string, feeds map[string]string) *Extractor {
	return &Extractor{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		feeds:     feeds,
		client: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Article fetches a news page and extracts its title and body text.
func (e *Extractor) Article(ctx context.Context, pageURL string) (*Article, error) {
	doc, raw, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	title := firstText(doc, titleSelectors)
	body := firstText(doc, bodySelectors)

	// Last resort when the selector chains miss: readability extraction.
	if title == "" || body == "" {
		rTitle, rBody := readabilityFallback(raw, pageURL)
		if title == "" {
			title = rTitle
		}
		if body == "" {
			body = rBody
		}
	}

	if title == "" || body == "" {
		return nil, &apperr.ExtractionError{URL: pageURL}
	}

	return &Article{Title: title, Body: body, URL: pageURL}, nil
}

// Listing fetches the category index page and returns up to 20 headline
// items in document order. Unknown categories never fail; blocks missing a
// title or link are skipped; zero matches yields an empty list, not an
// error.
func (e *Extractor) Listing(ctx context.Context, category string) ([]ListingItem, error) {
	if feedURL, ok := e.feeds[category]; ok && feedURL != "" {
		return e.listingFromFeed(ctx, feedURL)
	}

	code, ok := categoryCodes[category]
	if !ok {
		code = "100"
	}
	pageURL := e.baseURL + "/section/" + code

	doc, _, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var items []ListingItem
	doc.Find(".sa_text").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		titleEl := s.Find(".sa_text_title").First()
		title := normalizeText(titleEl.Text())
		href, _ := titleEl.Attr("href")
		press := normalizeText(s.Find(".sa_text_press").First().Text())

		if title == "" || href == "" {
			return true
		}
		items = append(items, ListingItem{
			Title: title,
			URL:   e.absoluteURL(href),
			Press: press,
		})
		return len(items) < maxListingItems
	})

	return items, nil
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, "", &apperr.FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", &apperr.FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &apperr.FetchError{URL: pageURL, Status: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &apperr.FetchError{URL: pageURL, Err: err}
	}
	raw := string(bodyBytes)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, "", &apperr.FetchError{URL: pageURL, Err: err}
	}
	return doc, raw, nil
}

func (e *Extractor) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return e.baseURL + href
}

// firstText walks the selector chain and returns the first non-empty
// normalized text.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := normalizeText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func readabilityFallback(raw, pageURL string) (title, body string) {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(raw), parsed)
	if err != nil {
		return "", ""
	}
	body = strings.TrimSpace(article.TextContent)
	if len(body) < 100 {
		body = ""
	}
	return normalizeText(article.Title), body
}

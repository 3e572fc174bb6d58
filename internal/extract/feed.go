package extract

import (
	"context"

	"github.com/mmcdole/gofeed"

	"github.com/roy0424/memenews/internal/apperr"
)

// listingFromFeed builds a category listing from an RSS/Atom feed. Item
// rules match the scraped path: entries missing a title or link are
// skipped and at most 20 items are returned in feed order.
func (e *Extractor) listingFromFeed(ctx context.Context, feedURL string) ([]ListingItem, error) {
	parser := gofeed.NewParser()
	parser.UserAgent = e.userAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, &apperr.FetchError{URL: feedURL, Err: err}
	}

	press := normalizeText(feed.Title)

	var items []ListingItem
	for _, item := range feed.Items {
		if len(items) >= maxListingItems {
			break
		}
		title := normalizeText(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		items = append(items, ListingItem{
			Title: title,
			URL:   item.Link,
			Press: press,
		})
	}
	return items, nil
}

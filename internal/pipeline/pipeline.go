// Package pipeline sequences one meme-generation run: resolve content,
// summarize, caption, image prompt, synthesize, clip search, persist. The
// steps are strictly ordered because each one's output feeds the next; no
// step is retried, and only the clip search and the persistence write are
// allowed to fail without aborting the run.
package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/roy0424/memenews/internal/apperr"
	"github.com/roy0424/memenews/internal/database"
	"github.com/roy0424/memenews/internal/extract"
	"github.com/roy0424/memenews/internal/image"
	"github.com/roy0424/memenews/internal/writer"
)

// maxStoredContent caps how much source text is persisted with a meme.
const maxStoredContent = 5000

// Request is the tagged input of one generation run.
type Request struct {
	Kind string `json:"type"` // "url" or "text"
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// Result is the outcome of one generation run. ID is empty when the
// persistence write failed or was skipped.
type Result struct {
	ID       string   `json:"id,omitempty"`
	Summary  string   `json:"summary"`
	MemeText string   `json:"memeText"`
	Emojis   []string `json:"emojis"`
	ImageURL string   `json:"imageUrl"`
	GifURLs  []string `json:"gifUrls,omitempty"`
}

// ArticleExtractor resolves a URL into article text.
type ArticleExtractor interface {
	Article(ctx context.Context, url string) (*extract.Article, error)
}

// ClipSearcher finds optional clip overlays.
type ClipSearcher interface {
	Search(ctx context.Context, keywords []string, count int) []string
}

// MemeStore persists generated memes.
type MemeStore interface {
	InsertMeme(m database.NewMeme) (string, error)
}

// Pipeline orchestrates one meme generation run per request.
type Pipeline struct {
	extractor ArticleExtractor
	writer    *writer.Writer
	image     image.Provider
	clips     ClipSearcher
	store     MemeStore
}

// New creates a Pipeline. store may be nil, in which case results are
// returned without being persisted.
func New(extractor ArticleExtractor, w *writer.Writer, img image.Provider, clipSearcher ClipSearcher, store MemeStore) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		writer:    w,
		image:     img,
		clips:     clipSearcher,
		store:     store,
	}
}

// Generate runs the full pipeline for one request.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	// Step 1: resolve content. Input validation happens before any
	// network call.
	var content string
	var article *extract.Article
	switch req.Kind {
	case "url":
		if req.URL == "" {
			return nil, &apperr.InputError{Msg: "URL is required"}
		}
		var err error
		article, err = p.extractor.Article(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		content = article.Title + "\n\n" + article.Body
	default:
		if strings.TrimSpace(req.Text) == "" {
			return nil, &apperr.InputError{Msg: "Text is required"}
		}
		content = req.Text
	}

	// Step 2: summarize.
	summary, err := p.writer.Summarize(ctx, content)
	if err != nil {
		return nil, err
	}

	// Step 3: caption and emoji.
	caption, err := p.writer.Captionize(ctx, summary)
	if err != nil {
		return nil, err
	}

	// Step 4: image prompt from the original content, not the summary, to
	// preserve detail for the image description.
	imagePrompt, err := p.writer.ImagePrompt(ctx, content)
	if err != nil {
		return nil, err
	}

	// Step 5: synthesize the image.
	imageURL, err := p.image.Synthesize(ctx, imagePrompt)
	if err != nil {
		return nil, err
	}

	// Step 6: keyword extraction, then the optional clip search. Only the
	// search itself is allowed to degrade to an empty result.
	keywords, err := p.writer.Keywords(ctx, summary)
	if err != nil {
		return nil, err
	}
	gifURLs := p.clips.Search(ctx, keywords, 3)

	result := &Result{
		Summary:  summary,
		MemeText: caption.Text,
		Emojis:   caption.Emojis,
		ImageURL: imageURL,
		GifURLs:  gifURLs,
	}

	// Step 7: best-effort persist. A write failure is logged and the
	// result is still returned, without an identifier.
	if p.store != nil {
		meme := database.NewMeme{
			NewsContent: truncate(content, maxStoredContent),
			Summary:     summary,
			MemeText:    caption.Text,
			Emojis:      caption.Emojis,
			ImageURL:    imageURL,
			GifURLs:     gifURLs,
		}
		if req.Kind == "url" {
			meme.NewsURL = &req.URL
			if article != nil {
				meme.NewsTitle = &article.Title
			}
		}

		id, err := p.store.InsertMeme(meme)
		if err != nil {
			log.Printf("Database save failed (continuing without saving): %v", err)
		} else {
			result.ID = id
		}
	}

	return result, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

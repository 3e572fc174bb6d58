package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/roy0424/memenews/internal/apperr"
	"github.com/roy0424/memenews/internal/database"
	"github.com/roy0424/memenews/internal/extract"
	"github.com/roy0424/memenews/internal/writer"
)

// fakeLLM answers the four generation tasks with fixed outputs.
type fakeLLM struct {
	err   error
	calls int
}

func (f *fakeLLM) Generate(ctx context.Context, system, user string, structured bool) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if !structured {
		// Summarize and image prompt are the unstructured tasks.
		return "generated text", nil
	}
	if strings.Contains(user, "keywords") {
		return `{"keywords": ["news", "meme"]}`, nil
	}
	return `{"text": "meme caption", "emojis": ["😂", "🔥"]}`, nil
}

func (f *fakeLLM) IsConfigured() bool { return true }

type fakeExtractor struct {
	article *extract.Article
	err     error
	calls   int
}

func (f *fakeExtractor) Article(ctx context.Context, url string) (*extract.Article, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.article, nil
}

type fakeImage struct {
	url string
	err error
}

func (f *fakeImage) Synthesize(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeClips struct {
	urls  []string
	calls int
}

func (f *fakeClips) Search(ctx context.Context, keywords []string, count int) []string {
	f.calls++
	return f.urls
}

type fakeStore struct {
	inserted []database.NewMeme
	id       string
	err      error
}

func (f *fakeStore) InsertMeme(m database.NewMeme) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, m)
	return f.id, nil
}

func newTestPipeline(ext *fakeExtractor, img *fakeImage, clips *fakeClips, store *fakeStore) *Pipeline {
	var s MemeStore
	if store != nil {
		s = store
	}
	return New(ext, writer.New(&fakeLLM{}), img, clips, s)
}

func TestGenerateFromText(t *testing.T) {
	ext := &fakeExtractor{}
	img := &fakeImage{url: "data:image/png;base64,AAAA"}
	clips := &fakeClips{urls: []string{"https://giphy.example/1.gif"}}
	store := &fakeStore{id: "meme-1"}
	p := newTestPipeline(ext, img, clips, store)

	result, err := p.Generate(context.Background(), Request{Kind: "text", Text: "some news text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "generated text" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
	if result.MemeText != "meme caption" {
		t.Errorf("unexpected caption %q", result.MemeText)
	}
	if len(result.Emojis) != 2 {
		t.Errorf("unexpected emojis %v", result.Emojis)
	}
	if result.ImageURL != "data:image/png;base64,AAAA" {
		t.Errorf("unexpected image %q", result.ImageURL)
	}
	if len(result.GifURLs) != 1 {
		t.Errorf("unexpected gif urls %v", result.GifURLs)
	}
	if result.ID != "meme-1" {
		t.Errorf("expected persisted id, got %q", result.ID)
	}
	if ext.calls != 0 {
		t.Error("text request must not hit the extractor")
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(store.inserted))
	}
	saved := store.inserted[0]
	if saved.NewsURL != nil || saved.NewsTitle != nil {
		t.Error("text request must not record a news URL or title")
	}
	if saved.NewsContent != "some news text" {
		t.Errorf("unexpected stored content %q", saved.NewsContent)
	}
}

func TestGenerateFromURL(t *testing.T) {
	ext := &fakeExtractor{article: &extract.Article{Title: "Title", Body: "Body", URL: "https://news.example.com/1"}}
	store := &fakeStore{id: "meme-2"}
	p := newTestPipeline(ext, &fakeImage{url: "img"}, &fakeClips{}, store)

	result, err := p.Generate(context.Background(), Request{Kind: "url", URL: "https://news.example.com/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.calls != 1 {
		t.Errorf("expected 1 extractor call, got %d", ext.calls)
	}
	if result.ID != "meme-2" {
		t.Errorf("expected persisted id, got %q", result.ID)
	}

	saved := store.inserted[0]
	if saved.NewsURL == nil || *saved.NewsURL != "https://news.example.com/1" {
		t.Error("expected news URL recorded")
	}
	if saved.NewsTitle == nil || *saved.NewsTitle != "Title" {
		t.Error("expected news title recorded")
	}
	if saved.NewsContent != "Title\n\nBody" {
		t.Errorf("expected title joined with body, got %q", saved.NewsContent)
	}
}

func TestGenerateMissingURL(t *testing.T) {
	ext := &fakeExtractor{}
	p := newTestPipeline(ext, &fakeImage{url: "img"}, &fakeClips{}, nil)

	_, err := p.Generate(context.Background(), Request{Kind: "url"})
	if _, ok := err.(*apperr.InputError); !ok {
		t.Fatalf("expected InputError, got %v", err)
	}
	if ext.calls != 0 {
		t.Error("validation must happen before any network call")
	}
}

func TestGenerateMissingText(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, &fakeImage{url: "img"}, &fakeClips{}, nil)

	_, err := p.Generate(context.Background(), Request{Kind: "text", Text: "   "})
	if _, ok := err.(*apperr.InputError); !ok {
		t.Fatalf("expected InputError for blank text, got %v", err)
	}
}

func TestGenerateExtractionFailureAborts(t *testing.T) {
	ext := &fakeExtractor{err: &apperr.ExtractionError{URL: "https://news.example.com/1"}}
	p := newTestPipeline(ext, &fakeImage{url: "img"}, &fakeClips{}, nil)

	_, err := p.Generate(context.Background(), Request{Kind: "url", URL: "https://news.example.com/1"})
	if _, ok := err.(*apperr.ExtractionError); !ok {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestGenerateImageFailureAborts(t *testing.T) {
	img := &fakeImage{err: &apperr.GenerationError{Provider: "pollinations", Status: 502}}
	p := newTestPipeline(&fakeExtractor{}, img, &fakeClips{}, nil)

	_, err := p.Generate(context.Background(), Request{Kind: "text", Text: "news"})
	if _, ok := err.(*apperr.GenerationError); !ok {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerateEmptyClipsTolerated(t *testing.T) {
	clips := &fakeClips{urls: nil}
	p := newTestPipeline(&fakeExtractor{}, &fakeImage{url: "img"}, clips, nil)

	result, err := p.Generate(context.Background(), Request{Kind: "text", Text: "news"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clips.calls != 1 {
		t.Errorf("expected clip search attempted, got %d calls", clips.calls)
	}
	if result.GifURLs != nil {
		t.Errorf("expected no gif urls, got %v", result.GifURLs)
	}
}

func TestGeneratePersistFailureTolerated(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("disk full")}
	p := newTestPipeline(&fakeExtractor{}, &fakeImage{url: "img"}, &fakeClips{}, store)

	result, err := p.Generate(context.Background(), Request{Kind: "text", Text: "news"})
	if err != nil {
		t.Fatalf("expected result despite store failure, got %v", err)
	}
	if result.ID != "" {
		t.Errorf("expected empty id on store failure, got %q", result.ID)
	}
	if result.MemeText == "" {
		t.Error("expected full result despite store failure")
	}
}

func TestGenerateWithoutStore(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, &fakeImage{url: "img"}, &fakeClips{}, nil)

	result, err := p.Generate(context.Background(), Request{Kind: "text", Text: "news"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != "" {
		t.Errorf("expected empty id without store, got %q", result.ID)
	}
}

func TestGenerateTruncatesStoredContent(t *testing.T) {
	store := &fakeStore{id: "meme-3"}
	p := newTestPipeline(&fakeExtractor{}, &fakeImage{url: "img"}, &fakeClips{}, store)

	long := strings.Repeat("가", 6000)
	_, err := p.Generate(context.Background(), Request{Kind: "text", Text: long})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved := store.inserted[0]
	if got := len([]rune(saved.NewsContent)); got != maxStoredContent {
		t.Errorf("expected content truncated to %d runes, got %d", maxStoredContent, got)
	}
}

func TestGenerateUnknownKindTreatedAsText(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, &fakeImage{url: "img"}, &fakeClips{}, nil)

	result, err := p.Generate(context.Background(), Request{Kind: "", Text: "news"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary == "" {
		t.Error("expected generation for default kind")
	}
}

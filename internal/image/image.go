// Package image synthesizes an illustration for a meme from a text
// prompt. Two interchangeable backends sit behind one Provider contract;
// the configuration selects exactly one at construction time. Whatever the
// backend returns, the caller always receives a directly embeddable
// reference: remote URLs are fetched and re-encoded as data URLs.
package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/roy0424/memenews/internal/apperr"
)

// Provider generates one image for a prompt and returns an embeddable
// reference (a base64 data URL).
type Provider interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// OpenAIProvider calls the OpenAI images API with a configurable model
// (gpt-image-1 or dall-e-3).
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI image provider.
func NewOpenAIProvider(model, apiKeyEnv string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: "https://api.openai.com",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Synthesize generates a 1024x1024 image and returns it as a data URL.
func (p *OpenAIProvider) Synthesize(ctx context.Context, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", &apperr.GenerationError{Provider: p.Model, Err: fmt.Errorf("API key not configured")}
	}

	body := map[string]any{
		"model":  p.Model,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+"/v1/images/generations", strings.NewReader(string(data)))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &apperr.GenerationError{Provider: p.Model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &apperr.GenerationError{Provider: p.Model, Status: resp.StatusCode, Code: parseErrorCode(respBody)}
	}

	var result struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", &apperr.GenerationError{Provider: p.Model, Err: fmt.Errorf("no image in response")}
	}

	if b64 := result.Data[0].B64JSON; b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	if result.Data[0].URL == "" {
		return "", &apperr.GenerationError{Provider: p.Model, Err: fmt.Errorf("no image URL in response")}
	}
	return fetchAsDataURL(ctx, p.client, result.Data[0].URL, p.Model)
}

// PollinationsProvider generates images through the keyless
// pollinations.ai prompt endpoint.
type PollinationsProvider struct {
	BaseURL string
	client  *http.Client
}

// NewPollinationsProvider creates a Pollinations provider.
func NewPollinationsProvider() *PollinationsProvider {
	return &PollinationsProvider{
		BaseURL: "https://image.pollinations.ai",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Synthesize requests a 1024x1024 image for the prompt and returns it as a
// data URL.
func (p *PollinationsProvider) Synthesize(ctx context.Context, prompt string) (string, error) {
	imageURL := fmt.Sprintf("%s/prompt/%s?width=1024&height=1024&nologo=true",
		p.BaseURL, url.PathEscape(prompt))
	return fetchAsDataURL(ctx, p.client, imageURL, "pollinations")
}

// CreateProvider selects the image backend from configuration. Unknown
// selectors default to pollinations, matching the keyless default setup.
func CreateProvider(provider, apiKeyEnv string) Provider {
	switch strings.ToLower(provider) {
	case "dalle3", "dalle-3":
		return NewOpenAIProvider("dall-e-3", apiKeyEnv)
	case "gpt-image-1", "gptimage1":
		return NewOpenAIProvider("gpt-image-1", apiKeyEnv)
	default:
		return NewPollinationsProvider()
	}
}

// fetchAsDataURL downloads image bytes and re-encodes them as a base64
// PNG data URL.
func fetchAsDataURL(ctx context.Context, client *http.Client, imageURL, provider string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &apperr.GenerationError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &apperr.GenerationError{Provider: provider, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &apperr.GenerationError{Provider: provider, Err: err}
	}
	if len(raw) == 0 {
		return "", &apperr.GenerationError{Provider: provider, Err: fmt.Errorf("empty image response")}
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func parseErrorCode(body []byte) string {
	var e struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Code
}

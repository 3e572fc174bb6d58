package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/roy0424/memenews/internal/apperr"
)

// Provider is the interface for text-generation backends. When structured
// is true the backend is asked to return a single JSON object.
type Provider interface {
	Generate(ctx context.Context, system, user string, structured bool) (string, error)
	IsConfigured() bool
}

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider reading the key from the
// given environment variable.
func NewOpenAIProvider(model, apiKeyEnv string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: "https://api.openai.com",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends the system and user instructions to OpenAI and returns
// the response text.
func (o *OpenAIProvider) Generate(ctx context.Context, system, user string, structured bool) (string, error) {
	if o.APIKey == "" {
		return "", &apperr.GenerationError{Provider: "openai", Err: fmt.Errorf("API key not configured")}
	}

	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.7,
	}
	if structured {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &apperr.GenerationError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &apperr.GenerationError{
			Provider: "openai",
			Status:   resp.StatusCode,
			Code:     parseOpenAIErrorCode(respBody),
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", &apperr.GenerationError{Provider: "openai", Err: fmt.Errorf("no choices in response")}
	}

	return result.Choices[0].Message.Content, nil
}

// parseOpenAIErrorCode pulls the error code out of an OpenAI error body.
func parseOpenAIErrorCode(body []byte) string {
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

// GeminiProvider calls the Gemini generateContent API.
type GeminiProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewGeminiProvider creates a new Gemini provider reading the key from the
// given environment variable.
func NewGeminiProvider(model, apiKeyEnv string) *GeminiProvider {
	return &GeminiProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: "https://generativelanguage.googleapis.com",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.APIKey != ""
}

// Generate sends the instructions to Gemini and returns the response text.
func (g *GeminiProvider) Generate(ctx context.Context, system, user string, structured bool) (string, error) {
	if g.APIKey == "" {
		return "", &apperr.GenerationError{Provider: "gemini", Err: fmt.Errorf("API key not configured")}
	}

	body := map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": system}},
		},
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": user}}},
		},
	}
	if structured {
		body["generationConfig"] = map[string]string{"responseMimeType": "application/json"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &apperr.GenerationError{Provider: "gemini", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", &apperr.GenerationError{Provider: "gemini", Status: resp.StatusCode}
	}

	var result struct {
		Candidates []struct {
			FinishReason string `json:"finishReason"`
			Content      struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if result.PromptFeedback.BlockReason != "" {
		return "", &apperr.GenerationError{
			Provider: "gemini",
			Status:   http.StatusBadRequest,
			Code:     apperr.PolicyViolationCode,
		}
	}
	if len(result.Candidates) == 0 {
		return "", &apperr.GenerationError{Provider: "gemini", Err: fmt.Errorf("no candidates in response")}
	}
	if result.Candidates[0].FinishReason == "SAFETY" {
		return "", &apperr.GenerationError{
			Provider: "gemini",
			Status:   http.StatusBadRequest,
			Code:     apperr.PolicyViolationCode,
		}
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// CreateProvider creates an LLM provider based on configuration. The two
// backends are interchangeable variants behind one contract; exactly one
// is selected at construction time.
func CreateProvider(provider, openaiModel, openaiKeyEnv, geminiModel, geminiKeyEnv string) Provider {
	if strings.ToLower(provider) == "gemini" {
		p := NewGeminiProvider(geminiModel, geminiKeyEnv)
		if p.IsConfigured() {
			log.Printf("Using Gemini with model: %s", geminiModel)
			return p
		}
		log.Printf("Gemini key missing (%s), falling back to OpenAI config", geminiKeyEnv)
	}

	p := NewOpenAIProvider(openaiModel, openaiKeyEnv)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", openaiModel)
		return p
	}

	log.Println("No LLM provider available. Set the configured API key environment variable.")
	return nil
}

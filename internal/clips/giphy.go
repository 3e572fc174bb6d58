// Package clips finds short animated clips for a meme. The overlay is
// cosmetic, so this client never fails: a missing credential, transport
// error or empty result all degrade to an empty list.
package clips

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const giphySearchURL = "https://api.giphy.com/v1/gifs/search"

// Client searches the Giphy API.
type Client struct {
	apiKey  string
	BaseURL string
	client  *http.Client
}

// NewClient creates a Giphy client reading the key from the given
// environment variable. An empty key silently disables searches.
func NewClient(apiKeyEnv string) *Client {
	return &Client{
		apiKey:  os.Getenv(apiKeyEnv),
		BaseURL: giphySearchURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the API key is available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Search returns up to count clip URLs rated safe for general audiences.
// Keywords are joined into one query. Every failure path returns an empty
// slice so clip overlay never blocks meme generation.
func (c *Client) Search(ctx context.Context, keywords []string, count int) []string {
	if c.apiKey == "" {
		log.Println("Giphy API key not set, skipping clip search")
		return nil
	}
	if len(keywords) == 0 {
		return nil
	}

	params := url.Values{
		"api_key": {c.apiKey},
		"q":       {strings.Join(keywords, " ")},
		"limit":   {strconv.Itoa(count)},
		"rating":  {"g"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("Giphy request error: %v", err)
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("Giphy API error: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Giphy HTTP error: %d", resp.StatusCode)
		return nil
	}

	var result struct {
		Data []struct {
			Images struct {
				Original struct {
					URL string `json:"url"`
				} `json:"original"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Giphy decode error: %v", err)
		return nil
	}

	var urls []string
	for _, gif := range result.Data {
		if gif.Images.Original.URL != "" {
			urls = append(urls, gif.Images.Original.URL)
		}
	}
	return urls
}

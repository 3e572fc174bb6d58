package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Server  Server  `yaml:"server"`
	Source  Source  `yaml:"source"`
	LLM     LLM     `yaml:"llm"`
	Image   Image   `yaml:"image"`
	Clips   Clips   `yaml:"clips"`
	Output  Output  `yaml:"output"`
	Logging Logging `yaml:"logging"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Source configures the news site the extractor scrapes.
type Source struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	// Feeds optionally maps a category to an RSS feed URL; when set, the
	// listing for that category is built from the feed instead of scraping.
	Feeds map[string]string `yaml:"feeds"`
}

type LLM struct {
	Provider     string `yaml:"provider"` // "openai" or "gemini"
	Model        string `yaml:"model"`
	APIKeyEnv    string `yaml:"api_key_env"`
	GeminiModel  string `yaml:"gemini_model"`
	GeminiKeyEnv string `yaml:"gemini_key_env"`
}

type Image struct {
	Provider  string `yaml:"provider"` // "dalle3", "gpt-image-1" or "pollinations"
	APIKeyEnv string `yaml:"api_key_env"`
}

type Clips struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for memenews.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "memenews")
}

// DataDir returns the XDG data directory for memenews.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "memenews")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/memenews/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'memenews init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file. A .env file in the working
// directory is loaded first so *_env credential lookups resolve.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{Port: 8000},
		Source: Source{
			BaseURL:   "https://news.naver.com",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		LLM: LLM{
			Provider:     "openai",
			Model:        "gpt-4o",
			APIKeyEnv:    "OPENAI_API_KEY",
			GeminiModel:  "gemini-1.5-flash",
			GeminiKeyEnv: "GEMINI_API_KEY",
		},
		Image: Image{
			Provider:  "pollinations",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Clips:   Clips{APIKeyEnv: "GIPHY_API_KEY"},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

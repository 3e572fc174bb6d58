package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roy0424/memenews/internal/clips"
	"github.com/roy0424/memenews/internal/config"
	"github.com/roy0424/memenews/internal/database"
	"github.com/roy0424/memenews/internal/extract"
	"github.com/roy0424/memenews/internal/feedclient"
	"github.com/roy0424/memenews/internal/image"
	"github.com/roy0424/memenews/internal/llm"
	"github.com/roy0424/memenews/internal/pipeline"
	"github.com/roy0424/memenews/internal/server"
	"github.com/roy0424/memenews/internal/writer"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "memenews",
	Short:   "Turn news articles into meme posts",
	Long:    "memenews scrapes a news article, summarizes it, writes a meme caption, generates an image, and publishes the result to a scrollable feed.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("memenews", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/memenews/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the news source, providers, and API keys.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Feed:")
		fmt.Printf("  Memes: %d\n", stats.TotalMemes)
		if stats.Newest != "" {
			fmt.Printf("  Newest: %s\n", stats.Newest)
		}
		fmt.Println("\nProviders:")
		fmt.Printf("  LLM: %s\n", cfg.LLM.Provider)
		fmt.Printf("  Image: %s\n", cfg.Image.Provider)
		fmt.Printf("  Clips configured: %v\n", clips.NewClient(cfg.Clips.APIKeyEnv).IsConfigured())
		return nil
	},
}

// --- crawl command ---

var crawlCategory string

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Print the headline listing for a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := newExtractor()
		items, err := extractor.Listing(context.Background(), crawlCategory)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No headlines found.")
			return nil
		}
		for i, item := range items {
			fmt.Printf("[%2d] %s\n", i+1, item.Title)
			if item.Press != "" {
				fmt.Printf("     %s — %s\n", item.Press, item.URL)
			} else {
				fmt.Printf("     %s\n", item.URL)
			}
		}
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlCategory, "category", "politics", "Category: politics, economy, society, culture, world, it")
}

// --- generate command ---

var (
	generateURL  string
	generateText string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one meme from a news URL or raw text",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := pipeline.Request{Kind: "text", Text: generateText}
		if generateURL != "" {
			req = pipeline.Request{Kind: "url", URL: generateURL}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := newPipeline(db)
		result, err := pipe.Generate(context.Background(), req)
		if err != nil {
			return err
		}

		fmt.Printf("Summary: %s\n", result.Summary)
		fmt.Printf("Caption: %s %s\n", result.MemeText, strings.Join(result.Emojis, " "))
		if strings.HasPrefix(result.ImageURL, "data:") {
			fmt.Printf("Image: inline data URL (%d bytes)\n", len(result.ImageURL))
		} else {
			fmt.Printf("Image: %s\n", result.ImageURL)
		}
		for _, clip := range result.GifURLs {
			fmt.Printf("Clip: %s\n", clip)
		}
		if result.ID != "" {
			fmt.Printf("Saved as: %s\n", result.ID)
		} else {
			fmt.Println("Not saved to the feed.")
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateURL, "url", "", "News article URL")
	generateCmd.Flags().StringVar(&generateText, "text", "", "Raw news text")
	generateCmd.MarkFlagsOneRequired("url", "text")
	generateCmd.MarkFlagsMutuallyExclusive("url", "text")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, newExtractor(), newPipeline(db), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- feed command ---

var feedServer string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Page through the feed of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := feedclient.New(feedServer, 10)
		memes, err := reader.LoadAll(context.Background())
		if err != nil {
			return err
		}

		if len(memes) == 0 {
			fmt.Println("The feed is empty.")
			return nil
		}
		for _, meme := range memes {
			fmt.Printf("%s  %s %s\n", meme.CreatedAt, meme.MemeText, strings.Join(meme.Emojis, " "))
			fmt.Printf("    %s\n", meme.Summary)
		}
		return nil
	},
}

func init() {
	feedCmd.Flags().StringVar(&feedServer, "server", "http://localhost:8000", "Base URL of the memenews server")
}

func newExtractor() *extract.Extractor {
	return extract.New(cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.Source.Feeds)
}

func newPipeline(db *database.DB) *pipeline.Pipeline {
	provider := llm.CreateProvider(
		cfg.LLM.Provider,
		cfg.LLM.Model,
		cfg.LLM.APIKeyEnv,
		cfg.LLM.GeminiModel,
		cfg.LLM.GeminiKeyEnv,
	)
	return pipeline.New(
		newExtractor(),
		writer.New(provider),
		image.CreateProvider(cfg.Image.Provider, cfg.Image.APIKeyEnv),
		clips.NewClient(cfg.Clips.APIKeyEnv),
		db,
	)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "memenews.db")
	return database.Open(dbPath)
}

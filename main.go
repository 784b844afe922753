package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	noCheck      bool
	settingsPath string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "wechat-publisher <input-file>",
	Short: "Publish a Markdown article as a WeChat Official Account draft",
	Long: `Converts a Markdown article with YAML frontmatter into a WeChat draft:
resolves and uploads media, optionally generates a digest, assembles the
final HTML, and creates or updates the draft by title.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inputPath := args[0]
		if _, err := os.Stat(inputPath); err != nil {
			log.Fatalf("Input file not found: %s", inputPath)
		}

		// Secrets come from the environment only; .env is a convenience.
		if err := godotenv.Load(); err == nil {
			log.Printf("Loaded environment from .env")
		}

		creds, err := loadCredentials()
		if err != nil {
			log.Fatalf("Missing credentials: %v", err)
		}

		settings, err := resolveSettings(settingsPath)
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}

		if debugMode {
			log.Printf("[DEBUG] Settings: mode=%s policy=%s base_url=%s",
				settings.Media.Mode, settings.Media.UploadPolicy, settings.WeChat.BaseURL)
		}

		client := NewWeChatClient(settings, creds)
		summary := NewSummaryGenerator(settings, creds.SummaryAPIKey)
		pipeline := NewPipeline(settings, client, summary)

		result, err := pipeline.Run(context.Background(), inputPath, !noCheck)
		if err != nil {
			log.Fatalf("Publishing failed: %v", err)
		}

		fmt.Printf("\nSuccess! Draft %s (id: %s)\n", result.Action, result.DraftID)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&noCheck, "no-check", false, "Skip the existing-draft lookup and always create a new draft")
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to a settings file (overrides the default location)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

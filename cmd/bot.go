package cmd

import (
	"context"
	"errors"
	"log"

	"teleferry/internal/bot"
	"teleferry/internal/staging"
	"teleferry/internal/transfer"

	"github.com/spf13/cobra"
)

// botCmd represents the bot command
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot host",
	Long: `Run the Telegram bot. Every media message the bot receives is relayed
to Google Drive through the chunked transfer pipeline, one worker per
message, and answered with the shareable link.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBot(); err != nil {
			log.Fatalf("Bot failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

// runBot wires the pipeline behind the Telegram host
func runBot() error {
	ctx := createContext()

	if err := cfg.ValidateTelegram(); err != nil {
		return err
	}
	if err := cfg.ValidateDrive(); err != nil {
		return err
	}

	dest, folderID, err := createDestination(ctx, cfg.Drive.FolderName)
	if err != nil {
		return err
	}

	store, err := staging.NewStore(cfg.Transfer.StagingDir)
	if err != nil {
		return err
	}

	orch := transfer.NewOrchestrator(cfg.Transfer, store, dest)

	b, err := bot.New(cfg.Telegram.Token, orch, folderID)
	if err != nil {
		return err
	}

	log.Printf("Starting Telegram bot...")
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

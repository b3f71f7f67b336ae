package cmd

import (
	"context"
	"fmt"
	"log"

	"teleferry/internal/destination/drive"
	"teleferry/internal/source"
	"teleferry/internal/staging"
	"teleferry/internal/transfer"
	"teleferry/internal/ui"

	"github.com/spf13/cobra"
)

type SendFlags struct {
	FilePath string
	URL      string
	Name     string
	Folder   string
}

var sendFlags SendFlags

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Upload a local file or URL to Google Drive",
	Long: `Upload one object to Google Drive through the resumable chunked
pipeline. This will:

1. Stage the object on disk (local copy or HTTP download)
2. Open a resumable upload session against Drive
3. Push fixed-size chunks with bounded retry on transient failures
4. Print the shareable link of the finished file

Use --file for a local file or --url for a remote one.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateSendFlags(&sendFlags)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSend(&sendFlags); err != nil {
			log.Fatalf("Send failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendFlags.FilePath, "file", "f", "", "Path to local file to upload")
	sendCmd.Flags().StringVarP(&sendFlags.URL, "url", "u", "", "URL to download and upload")
	sendCmd.Flags().StringVarP(&sendFlags.Name, "name", "n", "", "Destination file name (defaults to the source name)")
	sendCmd.Flags().StringVar(&sendFlags.Folder, "folder", "", "Destination folder name (defaults to configured folder)")
}

// validateSendFlags validates the send command flags
func validateSendFlags(flags *SendFlags) error {
	if flags.FilePath == "" && flags.URL == "" {
		return fmt.Errorf("either --file or --url is required")
	}
	if flags.FilePath != "" && flags.URL != "" {
		return fmt.Errorf("--file and --url are mutually exclusive")
	}
	return nil
}

// runSend wires the pipeline for a single CLI-driven transfer
func runSend(flags *SendFlags) error {
	ctx := createContext()

	if err := cfg.ValidateDrive(); err != nil {
		return err
	}

	var src source.Source
	var err error
	if flags.FilePath != "" {
		src, err = source.NewFileSource(flags.FilePath)
	} else {
		src, err = source.NewHTTPSource(flags.URL, flags.Name, nil)
	}
	if err != nil {
		return err
	}

	dest, folderID, err := createDestination(ctx, flags.Folder)
	if err != nil {
		return err
	}

	store, err := staging.NewStore(cfg.Transfer.StagingDir)
	if err != nil {
		return err
	}

	orch := transfer.NewOrchestrator(cfg.Transfer, store, dest)

	name := flags.Name
	if name == "" {
		name = src.Name()
	}

	events := make(chan transfer.ProgressEvent, 16)
	progress := ui.NewProgressUI(name)
	done := make(chan struct{})
	go func() {
		progress.Run(events)
		close(done)
	}()

	outcome := orch.Run(ctx, transfer.Request{
		Source: src,
		Name:   name,
		Folder: folderID,
		Events: events,
	})
	close(events)
	<-done

	if outcome.Err != nil {
		return outcome.Err
	}
	fmt.Printf("Uploaded %s\n", outcome.Object.Name)
	if outcome.Object.Link != "" {
		fmt.Printf("Link: %s\n", outcome.Object.Link)
	}
	return nil
}

// createDestination builds the Drive client and resolves the target folder
func createDestination(ctx context.Context, folderName string) (*drive.Client, string, error) {
	dest, err := drive.NewClientFromFiles(ctx, cfg.Drive.CredentialsPath, cfg.Drive.TokenPath)
	if err != nil {
		return nil, "", err
	}
	if folderName == "" {
		folderName = cfg.Drive.FolderName
	}
	folderID := ""
	if folderName != "" {
		folderID, err = dest.EnsureFolder(ctx, folderName)
		if err != nil {
			return nil, "", err
		}
	}
	return dest, folderID, nil
}

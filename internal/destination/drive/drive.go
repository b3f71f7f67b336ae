// Package drive implements the resumable chunked-upload destination on
// top of the Google Drive v3 API: session creation, chunk pushes with
// offset re-query, and finalization into a shareable file.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"teleferry/internal/transfer"
)

const defaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"

const folderMimeType = "application/vnd.google-apps.folder"

// Client is a Drive-backed transfer.Destination. Its underlying HTTP
// client's connection pool serves concurrent independent sessions.
type Client struct {
	svc       *drive.Service
	hc        *http.Client
	uploadURL string
}

// NewClient builds a destination from an already-authorized HTTP client.
func NewClient(ctx context.Context, hc *http.Client) (*Client, error) {
	svc, err := drive.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{svc: svc, hc: hc, uploadURL: defaultUploadURL}, nil
}

// NewClientFromFiles builds a destination from an OAuth client secret
// file and a previously stored token file. Token acquisition itself is
// outside this package; a missing or invalid token is a setup error.
func NewClientFromFiles(ctx context.Context, credentialsPath, tokenPath string) (*Client, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read Drive credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(secret, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Drive credentials: %w", err)
	}
	raw, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read Drive token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("failed to parse Drive token: %w", err)
	}
	return NewClient(ctx, conf.Client(ctx, tok))
}

// Compile-time check that Client implements the destination contract
var _ transfer.Destination = (*Client)(nil)

// EnsureFolder returns the ID of the named folder, creating it when it
// does not exist yet.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false",
		strings.ReplaceAll(name, "'", `\'`), folderMimeType)
	list, err := c.svc.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up folder: %w", mapError(err))
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := c.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", mapError(err))
	}
	return folder.Id, nil
}

// CreateSession opens a resumable upload session for the described
// object and returns its handle.
func (c *Client) CreateSession(ctx context.Context, info transfer.ObjectInfo) (transfer.Session, error) {
	meta := map[string]any{"name": info.Name}
	if info.Folder != "" {
		meta["parents"] = []string{info.Folder}
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"?uploadType=resumable", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", info.MimeType)
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", info.Size))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload session: %w", err)
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("failed to create upload session: %w", mapError(err))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("destination returned no session URL")
	}
	return &session{client: c, url: location, total: info.Size}, nil
}

// mapError converts googleapi errors into the pipeline's remote error
// type so the retry governor can classify them.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &transfer.RemoteError{Code: gerr.Code, Message: gerr.Message}
	}
	return err
}

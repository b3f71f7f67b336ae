package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"teleferry/internal/transfer"
)

// session is one resumable upload against Drive. The confirmed offset
// comes exclusively from the destination's 308 Range headers; this side
// never assumes full-chunk acceptance.
type session struct {
	client *Client
	url    string
	total  int64
	fileID string // set once the destination reports completion
}

// Push uploads chunk starting at offset. Returns the absolute offset
// Drive has confirmed durable receipt of.
func (s *session) Push(ctx context.Context, offset int64, chunk []byte) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, bytes.NewReader(chunk))
	if err != nil {
		return offset, fmt.Errorf("failed to build chunk request: %w", err)
	}
	if len(chunk) == 0 && s.total == 0 {
		req.Header.Set("Content-Range", "bytes */0")
	} else {
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(len(chunk))-1, s.total))
	}

	resp, err := s.client.hc.Do(req)
	if err != nil {
		return offset, fmt.Errorf("failed to push chunk at %d: %w", offset, err)
	}
	defer resp.Body.Close()
	return s.handleUploadResponse(resp, offset)
}

// Offset re-queries the confirmed byte offset of this session.
func (s *session) Offset(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build offset query: %w", err)
	}
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", s.total))

	resp, err := s.client.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to query session offset: %w", err)
	}
	defer resp.Body.Close()
	return s.handleUploadResponse(resp, 0)
}

// handleUploadResponse interprets the resumable-protocol status codes
// shared by Push and Offset: 308 carries the confirmed range, 200/201
// means the upload is complete and carries the file resource.
func (s *session) handleUploadResponse(resp *http.Response, fallback int64) (int64, error) {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var file struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&file); err == nil && file.ID != "" {
			s.fileID = file.ID
		}
		return s.total, nil
	case 308: // Resume Incomplete: not in net/http's table
		confirmed, err := parseRangeHeader(resp.Header.Get("Range"))
		if err != nil {
			return fallback, err
		}
		return confirmed, nil
	default:
		if err := googleapi.CheckResponse(resp); err != nil {
			return fallback, mapError(err)
		}
		return fallback, &transfer.RemoteError{Code: resp.StatusCode}
	}
}

// parseRangeHeader extracts the confirmed byte count from a 308 Range
// header of the form "bytes=0-N". A missing header means nothing has
// been accepted yet.
func parseRangeHeader(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	idx := strings.LastIndex(value, "-")
	if idx < 0 {
		return 0, fmt.Errorf("malformed Range header %q", value)
	}
	end, err := strconv.ParseInt(value[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed Range header %q: %w", value, err)
	}
	return end + 1, nil
}

// Finalize makes the uploaded file link-shareable and returns its
// handle with the retrieval link.
func (s *session) Finalize(ctx context.Context) (*transfer.RemoteObject, error) {
	if s.fileID == "" {
		return nil, fmt.Errorf("upload session not complete, no file to finalize")
	}

	_, err := s.client.svc.Permissions.Create(s.fileID, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to set file permission: %w", mapError(err))
	}

	file, err := s.client.svc.Files.Get(s.fileID).Fields("id, name, webViewLink").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file link: %w", mapError(err))
	}
	return &transfer.RemoteObject{ID: file.Id, Name: file.Name, Link: file.WebViewLink}, nil
}

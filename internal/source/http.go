package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// HTTPSource streams the body of an HTTP GET. The total length is taken
// from Content-Length once the request is made; until then it is
// whatever the caller declared.
type HTTPSource struct {
	url    string
	name   string
	size   int64
	client *http.Client
}

// NewHTTPSource creates a source for rawURL. name overrides the name
// derived from the URL path; pass "" to keep the derived one.
func NewHTTPSource(rawURL, name string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	if name == "" {
		name = path.Base(u.Path)
		if name == "." || name == "/" {
			name = "download"
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: rawURL, name: name, size: SizeUnknown, client: client}, nil
}

func (s *HTTPSource) Name() string {
	return s.name
}

func (s *HTTPSource) Size() int64 {
	return s.size
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build source request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("source fetch returned HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength >= 0 {
		s.size = resp.ContentLength
	}
	return resp.Body, nil
}

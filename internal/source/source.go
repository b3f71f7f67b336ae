// Package source provides inbound byte-stream producers for transfers:
// local files, plain HTTP URLs and Telegram Bot API files.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SizeUnknown marks a source whose total length is not discoverable
// before reading it to exhaustion.
const SizeUnknown int64 = -1

// Source is an inbound byte stream with a declared name and an optional
// known length. Open returns a reader that signals end-of-data with
// io.EOF; the stream must be read sequentially to exhaustion.
type Source interface {
	Name() string
	Size() int64 // SizeUnknown when not known up front
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource streams a local file.
type FileSource struct {
	path string
	size int64
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path is a directory: %s", path)
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

func (s *FileSource) Name() string {
	return filepath.Base(s.path)
}

func (s *FileSource) Size() int64 {
	return s.size
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	return f, nil
}

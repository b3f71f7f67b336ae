// Package staging provides bounded-lifetime on-disk scratch space for
// transfers: the full object is staged between the download and upload
// phases so peak memory stays independent of object size.
package staging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"teleferry/internal/transfer"
)

// Store allocates uniquely named staged files under one directory.
// Names derive from a random token, never from declared file names, so
// concurrent transfers cannot collide and attacker-controlled names
// cannot traverse paths.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir; an empty dir means the system
// temp directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Acquire allocates a fresh staged file, usable for sequential writing
// and random reading. The caller must Release it on every exit path.
func (s *Store) Acquire() (transfer.StagedFile, error) {
	path := filepath.Join(s.dir, "teleferry-"+uuid.NewString())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	return &StagedFile{file: f, path: path}, nil
}

// Compile-time check that Store satisfies the pipeline's staging contract
var _ transfer.StagingStore = (*Store)(nil)

// StagedFile is one transfer's scratch file. Writes are sequential
// (download phase), reads random-access (upload phase). Release removes
// the backing file and is safe to call more than once.
type StagedFile struct {
	file    *os.File
	path    string
	written int64
	release sync.Once
}

// Write appends to the backing file. Errors carry the file's path
// context already; the drain layer adds the pipeline message.
func (f *StagedFile) Write(p []byte) (int, error) {
	n, err := f.file.Write(p)
	f.written += int64(n)
	return n, err
}

func (f *StagedFile) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

// Path returns the backing file's location.
func (f *StagedFile) Path() string {
	return f.path
}

// Size returns the byte count written so far.
func (f *StagedFile) Size() int64 {
	return f.written
}

// Release closes and removes the backing file. Idempotent.
func (f *StagedFile) Release() {
	f.release.Do(func() {
		f.file.Close()
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove staged file %s: %v", f.path, err)
		}
	})
}

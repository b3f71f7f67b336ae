package transfer

import (
	"context"
	"io"
)

// ObjectInfo describes the object an upload session will receive.
type ObjectInfo struct {
	Name     string
	MimeType string
	Size     int64
	Folder   string // destination container identifier
}

// RemoteObject identifies a finished object at the destination.
type RemoteObject struct {
	ID   string
	Name string
	Link string // retrieval link, may be empty
}

// Session is one resumable upload against the destination. The resume
// cursor the destination reports is the single source of truth for how
// many bytes have been durably accepted.
type Session interface {
	// Push uploads chunk starting at offset and returns the absolute
	// byte offset the destination has confirmed. The destination may
	// confirm fewer bytes than were sent.
	Push(ctx context.Context, offset int64, chunk []byte) (confirmed int64, err error)

	// Offset re-queries the confirmed byte offset, used to resolve
	// ambiguous outcomes (a lost acknowledgement) before resending.
	Offset(ctx context.Context) (int64, error)

	// Finalize completes the session and returns the remote object.
	Finalize(ctx context.Context) (*RemoteObject, error)
}

// Destination is a resumable chunked-upload target. Its connection pool
// must support concurrent independent sessions.
type Destination interface {
	CreateSession(ctx context.Context, info ObjectInfo) (Session, error)
}

// StagedFile is the scratch object the pipeline writes during download
// and reads back in chunks during upload.
type StagedFile interface {
	io.Writer
	io.ReaderAt
	Path() string
	Size() int64
	Release()
}

// StagingStore allocates bounded-lifetime staged files.
type StagingStore interface {
	Acquire() (StagedFile, error)
}

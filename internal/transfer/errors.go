package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrCancelled reports cooperative cancellation of a transfer. It always
// wins over in-flight retries.
var ErrCancelled = errors.New("transfer cancelled")

// Stage identifies the pipeline phase an error originated from.
type Stage string

const (
	StageStaging  Stage = "staging"
	StageDownload Stage = "download"
	StageUpload   Stage = "upload"
	StageFinalize Stage = "finalize"
)

// StagingError is a fatal failure acquiring or writing scratch space
// (disk full, permissions). It is never retried; the transfer aborts
// before any upload work starts.
type StagingError struct {
	Err error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("staging: %v", e.Err)
}

func (e *StagingError) Unwrap() error {
	return e.Err
}

// TransferError is a stage-tagged pipeline failure. For the upload stage
// Cursor carries the byte offset the destination had confirmed when the
// transfer gave up, for diagnostics only: sessions are not persisted
// across process restarts.
type TransferError struct {
	Stage     Stage
	Cursor    int64
	Transient bool
	Err       error
}

func (e *TransferError) Error() string {
	if e.Stage == StageUpload {
		return fmt.Sprintf("transfer failed at %s (cursor %d): %v", e.Stage, e.Cursor, e.Err)
	}
	return fmt.Sprintf("transfer failed at %s: %v", e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// RemoteError is a destination-side protocol failure carrying the HTTP
// status code the destination answered with.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("destination returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("destination returned HTTP %d: %s", e.Code, e.Message)
}

// Transient reports whether the failure is worth retrying: server
// overload, rate limiting and 5xx-class errors are; bad requests,
// authorization failures and quota rejections are not.
func (e *RemoteError) Transient() bool {
	switch {
	case e.Code == 408, e.Code == 429:
		return true
	case e.Code >= 500:
		return true
	default:
		return false
	}
}

type transienter interface {
	Transient() bool
}

// IsTransient classifies err for the retry governor. Cancellation is
// never transient; a per-chunk deadline or network timeout is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t transienter
	if errors.As(err, &t) {
		return t.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

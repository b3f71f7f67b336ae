package transfer

import (
	"context"
	"fmt"
	"io"
	"time"
)

// noProgressError marks a push the destination answered without error
// but also without confirming any new bytes. Indistinguishable from a
// lost acknowledgement, so it is retried like one.
type noProgressError struct{}

func (noProgressError) Error() string   { return "destination confirmed no new bytes" }
func (noProgressError) Transient() bool { return true }

var errNoProgress = noProgressError{}

// Uploader streams a staged object to a resumable upload session in
// fixed-size chunks, tracking the resume cursor the destination
// confirms. One uploader run owns one session; the cursor is only ever
// mutated by that run.
type Uploader struct {
	ChunkSize    int64
	ChunkTimeout time.Duration // per chunk push, not per transfer
	Governor     *Governor
}

// Upload pushes total bytes of staged content through sess and returns
// the final resume cursor. The cursor is monotonically non-decreasing
// and only advances to offsets the destination confirmed; on failure it
// is reported inside the returned TransferError.
func (u *Uploader) Upload(ctx context.Context, staged io.ReaderAt, total int64, sess Session, report func(ProgressEvent)) (int64, error) {
	var cursor int64
	buf := make([]byte, u.ChunkSize)

	// Ambiguous outcomes (a lost acknowledgement) are resolved by
	// re-querying the confirmed offset before any resend, so a chunk the
	// destination already accepted is skipped instead of appended twice.
	resync := func(ctx context.Context) error {
		confirmed, err := sess.Offset(ctx)
		if err != nil {
			return err
		}
		return u.advance(&cursor, confirmed, total)
	}

	if total == 0 {
		// A zero-length object still needs one empty push so the
		// destination can complete the session.
		err := u.Governor.Execute(ctx, func(ctx context.Context) error {
			pctx, cancel := u.chunkContext(ctx)
			defer cancel()
			confirmed, err := sess.Push(pctx, 0, nil)
			if err != nil {
				return err
			}
			return u.advance(&cursor, confirmed, total)
		}, resync)
		if err != nil {
			return cursor, u.uploadError(cursor, err)
		}
		if report != nil {
			report(ProgressEvent{Phase: PhaseUploading, Bytes: 0, Total: 0})
		}
		return cursor, nil
	}

	for cursor < total {
		chunkEnd := cursor + u.ChunkSize
		if chunkEnd > total {
			chunkEnd = total
		}

		err := u.Governor.Execute(ctx, func(ctx context.Context) error {
			start := cursor
			if start >= chunkEnd {
				// Resync showed the destination already holds this chunk.
				return nil
			}
			n, rerr := staged.ReadAt(buf[:chunkEnd-start], start)
			if int64(n) != chunkEnd-start {
				return fmt.Errorf("failed to read staged chunk at %d: %w", start, rerr)
			}
			pctx, cancel := u.chunkContext(ctx)
			defer cancel()
			confirmed, perr := sess.Push(pctx, start, buf[:n])
			if perr != nil {
				return perr
			}
			if confirmed <= start {
				return errNoProgress
			}
			// Partial confirmation is fine: the cursor reflects only what
			// was confirmed and the next chunk starts there.
			return u.advance(&cursor, confirmed, total)
		}, resync)
		if err != nil {
			return cursor, u.uploadError(cursor, err)
		}
		if report != nil {
			report(ProgressEvent{Phase: PhaseUploading, Bytes: cursor, Total: total})
		}
	}

	return cursor, nil
}

// advance moves the cursor forward to confirmed. It never moves
// backwards and never past total.
func (u *Uploader) advance(cursor *int64, confirmed, total int64) error {
	if confirmed > total {
		return fmt.Errorf("destination confirmed %d bytes beyond total %d", confirmed, total)
	}
	if confirmed > *cursor {
		*cursor = confirmed
	}
	return nil
}

func (u *Uploader) chunkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.ChunkTimeout > 0 {
		return context.WithTimeout(ctx, u.ChunkTimeout)
	}
	return context.WithCancel(ctx)
}

func (u *Uploader) uploadError(cursor int64, err error) error {
	return &TransferError{
		Stage:     StageUpload,
		Cursor:    cursor,
		Transient: IsTransient(err),
		Err:       err,
	}
}

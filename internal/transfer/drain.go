package transfer

import (
	"context"
	"fmt"
	"io"
)

// Drainer copies an inbound stream into staging with a single bounded
// buffer, so peak memory stays independent of object size.
type Drainer struct {
	BufferSize        int
	ProgressThreshold int64 // bytes between progress events, byte-count cadence
}

// Drain reads src to exhaustion, writing sequentially to dst. total is
// the declared size, SizeUnknown when the producer did not declare one;
// it is only used to tag progress events. Returns the byte count written.
func (d *Drainer) Drain(ctx context.Context, src io.Reader, dst io.Writer, total int64, report func(ProgressEvent)) (int64, error) {
	buf := make([]byte, d.BufferSize)
	var written int64
	var sinceReport int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			sinceReport += int64(wn)
			if werr != nil {
				return written, fmt.Errorf("failed to write staged bytes: %w", werr)
			}
			if report != nil && sinceReport >= d.ProgressThreshold {
				report(ProgressEvent{Phase: PhaseDownloading, Bytes: written, Total: total})
				sinceReport = 0
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("failed to read inbound stream: %w", err)
		}
	}

	if report != nil {
		report(ProgressEvent{Phase: PhaseDownloading, Bytes: written, Total: total})
	}
	return written, nil
}

package transfer_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleferry/internal/transfer"
)

// boundedWriter records the largest single write it ever saw.
type boundedWriter struct {
	buf      bytes.Buffer
	maxWrite int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	if len(p) > w.maxWrite {
		w.maxWrite = len(p)
	}
	return w.buf.Write(p)
}

func TestDrainCopiesAllBytes(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "empty", size: 0},
		{name: "below one buffer", size: 100},
		{name: "exactly one buffer", size: 1024},
		{name: "many buffers plus remainder", size: 3*1024 + 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.size)
			_, err := rand.Read(payload)
			require.NoError(t, err)

			d := &transfer.Drainer{BufferSize: 1024, ProgressThreshold: 512}
			dst := &boundedWriter{}

			total, err := d.Drain(context.Background(), bytes.NewReader(payload), dst, int64(tt.size), nil)

			require.NoError(t, err)
			assert.Equal(t, int64(tt.size), total)
			assert.Equal(t, string(payload), dst.buf.String())
			assert.LessOrEqual(t, dst.maxWrite, 1024, "no write may exceed the bounded buffer")
		})
	}
}

func TestDrainProgressCadenceByByteCount(t *testing.T) {
	payload := make([]byte, 1000)
	d := &transfer.Drainer{BufferSize: 64, ProgressThreshold: 256}

	var events []transfer.ProgressEvent
	_, err := d.Drain(context.Background(), bytes.NewReader(payload), &bytes.Buffer{}, 1000, func(ev transfer.ProgressEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	// 64-byte reads cross the 256-byte threshold every 4 blocks: events at
	// 256, 512, 768, 1000(final). Cadence is deterministic, no wall clock.
	require.Len(t, events, 4)
	var last int64
	for _, ev := range events {
		assert.Equal(t, transfer.PhaseDownloading, ev.Phase)
		assert.Equal(t, int64(1000), ev.Total)
		assert.GreaterOrEqual(t, ev.Bytes, last, "progress must be monotonic")
		last = ev.Bytes
	}
	assert.Equal(t, int64(1000), events[len(events)-1].Bytes, "final event reports the full byte count")
}

func TestDrainFinalEventForEmptySource(t *testing.T) {
	d := &transfer.Drainer{BufferSize: 64, ProgressThreshold: 256}

	var events []transfer.ProgressEvent
	total, err := d.Drain(context.Background(), bytes.NewReader(nil), &bytes.Buffer{}, 0, func(ev transfer.ProgressEvent) {
		events = append(events, ev)
	})

	require.NoError(t, err)
	assert.Zero(t, total)
	require.Len(t, events, 1)
	assert.Zero(t, events[0].Bytes)
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDrainReadErrorPropagates(t *testing.T) {
	readErr := errors.New("stream reset")
	src := &failingReader{data: make([]byte, 200), err: readErr}
	d := &transfer.Drainer{BufferSize: 64, ProgressThreshold: 1 << 20}
	dst := &bytes.Buffer{}

	total, err := d.Drain(context.Background(), src, dst, transfer.SizeUnknown, nil)

	require.ErrorIs(t, err, readErr)
	assert.Equal(t, int64(200), total, "partially staged bytes are reported for cleanup")
	assert.Equal(t, 200, dst.Len())
}

type failingWriter struct {
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func TestDrainWriteErrorPropagates(t *testing.T) {
	writeErr := errors.New("disk full")
	d := &transfer.Drainer{BufferSize: 64, ProgressThreshold: 1 << 20}

	_, err := d.Drain(context.Background(), bytes.NewReader(make([]byte, 100)), &failingWriter{err: writeErr}, 100, nil)

	require.ErrorIs(t, err, writeErr)
}

func TestDrainCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &transfer.Drainer{BufferSize: 64, ProgressThreshold: 256}
	_, err := d.Drain(ctx, bytes.NewReader(make([]byte, 1000)), io.Discard, 1000, nil)

	require.ErrorIs(t, err, context.Canceled)
}

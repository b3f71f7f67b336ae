package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"teleferry/internal/config"
	"teleferry/internal/source"
	"teleferry/pkg/utils"
)

// State is the orchestrator's position in the transfer state machine.
type State int

const (
	StateIdle State = iota
	StateStaging
	StateDownloading
	StateUploading
	StateFinalizing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStaging:
		return "staging"
	case StateDownloading:
		return "downloading"
	case StateUploading:
		return "uploading"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request describes one transfer. It is immutable for the lifetime of
// the run.
type Request struct {
	Source source.Source
	Name   string // declared name; overrides Source.Name when set
	Folder string // destination container identifier

	// Events optionally receives progress events from both phases,
	// tagged by phase, in emission order. The caller owns the channel.
	Events chan<- ProgressEvent
}

// Outcome is the single terminal result of a transfer: a remote object
// handle or one descriptive error, never both.
type Outcome struct {
	Object *RemoteObject
	State  State
	Err    error
}

// Orchestrator sequences staging, drain, chunked upload and
// finalization for one request at a time. It owns the staged file's
// lifetime and guarantees its release on every exit path. Independent
// orchestrator runs may proceed concurrently; each owns its own staged
// file and upload session.
type Orchestrator struct {
	store    StagingStore
	dest     Destination
	drainer  *Drainer
	uploader *Uploader
	governor *Governor
}

// NewOrchestrator wires the pipeline from explicit configuration. No
// hidden globals: concurrent transfers never contend on shared state.
func NewOrchestrator(cfg config.TransferConfig, store StagingStore, dest Destination) *Orchestrator {
	governor := NewGovernor(cfg.MaxAttempts, cfg.BaseBackoff, cfg.MaxBackoff)
	return &Orchestrator{
		store: store,
		dest:  dest,
		drainer: &Drainer{
			BufferSize:        cfg.DrainBufferSize,
			ProgressThreshold: cfg.ProgressThreshold,
		},
		uploader: &Uploader{
			ChunkSize:    cfg.ChunkSize,
			ChunkTimeout: cfg.ChunkTimeout,
			Governor:     governor,
		},
		governor: governor,
	}
}

// Run executes the transfer and returns exactly one terminal outcome,
// regardless of how many internal retries occurred.
func (o *Orchestrator) Run(ctx context.Context, req Request) Outcome {
	name := req.Name
	if name == "" {
		name = req.Source.Name()
	}
	start := time.Now()

	emit := func(ev ProgressEvent) {
		if req.Events == nil {
			return
		}
		select {
		case req.Events <- ev:
		case <-ctx.Done():
		}
	}

	// Staging: the staged file must not outlive this scope, success or
	// failure.
	staged, err := o.store.Acquire()
	if err != nil {
		return o.fail(ctx, StateStaging, &StagingError{Err: err})
	}
	defer staged.Release()

	// Downloading
	stream, err := req.Source.Open(ctx)
	if err != nil {
		return o.fail(ctx, StateDownloading, &TransferError{Stage: StageDownload, Err: err})
	}
	total, err := o.drainer.Drain(ctx, stream, staged, req.Source.Size(), emit)
	stream.Close()
	if err != nil {
		return o.fail(ctx, StateDownloading, &TransferError{Stage: StageDownload, Err: err})
	}
	log.Printf("Staged %s: %s", name, utils.FormatFileSize(total))

	// Uploading
	info := ObjectInfo{
		Name:     name,
		MimeType: utils.DetectMimeType(name, staged.Path()),
		Size:     total,
		Folder:   req.Folder,
	}
	sess, err := o.dest.CreateSession(ctx, info)
	if err != nil {
		return o.fail(ctx, StateUploading, &TransferError{
			Stage:     StageUpload,
			Transient: IsTransient(err),
			Err:       fmt.Errorf("failed to create upload session: %w", err),
		})
	}
	if _, err := o.uploader.Upload(ctx, staged, total, sess, emit); err != nil {
		return o.fail(ctx, StateUploading, err)
	}

	// Finalizing: destination-side post-processing goes through the
	// retry governor but not the chunk protocol.
	emit(ProgressEvent{Phase: PhaseFinalizing, Bytes: total, Total: total})
	var obj *RemoteObject
	err = o.governor.Execute(ctx, func(ctx context.Context) error {
		var ferr error
		obj, ferr = sess.Finalize(ctx)
		return ferr
	}, nil)
	if err != nil {
		return o.fail(ctx, StateFinalizing, &TransferError{
			Stage:     StageFinalize,
			Cursor:    total,
			Transient: IsTransient(err),
			Err:       err,
		})
	}

	log.Printf("Transfer complete: %s (%s) in %s", name, utils.FormatFileSize(total), time.Since(start).Round(time.Millisecond))
	return Outcome{Object: obj, State: StateCompleted}
}

// fail converts an internal error into the public outcome. Cancellation
// always wins over whatever stage error it surfaced as.
func (o *Orchestrator) fail(ctx context.Context, from State, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		log.Printf("Transfer cancelled during %s", from)
		return Outcome{State: StateFailed, Err: fmt.Errorf("%w during %s", ErrCancelled, from)}
	}
	log.Printf("Transfer failed during %s: %v", from, err)
	return Outcome{State: StateFailed, Err: err}
}

package transfer

// SizeUnknown marks a total size that is not known up front.
const SizeUnknown int64 = -1

// Phase identifies which leg of the pipeline a progress event came from.
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseUploading   Phase = "uploading"
	PhaseFinalizing  Phase = "finalizing"
)

// ProgressEvent is an immutable snapshot of transfer progress. Events
// carry no identity beyond their emission order.
type ProgressEvent struct {
	Phase Phase
	Bytes int64 // bytes completed within the phase
	Total int64 // SizeUnknown when the total is not known yet
}

package fetch

import (
	"context"
	"io"

	"capsulectl/pkg/api"
)

// Status is the normalized view of a computation's remote state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// ComputationAPI is the slice of the platform client the fetcher needs.
// *codeocean.Client satisfies it.
type ComputationAPI interface {
	GetComputation(ctx context.Context, computationID string) (*api.Computation, error)
	ListResultFolder(ctx context.Context, computationID, folderPath string) (*api.Folder, error)
	GetResultDownloadURL(ctx context.Context, computationID, filePath string) (string, error)
	DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, error)
}

// ResolveStatus queries a computation once and returns its normalized
// status and whether results are available. Query failures and
// unrecognized states map to StatusUnknown rather than an error: an
// unknown job is "not ready" and gets skipped, deferring to a later run.
func ResolveStatus(ctx context.Context, client ComputationAPI, computationID string) (Status, bool) {
	comp, err := client.GetComputation(ctx, computationID)
	if err != nil {
		return StatusUnknown, false
	}
	return mapState(comp.State), comp.HasResults
}

func mapState(state string) Status {
	switch state {
	case api.StateInitializing, api.StatePending:
		return StatusPending
	case api.StateRunning, api.StateFinalizing:
		return StatusRunning
	case api.StateCompleted:
		return StatusCompleted
	case api.StateFailed, api.StateStopped:
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Package api contains shared JSON request/response structs for the
// Code Ocean REST API. This package is shared between the HTTP client
// and the CLI commands.
package api

// Computation states reported by the platform.
const (
	StateInitializing = "initializing"
	StatePending      = "pending"
	StateRunning      = "running"
	StateFinalizing   = "finalizing"
	StateCompleted    = "completed"
	StateFailed       = "failed"
	StateStopped      = "stopped"
)

// NamedRunParam is a single named parameter passed to a capsule run.
// Values are always sent as strings; the capsule parses them.
type NamedRunParam struct {
	ParamName string `json:"param_name"`
	Value     string `json:"value"`
}

// RunCapsuleRequest is the request body for starting a computation.
type RunCapsuleRequest struct {
	CapsuleID       string          `json:"capsule_id"`
	NamedParameters []NamedRunParam `json:"named_parameters,omitempty"`
}

// Capsule describes a reusable unit of computation on the platform.
type Capsule struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Computation represents one run of a capsule.
type Computation struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	State      string `json:"state"`
	Created    int64  `json:"created,omitempty"`
	RunTime    int64  `json:"run_time,omitempty"`
	HasResults bool   `json:"has_results,omitempty"`
}

// FolderItem is one entry in a computation's result listing. A zero size
// marks a folder that must be listed again with its path.
type FolderItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size,omitempty"`
	Type string `json:"type,omitempty"`
}

// Folder is the result of listing one level of a computation's output tree.
type Folder struct {
	Items []FolderItem `json:"items"`
}

// FileURL is the response body for a result-file download URL request.
type FileURL struct {
	URL string `json:"url"`
}

// ErrorResponse is the platform's standard error body.
type ErrorResponse struct {
	Message string `json:"message"`
}

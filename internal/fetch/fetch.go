// Package fetch resolves computation statuses and downloads result files
// for completed computations, mirroring the remote folder structure under
// a local download root.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"capsulectl/internal/jobs"
	"capsulectl/internal/logger"
	"capsulectl/pkg/api"
)

// Outcome classifies what happened to one result file during a pass.
type Outcome string

const (
	OutcomeDownloaded      Outcome = "downloaded"
	OutcomeSkippedExists   Outcome = "skipped-exists"
	OutcomeSkippedTooLarge Outcome = "skipped-too-large"
	OutcomeFailed          Outcome = "failed"
)

// FileResult records the outcome for a single result file.
type FileResult struct {
	Path      string
	SizeBytes int64
	Outcome   Outcome
	Err       error
}

// JobReport summarizes one job's download pass.
type JobReport struct {
	Key           string
	ComputationID string
	Status        Status
	Skipped       bool
	SkipReason    string
	Files         []FileResult
}

// Downloaded reports how many files were written in this pass.
func (r *JobReport) Downloaded() int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == OutcomeDownloaded {
			n++
		}
	}
	return n
}

// Count reports how many files ended with the given outcome.
func (r *JobReport) Count(o Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

// Fetcher downloads result files for completed computations. Files land
// under Root/<computation-id>/<remote relative path>.
type Fetcher struct {
	client   ComputationAPI
	root     string
	maxBytes int64
	force    bool
	logger   *slog.Logger
}

// New creates a Fetcher. maxSizeMB of 0 disables the size limit. When
// force is set, existing local files are downloaded again.
func New(client ComputationAPI, root string, maxSizeMB float64, force bool, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		root:     root,
		maxBytes: int64(maxSizeMB * 1024 * 1024),
		force:    force,
		logger:   logger,
	}
}

// FetchAll processes each record in order. A job that fails never aborts
// the remaining jobs.
func (f *Fetcher) FetchAll(ctx context.Context, records []jobs.Record) []*JobReport {
	reports := make([]*JobReport, 0, len(records))
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		jobCtx := logger.WithJobKey(ctx, rec.Key)
		reports = append(reports, f.FetchJob(jobCtx, rec.Key, rec.ComputationID))
	}
	return reports
}

// FetchJob resolves one computation's status and, when it is completed
// with results, downloads its files. Any other status is reported as a
// skip with the reason.
func (f *Fetcher) FetchJob(ctx context.Context, key, computationID string) *JobReport {
	report := &JobReport{Key: key, ComputationID: computationID}

	status, hasResults := ResolveStatus(ctx, f.client, computationID)
	report.Status = status

	switch {
	case status == StatusPending || status == StatusRunning:
		return skip(report, "still running")
	case status == StatusFailed:
		return skip(report, "failed")
	case status == StatusUnknown:
		return skip(report, "unknown status")
	case !hasResults:
		return skip(report, "no results")
	}

	files, err := f.listAll(ctx, computationID, "")
	if err != nil {
		return skip(report, fmt.Sprintf("listing results failed: %v", err))
	}
	if len(files) == 0 {
		return skip(report, "no files in results")
	}

	for _, item := range files {
		report.Files = append(report.Files, f.fetchFile(ctx, computationID, item))
	}

	logger.FromContext(ctx, f.logger).Info("job fetched",
		"computation_id", computationID,
		"downloaded", report.Downloaded(),
		"skipped_exists", report.Count(OutcomeSkippedExists),
		"skipped_too_large", report.Count(OutcomeSkippedTooLarge),
		"failed", report.Count(OutcomeFailed))
	return report
}

func skip(report *JobReport, reason string) *JobReport {
	report.Skipped = true
	report.SkipReason = reason
	return report
}

// fetchFile applies the exists and size filters, then streams the file
// to its mirrored local path. A failure is terminal for the file in this
// run; a later run with force can retry it.
func (f *Fetcher) fetchFile(ctx context.Context, computationID string, item api.FolderItem) FileResult {
	result := FileResult{Path: item.Path, SizeBytes: item.Size}

	rel := strings.TrimPrefix(item.Path, "/")
	dest := filepath.Join(f.root, computationID, filepath.FromSlash(rel))

	if !f.force {
		if _, err := os.Stat(dest); err == nil {
			result.Outcome = OutcomeSkippedExists
			return result
		}
	}

	if f.maxBytes > 0 && item.Size > f.maxBytes {
		f.logger.Info("skipping large file", "path", item.Path, "size_bytes", item.Size, "limit_bytes", f.maxBytes)
		result.Outcome = OutcomeSkippedTooLarge
		return result
	}

	if err := f.download(ctx, computationID, item.Path, dest); err != nil {
		f.logger.Error("download failed", "path", item.Path, "error", err)
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	f.logger.Info("downloaded", "path", rel, "size_bytes", item.Size)
	result.Outcome = OutcomeDownloaded
	return result
}

func (f *Fetcher) download(ctx context.Context, computationID, remotePath, dest string) error {
	url, err := f.client.GetResultDownloadURL(ctx, computationID, remotePath)
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	body, err := f.client.DownloadFile(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// listAll walks the result tree depth first. Items with zero size are
// folders and get listed in turn. Errors below the root are logged and
// the rest of the tree is still walked.
func (f *Fetcher) listAll(ctx context.Context, computationID, folderPath string) ([]api.FolderItem, error) {
	folder, err := f.client.ListResultFolder(ctx, computationID, folderPath)
	if err != nil {
		if folderPath == "" {
			return nil, err
		}
		f.logger.Warn("failed to list result folder", "path", folderPath, "error", err)
		return nil, nil
	}

	var files []api.FolderItem
	for _, item := range folder.Items {
		if item.Size == 0 {
			sub, _ := f.listAll(ctx, computationID, item.Path)
			files = append(files, sub...)
			continue
		}
		files = append(files, item)
	}
	return files, nil
}

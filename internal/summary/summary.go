// Package summary defines the execution-summary contract. The file's layout
// belongs to the collaborator that consumes it; this package only guarantees
// the required content is present.
package summary

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Summary is the persisted record of one completed job.
type Summary struct {
	JobID                          string            `json:"job_id"`
	StatusType                     string            `json:"status_type"`
	Fields                         map[string]string `json:"fields,omitempty"`
	CancellationCapturedID         string            `json:"cancellation_captured_id,omitempty"`
	CancellationImplementationDate string            `json:"cancellation_implementation_date,omitempty"`
	EvidenceIndex                  []string          `json:"evidence_index,omitempty"`
	CompletedAt                    time.Time         `json:"completed_at"`
}

// Writer persists execution summaries. Implementations are external
// collaborators; failures are always non-fatal to the job.
type Writer interface {
	Write(ctx context.Context, s Summary) error
}

// FileWriter is the default collaborator: one JSON file per job.
type FileWriter struct {
	Dir string
}

func (w *FileWriter) Write(_ context.Context, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.Dir, s.JobID+"_summary.json"), data, 0o644)
}

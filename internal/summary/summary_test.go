package summary

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "summaries")
	w := &FileWriter{Dir: dir}

	s := Summary{
		JobID:                  "job-1",
		StatusType:             "active_with_pending_cancellation",
		Fields:                 map[string]string{"circuit_id": "123456789"},
		CancellationCapturedID: "C-99",
		EvidenceIndex:          []string{"portal_loaded", "detail_view"},
		CompletedAt:            time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	require.NoError(t, w.Write(context.Background(), s))

	data, err := os.ReadFile(filepath.Join(dir, "job-1_summary.json"))
	require.NoError(t, err)

	var got Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s, got)
}

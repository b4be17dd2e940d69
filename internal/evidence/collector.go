// Package evidence captures timestamped visual snapshots for audit and
// debugging. Capture is strictly best-effort: a failed snapshot is logged and
// skipped, it never aborts the enclosing job.
package evidence

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
)

// timestampLayout is ISO-8601 with microsecond precision, the artifact
// contract's timestamp format.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Item is one captured snapshot.
type Item struct {
	Name      string
	Timestamp time.Time
	Payload   []byte
	MIME      string
}

// MarshalJSON renders the artifact wire format: ISO-8601 microsecond
// timestamp, base64 payload.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string `json:"name"`
		Timestamp string `json:"timestamp"`
		Payload   string `json:"payload"`
		MIMEType  string `json:"mime_type"`
	}{
		Name:      i.Name,
		Timestamp: i.Timestamp.Format(timestampLayout),
		Payload:   base64.StdEncoding.EncodeToString(i.Payload),
		MIMEType:  i.MIME,
	})
}

// Collector accumulates snapshots for exactly one job, in call order. It is
// not safe for concurrent use; one session serves one job.
type Collector struct {
	log    *zap.Logger
	dir    string
	items  []Item
	sealed bool
}

// New creates a collector. dir, when non-empty, is the job's private evidence
// directory; snapshot files written there are best-effort.
func New(dir string, log *zap.Logger) *Collector {
	return &Collector{log: log.Named("evidence"), dir: dir}
}

// Capture snapshots the page under the given name. Returns nil when capture
// fails or the collector is sealed.
func (c *Collector) Capture(ctx context.Context, page browser.Page, name string) *Item {
	if c.sealed {
		c.log.Warn("capture after job completion ignored", zap.String("name", name))
		return nil
	}

	payload, err := page.Screenshot(ctx)
	if err != nil {
		c.log.Warn("snapshot failed", zap.String("name", name), zap.Error(err))
		return nil
	}

	item := Item{
		Name:      name,
		Timestamp: time.Now(),
		Payload:   payload,
		MIME:      "image/png",
	}
	c.items = append(c.items, item)

	if c.dir != "" {
		filename := filepath.Join(c.dir, fmt.Sprintf("%02d_%s.png", len(c.items), name))
		if err := os.MkdirAll(c.dir, 0o755); err == nil {
			if err := os.WriteFile(filename, payload, 0o644); err != nil {
				c.log.Warn("snapshot file not written", zap.String("file", filename), zap.Error(err))
			}
		}
	}

	c.log.Debug("snapshot captured", zap.String("name", name), zap.Int("bytes", len(payload)))
	return &item
}

// Seal freezes the collector once the job's envelope is assembled.
func (c *Collector) Seal() {
	c.sealed = true
}

// Items returns a copy of the captured items in call order.
func (c *Collector) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Names returns the evidence index: item names in call order.
func (c *Collector) Names() []string {
	out := make([]string, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item.Name)
	}
	return out
}

package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
	"portalprobe/internal/faults"
	"portalprobe/internal/strategy"
)

// Canonical keys for the detail-view fields the status resolver consumes.
const (
	FieldCustomerName   = "customer_name"
	FieldCircuitID      = "circuit_id"
	FieldArea           = "area"
	FieldBandwidth      = "bandwidth"
	FieldActivationDate = "activation_date"
	FieldExpiryDate     = "expiry_date"
)

// canonicalFieldIDs maps known portal control identifiers to canonical keys.
var canonicalFieldIDs = map[string]string{
	"txtCustomerName":   FieldCustomerName,
	"txtCircuitFSAN":    FieldCircuitID,
	"txtAreaCode":       FieldArea,
	"selBandwidth":      FieldBandwidth,
	"txtActivationDate": FieldActivationDate,
	"txtExpiryDate":     FieldExpiryDate,
}

// allowedFieldIDs is the fixed allow-list of control identifiers worth
// extracting. Allow-listed identifiers without a canonical mapping pass
// through under their raw identifier.
var allowedFieldIDs = map[string]struct{}{
	"txtCustomerName":   {},
	"txtCircuitFSAN":    {},
	"txtAreaCode":       {},
	"selBandwidth":      {},
	"txtActivationDate": {},
	"txtExpiryDate":     {},
	"txtAccountNumber":  {},
	"txtContactPhone":   {},
	"txtContactEmail":   {},
	"selServiceTier":    {},
}

// Selectors locates the extraction surfaces inside the portal DOM.
type Selectors struct {
	// DetailControls enumerates the detail view's form controls.
	DetailControls string
	// HistoryControlID is the id of the control opening the history view.
	HistoryControlID string
	// HistoryControlText is the visible label of that control.
	HistoryControlText string
	// HistoryRows matches the history table's data rows.
	HistoryRows string
}

// DefaultSelectors matches the portal release this engine currently targets.
func DefaultSelectors() Selectors {
	return Selectors{
		DetailControls:     "input, select, textarea",
		HistoryControlID:   "btnServiceHistory",
		HistoryControlText: "History",
		HistoryRows:        "#historyGrid tbody tr",
	}
}

// Result is the output of one extraction pass.
type Result struct {
	// Fields maps canonical (or raw allow-listed) field name to its trimmed
	// value.
	Fields map[string]string
	// History holds every well-formed history row, in table order.
	History []HistoryRecord
	// CapturedCancellationIDs are the ids of rows that are both captured and
	// cancellations, in row order.
	CapturedCancellationIDs []string
	// TotalRecords counts well-formed rows only.
	TotalRecords int
}

// CircuitID returns the canonical circuit identifier, if extracted.
func (r *Result) CircuitID() string {
	if r == nil {
		return ""
	}
	return r.Fields[FieldCircuitID]
}

// deepSearchHistoryJS walks every element looking for the history control by
// text and clicks it. Last resort when the control has neither a stable id
// nor a queryable tag.
const deepSearchHistoryJS = `(label) => {
	const all = document.querySelectorAll('*');
	for (const el of all) {
		const text = (el.childElementCount === 0 ? el.textContent : '') || '';
		if (text.trim() === label) {
			el.click();
			return true;
		}
	}
	return false;
}`

// Engine extracts structured records from loaded portal views.
type Engine struct {
	log          *zap.Logger
	sel          Selectors
	historyChain *strategy.Chain
}

// NewEngine creates an extraction engine. The history-control chain is
// configured here, at construction.
func NewEngine(sel Selectors, log *zap.Logger) *Engine {
	log = log.Named("extract")
	historyChain := strategy.NewChain("open history view", log,
		strategy.Technique("control id", func(ctx context.Context, page browser.Page, _ string) error {
			el, err := page.Element(ctx, "#"+sel.HistoryControlID)
			if err != nil {
				return err
			}
			return el.Click(ctx)
		}),
		strategy.Technique("control text", func(ctx context.Context, page browser.Page, _ string) error {
			el, err := page.ElementByText(ctx, "a, button, span", sel.HistoryControlText)
			if err != nil {
				return err
			}
			return el.Click(ctx)
		}),
		strategy.Technique("scripted deep search", func(ctx context.Context, page browser.Page, _ string) error {
			res, err := page.Eval(ctx, deepSearchHistoryJS, sel.HistoryControlText)
			if err != nil {
				return err
			}
			if string(res) != "true" {
				return fmt.Errorf("no element labelled %q", sel.HistoryControlText)
			}
			return nil
		}),
	)
	return &Engine{log: log, sel: sel, historyChain: historyChain}
}

// ExtractDetail reads the loaded detail view's form controls into a Result.
func (e *Engine) ExtractDetail(ctx context.Context, page browser.Page) (*Result, error) {
	controls, err := page.Elements(ctx, e.sel.DetailControls)
	if err != nil {
		return nil, &faults.ExtractionError{View: "detail", Err: err}
	}

	res := &Result{Fields: make(map[string]string)}
	for _, ctl := range controls {
		id, err := ctl.Attribute(ctx, "id")
		if err != nil || id == "" {
			continue
		}
		if _, ok := allowedFieldIDs[id]; !ok {
			continue
		}
		value, err := ctl.Value(ctx)
		if err != nil {
			e.log.Debug("unreadable control skipped", zap.String("id", id), zap.Error(err))
			continue
		}
		key := id
		if canonical, ok := canonicalFieldIDs[id]; ok {
			key = canonical
		}
		res.Fields[key] = strings.TrimSpace(value)
	}

	e.log.Info("detail view extracted", zap.Int("fields", len(res.Fields)))
	return res, nil
}

// ExtractHistory drives into the history view and parses its table into res.
// Only called when the circuit identifier is non-empty. Malformed rows are
// logged and skipped; extraction continues.
func (e *Engine) ExtractHistory(ctx context.Context, page browser.Page, res *Result) error {
	if err := e.historyChain.Apply(ctx, page, ""); err != nil {
		return err
	}
	if err := page.WaitStable(ctx); err != nil {
		e.log.Debug("history view never stabilized, parsing anyway", zap.Error(err))
	}

	rows, err := page.Elements(ctx, e.sel.HistoryRows)
	if err != nil {
		return &faults.ExtractionError{View: "history", Err: err}
	}

	for i, row := range rows {
		cells, err := row.Elements(ctx, "td")
		if err != nil {
			e.log.Warn("unreadable history row skipped", zap.Int("row", i), zap.Error(err))
			continue
		}
		values := make([]string, 0, len(cells))
		for _, cell := range cells {
			text, err := cell.Text(ctx)
			if err != nil {
				text = ""
			}
			values = append(values, text)
		}
		rec, ok := RowFromCells(values, i)
		if !ok {
			e.log.Warn("malformed history row skipped",
				zap.Int("row", i),
				zap.Int("columns", len(values)),
				zap.Int("expected", ExpectedColumns))
			continue
		}
		res.History = append(res.History, rec)
		if rec.IsCancellation && rec.IsCaptured {
			res.CapturedCancellationIDs = append(res.CapturedCancellationIDs, rec.ID)
		}
	}
	res.TotalRecords = len(res.History)

	e.log.Info("history view extracted",
		zap.Int("records", res.TotalRecords),
		zap.Int("captured_cancellations", len(res.CapturedCancellationIDs)))
	return nil
}

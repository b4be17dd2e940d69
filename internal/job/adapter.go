package job

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
	"portalprobe/internal/evidence"
	"portalprobe/internal/extract"
	"portalprobe/internal/faults"
	"portalprobe/internal/retry"
	"portalprobe/internal/search"
	"portalprobe/internal/status"
	"portalprobe/internal/summary"
)

// Options wires the adapter's collaborators. Opener is required; a nil
// Summary writer disables summary persistence.
type Options struct {
	Opener   browser.Opener
	Search   search.Selectors
	Extract  extract.Selectors
	Username string
	Password string
	// Policy bounds the login and search retries. Zero value falls back to
	// retry.DefaultPolicy. The Retryable classifier is fixed at this
	// boundary: any caller-supplied classifier is replaced.
	Policy retry.Policy
	// EvidenceDir is the base evidence directory; each job gets its own
	// subdirectory. Empty disables snapshot files (items are still captured).
	EvidenceDir string
	Summary     summary.Writer
	Log         *zap.Logger
}

// Adapter executes one job per call. It holds no per-job state, so a single
// adapter may serve sequential jobs; parallel jobs run separate engine
// instances.
type Adapter struct {
	opener      browser.Opener
	searchSel   search.Selectors
	extractSel  extract.Selectors
	username    string
	password    string
	policy      retry.Policy
	evidenceDir string
	summary     summary.Writer
	log         *zap.Logger
}

// NewAdapter creates a job adapter.
func NewAdapter(opts Options) *Adapter {
	policy := opts.Policy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	// Authentication rejections are retried bounded alongside transient
	// driver faults; everything else propagates on first occurrence.
	policy.Retryable = func(err error) bool {
		var ae *faults.AuthenticationError
		return errors.As(err, &ae) || faults.IsTransient(err)
	}
	return &Adapter{
		opener:      opts.Opener,
		searchSel:   opts.Search,
		extractSel:  opts.Extract,
		username:    opts.Username,
		password:    opts.Password,
		policy:      policy,
		evidenceDir: opts.EvidenceDir,
		summary:     opts.Summary,
		log:         log.Named("job"),
	}
}

// Execute runs one job end to end and returns its envelope. This is the sole
// boundary that absorbs unexpected faults: a panic anywhere downstream
// becomes a StatusError envelope with a diagnostic trace.
func (a *Adapter) Execute(ctx context.Context, p Params) (env Envelope) {
	log := a.log.With(zap.String("job_id", p.JobID), zap.String("target", p.TargetID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r))
			details := errorDetails("unexpected")
			details["trace"] = string(debug.Stack())
			env = Envelope{
				Status:  StatusError,
				Message: fmt.Sprintf("unexpected fault: %v", r),
				Details: details,
			}
		}
	}()

	// Required parameters are checked before any session exists.
	if p.JobID == "" {
		return a.validationEnvelope("job_id")
	}
	if p.TargetID == "" {
		return a.validationEnvelope("target_identifier")
	}

	evidenceDir := ""
	if a.evidenceDir != "" {
		evidenceDir = filepath.Join(a.evidenceDir, p.JobID)
	}
	collector := evidence.New(evidenceDir, log)
	defer collector.Seal()

	sess, err := a.opener.Open(ctx)
	if err != nil {
		log.Error("session open failed", zap.Error(err))
		return Envelope{
			Status:  StatusError,
			Message: err.Error(),
			Details: errorDetails("initialization"),
		}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("session close reported an error", zap.Error(cerr))
		}
	}()

	page := sess.Page()
	ctrl := search.NewController(a.searchSel, log)
	engine := extract.NewEngine(a.extractSel, log)

	collector.Capture(ctx, page, "portal_loaded")

	if a.username != "" {
		err := retry.Do(ctx, a.policy, log, "login", func(ctx context.Context) error {
			return ctrl.Login(ctx, page, a.username, a.password)
		})
		if err != nil {
			collector.Capture(ctx, page, "login_failed")
			log.Error("login exhausted", zap.Error(err))
			return Envelope{
				Status:   StatusError,
				Message:  err.Error(),
				Details:  errorDetails("authentication"),
				Evidence: collector.Items(),
			}
		}
		collector.Capture(ctx, page, "logged_in")
	}

	outcome, err := retry.DoValue(ctx, a.policy, log, "search", func(ctx context.Context) (search.Outcome, error) {
		return ctrl.Find(ctx, page, p.TargetID)
	})
	if err != nil {
		collector.Capture(ctx, page, "search_failed")
		log.Error("search exhausted", zap.Error(err))
		return Envelope{
			Status:   StatusError,
			Message:  err.Error(),
			Details:  errorDetails("search"),
			Evidence: collector.Items(),
		}
	}
	collector.Capture(ctx, page, "search_results")

	if !outcome.Found {
		st := status.Resolve(nil, nil, outcome.Partition)
		details := a.statusDetails(st, nil)
		return Envelope{
			Status:   StatusFailure,
			Message:  fmt.Sprintf("service record %q not found in any partition", p.TargetID),
			Details:  details,
			Evidence: collector.Items(),
		}
	}

	// From here the job degrades gracefully: each step failure is recorded
	// in the details and the remaining steps still run.
	details := map[string]interface{}{}
	var res *extract.Result

	if err := ctrl.Activate(ctx, page, outcome); err != nil {
		log.Warn("result activation failed, continuing without detail view", zap.Error(err))
		details["activation_error"] = err.Error()
	} else {
		collector.Capture(ctx, page, "detail_view")
		res, err = engine.ExtractDetail(ctx, page)
		if err != nil {
			log.Warn("detail extraction failed", zap.Error(err))
			details["extraction_error"] = err.Error()
			res = nil
		}
		if res.CircuitID() != "" {
			if err := engine.ExtractHistory(ctx, page, res); err != nil {
				log.Warn("history extraction failed", zap.Error(err))
				details["history_error"] = err.Error()
			} else {
				collector.Capture(ctx, page, "history_view")
			}
		}
	}

	var inactiveRow *extract.HistoryRecord
	if outcome.Partition == search.PartitionInactive {
		inactiveRow = outcome.Row
	}
	st := status.Resolve(res, inactiveRow, outcome.Partition)
	if st.StatusType == status.TypeFoundUnclearState {
		log.Warn("record found but state unclear; not coercing",
			zap.String("partition", string(outcome.Partition)))
	}

	for k, v := range a.statusDetails(st, res) {
		details[k] = v
	}

	a.persistSummary(ctx, log, p, st, res, collector)

	return Envelope{
		Status:   StatusSuccess,
		Message:  fmt.Sprintf("service record %q resolved as %s", p.TargetID, st.StatusType),
		Details:  details,
		Evidence: collector.Items(),
	}
}

func (a *Adapter) validationEnvelope(field string) Envelope {
	err := &faults.ValidationError{Field: field}
	a.log.Error("job rejected", zap.Error(err))
	details := errorDetails("validation")
	details["missing"] = field
	return Envelope{
		Status:  StatusError,
		Message: err.Error(),
		Details: details,
	}
}

// errorDetails is the detail block shared by every error envelope. Error
// outcomes report the error location so queue consumers reading
// found/service_location see a consistent pair on every envelope.
func errorDetails(stage string) map[string]interface{} {
	return map[string]interface{}{
		"stage":            stage,
		"found":            false,
		"service_location": string(status.LocationError),
	}
}

// statusDetails flattens a resolved status into envelope details, including
// the legacy duplicate keys older consumers still read.
func (a *Adapter) statusDetails(st status.ServiceStatus, res *extract.Result) map[string]interface{} {
	details := map[string]interface{}{
		"found":               st.Found,
		"is_active":           st.IsActive,
		"service_location":    string(st.ServiceLocation),
		"pending_cease_order": st.PendingCeaseOrder,
		"status_type":         string(st.StatusType),

		// Legacy duplicates kept for queue consumers predating the canonical
		// snake_case keys.
		"serviceFound": st.Found,
		"isActive":     st.IsActive,
	}
	if st.CancellationCapturedID != "" {
		details["cancellation_captured_id"] = st.CancellationCapturedID
	}
	if st.CancellationImplementationDate != "" {
		details["cancellation_implementation_date"] = st.CancellationImplementationDate
	}
	if res != nil {
		details["total_records"] = res.TotalRecords
		for k, v := range res.Fields {
			details["field_"+k] = v
		}
	}
	return details
}

// persistSummary hands the execution summary to the external collaborator.
// Best-effort: failures are logged, never fatal.
func (a *Adapter) persistSummary(ctx context.Context, log *zap.Logger, p Params, st status.ServiceStatus, res *extract.Result, collector *evidence.Collector) {
	if a.summary == nil {
		return
	}
	s := summary.Summary{
		JobID:                          p.JobID,
		StatusType:                     string(st.StatusType),
		CancellationCapturedID:         st.CancellationCapturedID,
		CancellationImplementationDate: st.CancellationImplementationDate,
		EvidenceIndex:                  collector.Names(),
		CompletedAt:                    nowFunc(),
	}
	if res != nil {
		s.Fields = res.Fields
	}
	if err := a.summary.Write(ctx, s); err != nil {
		log.Warn("execution summary not persisted", zap.Error(err))
	}
}

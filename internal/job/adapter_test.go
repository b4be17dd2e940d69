package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"portalprobe/internal/browser/browsertest"
	"portalprobe/internal/extract"
	"portalprobe/internal/retry"
	"portalprobe/internal/search"
	"portalprobe/internal/summary"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const target = "123456789"

// fastPolicy keeps retry waits negligible in tests.
func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, Wait: retry.Fixed(time.Millisecond)}
}

type recordingSummary struct {
	written []summary.Summary
}

func (r *recordingSummary) Write(_ context.Context, s summary.Summary) error {
	r.written = append(r.written, s)
	return nil
}

func detailControl(id, value string) *browsertest.FakeElement {
	return &browsertest.FakeElement{
		Attrs:      map[string]string{"id": id},
		ValueValue: value,
	}
}

func fullRow(id, date, recordType, upgradeFlag string) *browsertest.FakeElement {
	return browsertest.Cells(id, date, "Acme Ltd", "ACC-1", target, "0123", "ops@acme.example", recordType, upgradeFlag)
}

// searchSurfaces scripts both partitions' navigation controls with empty
// result grids.
func searchSurfaces(page *browsertest.FakePage, sel search.Selectors) {
	for _, s := range []string{
		sel.ActiveTab, sel.SearchField, sel.SearchButton,
		sel.InactiveTab, sel.AddConditionButton,
		sel.ConditionField, sel.ConditionOperator, sel.ConditionValue,
	} {
		page.Nodes[s] = []*browsertest.FakeElement{{}}
	}
}

func newAdapter(opener *browsertest.FakeOpener, sum summary.Writer) *Adapter {
	return NewAdapter(Options{
		Opener:  opener,
		Search:  search.DefaultSelectors(),
		Extract: extract.DefaultSelectors(),
		Policy:  fastPolicy(),
		Summary: sum,
		Log:     zap.NewNop(),
	})
}

func TestExecuteRejectsInvalidParamsWithoutSession(t *testing.T) {
	opener := &browsertest.FakeOpener{}
	a := newAdapter(opener, nil)

	tests := []struct {
		name    string
		params  Params
		missing string
	}{
		{"missing job id", Params{TargetID: target}, "job_id"},
		{"missing target", Params{JobID: "job-1"}, "target_identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := a.Execute(context.Background(), tt.params)
			assert.Equal(t, StatusError, env.Status)
			assert.Equal(t, "validation", env.Details["stage"])
			assert.Equal(t, tt.missing, env.Details["missing"])
			assert.Equal(t, false, env.Details["found"])
			assert.Equal(t, "error", env.Details["service_location"])
		})
	}
	assert.Zero(t, opener.Opens, "validation failure must never open a session")
}

func TestExecuteReportsSessionOpenFailure(t *testing.T) {
	opener := &browsertest.FakeOpener{OpenErr: errors.New("driver did not start")}
	a := newAdapter(opener, nil)

	env := a.Execute(context.Background(), Params{JobID: "job-1", TargetID: target})
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, "initialization", env.Details["stage"])
	assert.Equal(t, false, env.Details["found"])
	assert.Equal(t, "error", env.Details["service_location"])
}

func TestNewAdapterDefaultsNilLogger(t *testing.T) {
	a := NewAdapter(Options{Opener: &browsertest.FakeOpener{OpenErr: errors.New("no driver")}})

	env := a.Execute(context.Background(), Params{JobID: "job-1", TargetID: target})
	assert.Equal(t, StatusError, env.Status, "a nil Options.Log must not panic the adapter")
}

func TestExecuteActiveWithPendingCancellation(t *testing.T) {
	sel := search.DefaultSelectors()
	esel := extract.DefaultSelectors()

	page := browsertest.NewPage()
	searchSurfaces(page, sel)
	page.Nodes[sel.ActiveRows] = []*browsertest.FakeElement{fullRow("R-1", "2024-06-01", "Service", "")}
	page.Nodes[sel.ActiveRows+":nth-child(1) td"] = []*browsertest.FakeElement{{}}
	page.Nodes[esel.DetailControls] = []*browsertest.FakeElement{
		detailControl("txtCustomerName", "Acme Ltd"),
		detailControl("txtCircuitFSAN", target),
		detailControl("txtExpiryDate", "31/12/9999"),
	}
	page.Nodes["#"+esel.HistoryControlID] = []*browsertest.FakeElement{{}}
	page.Nodes[esel.HistoryRows] = []*browsertest.FakeElement{
		fullRow("1", "2024-06-01", "Provisioning", ""),
		fullRow("C-99", "2025-01-10", "Cancellation", "Captured"),
	}

	sess := &browsertest.FakeSession{PageValue: page}
	sum := &recordingSummary{}
	a := newAdapter(&browsertest.FakeOpener{Session: sess}, sum)

	env := a.Execute(context.Background(), Params{JobID: "job-a", TargetID: target})
	require.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, true, env.Details["found"])
	assert.Equal(t, true, env.Details["is_active"])
	assert.Equal(t, "active", env.Details["service_location"])
	assert.Equal(t, true, env.Details["pending_cease_order"])
	assert.Equal(t, "active_with_pending_cancellation", env.Details["status_type"])
	assert.Equal(t, "C-99", env.Details["cancellation_captured_id"])
	assert.Equal(t, 2, env.Details["total_records"])
	assert.Equal(t, target, env.Details["field_circuit_id"])
	assert.Equal(t, true, env.Details["serviceFound"], "legacy duplicate key")

	names := make([]string, 0, len(env.Evidence))
	for _, item := range env.Evidence {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"portal_loaded", "search_results", "detail_view", "history_view"}, names)

	assert.Equal(t, 1, sess.Closes(), "session must close exactly once")

	require.Len(t, sum.written, 1)
	assert.Equal(t, "job-a", sum.written[0].JobID)
	assert.Equal(t, "active_with_pending_cancellation", sum.written[0].StatusType)
	assert.Equal(t, "C-99", sum.written[0].CancellationCapturedID)
	assert.Equal(t, names, sum.written[0].EvidenceIndex)
}

func TestExecuteNotFoundIsFailureNotError(t *testing.T) {
	sel := search.DefaultSelectors()
	page := browsertest.NewPage()
	searchSurfaces(page, sel) // both result grids stay empty

	sess := &browsertest.FakeSession{PageValue: page}
	sum := &recordingSummary{}
	a := newAdapter(&browsertest.FakeOpener{Session: sess}, sum)

	env := a.Execute(context.Background(), Params{JobID: "job-b", TargetID: target})
	require.Equal(t, StatusFailure, env.Status)
	assert.Equal(t, false, env.Details["found"])
	assert.Equal(t, "not_found", env.Details["service_location"])
	assert.Equal(t, "not_found", env.Details["status_type"])
	assert.Equal(t, false, env.Details["pending_cease_order"])

	assert.Equal(t, 1, sess.Closes())
	assert.Empty(t, sum.written, "not-found jobs produce no execution summary")
}

func TestExecuteCancelledImplemented(t *testing.T) {
	sel := search.DefaultSelectors()
	page := browsertest.NewPage()
	searchSurfaces(page, sel)
	page.Nodes[sel.InactiveRows] = []*browsertest.FakeElement{fullRow("77", "2025-01-10 09:00", "Cancellation", "")}
	page.Nodes[sel.InactiveRows+":nth-child(1) td"] = []*browsertest.FakeElement{{}}

	sess := &browsertest.FakeSession{PageValue: page}
	a := newAdapter(&browsertest.FakeOpener{Session: sess}, nil)

	env := a.Execute(context.Background(), Params{JobID: "job-c", TargetID: target})
	require.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, true, env.Details["found"])
	assert.Equal(t, false, env.Details["is_active"])
	assert.Equal(t, "inactive", env.Details["service_location"])
	assert.Equal(t, "cancelled_implemented", env.Details["status_type"])
	assert.Equal(t, "77", env.Details["cancellation_captured_id"])
	assert.Equal(t, "2025-01-10 09:00", env.Details["cancellation_implementation_date"])
}

func TestExecuteDegradesWhenActivationFails(t *testing.T) {
	sel := search.DefaultSelectors()
	page := browsertest.NewPage()
	searchSurfaces(page, sel)
	// A match with no activatable row: every activation technique fails.
	page.Nodes[sel.ActiveRows] = []*browsertest.FakeElement{fullRow("R-1", "2024-06-01", "Service", "")}

	sess := &browsertest.FakeSession{PageValue: page}
	a := newAdapter(&browsertest.FakeOpener{Session: sess}, nil)

	env := a.Execute(context.Background(), Params{JobID: "job-d", TargetID: target})
	require.Equal(t, StatusSuccess, env.Status)
	assert.Contains(t, env.Details, "activation_error")
	assert.Equal(t, "found_unclear_state", env.Details["status_type"], "unclear state is reported, never coerced")
	assert.Equal(t, true, env.Details["found"])
}

func TestExecuteRetriesAuthenticationBounded(t *testing.T) {
	sel := search.DefaultSelectors()
	page := browsertest.NewPage()
	user := &browsertest.FakeElement{}
	page.Nodes[sel.LoginUser] = []*browsertest.FakeElement{user}
	page.Nodes[sel.LoginPass] = []*browsertest.FakeElement{{}}
	page.Nodes[sel.LoginButton] = []*browsertest.FakeElement{{}}
	page.Location = "https://portal.example/login?denied=1"

	sess := &browsertest.FakeSession{PageValue: page}
	policy := fastPolicy()
	// The adapter fixes retry classification at its boundary; a supplied
	// classifier must not disable the bounded authentication retries.
	policy.Retryable = func(error) bool { return false }
	a := NewAdapter(Options{
		Opener:   &browsertest.FakeOpener{Session: sess},
		Search:   sel,
		Extract:  extract.DefaultSelectors(),
		Username: "operator",
		Password: "secret",
		Policy:   policy,
		Log:      zap.NewNop(),
	})

	env := a.Execute(context.Background(), Params{JobID: "job-e", TargetID: target})
	require.Equal(t, StatusError, env.Status)
	assert.Equal(t, "authentication", env.Details["stage"])
	assert.Equal(t, false, env.Details["found"])
	assert.Equal(t, "error", env.Details["service_location"])
	assert.Len(t, user.Inputs, 2, "authentication retries are bounded by the policy")
	assert.Equal(t, 1, sess.Closes())
}

func TestExecuteReportsSearchFailure(t *testing.T) {
	// No search surfaces at all: both partitions error out.
	page := browsertest.NewPage()
	sess := &browsertest.FakeSession{PageValue: page}
	a := newAdapter(&browsertest.FakeOpener{Session: sess}, nil)

	env := a.Execute(context.Background(), Params{JobID: "job-g", TargetID: target})
	require.Equal(t, StatusError, env.Status)
	assert.Equal(t, "search", env.Details["stage"])
	assert.Equal(t, false, env.Details["found"])
	assert.Equal(t, "error", env.Details["service_location"])
	assert.Equal(t, 1, sess.Closes())
}

func TestExecuteRecoversPanicIntoEnvelope(t *testing.T) {
	page := browsertest.NewPage()
	page.ScreenshotFn = func() ([]byte, error) { panic("driver crashed mid-call") }

	sess := &browsertest.FakeSession{PageValue: page}
	a := newAdapter(&browsertest.FakeOpener{Session: sess}, nil)

	env := a.Execute(context.Background(), Params{JobID: "job-f", TargetID: target})
	require.Equal(t, StatusError, env.Status)
	assert.Contains(t, env.Message, "unexpected fault")
	assert.Contains(t, env.Details, "trace")
	assert.Equal(t, false, env.Details["found"])
	assert.Equal(t, "error", env.Details["service_location"])
	assert.Equal(t, 1, sess.Closes(), "panic unwinding still closes the session")
}

package extract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portalprobe/internal/browser/browsertest"
)

func control(id, value string) *browsertest.FakeElement {
	return &browsertest.FakeElement{
		Attrs:      map[string]string{"id": id},
		ValueValue: value,
	}
}

func TestExtractDetail(t *testing.T) {
	page := browsertest.NewPage()
	page.Nodes[DefaultSelectors().DetailControls] = []*browsertest.FakeElement{
		control("txtCustomerName", "  Acme Ltd  "),
		control("txtCircuitFSAN", "123456789"),
		control("selBandwidth", "100/40"),
		control("txtExpiryDate", "31/12/9999"),
		control("txtAccountNumber", "ACC-1"),
		control("btnSave", "Save"),        // not allow-listed
		control("", "orphan"),             // no id
		control("csrf_token", "a1b2c3d4"), // not allow-listed
	}

	engine := NewEngine(DefaultSelectors(), zap.NewNop())
	res, err := engine.ExtractDetail(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		FieldCustomerName: "Acme Ltd",
		FieldCircuitID:    "123456789",
		FieldBandwidth:    "100/40",
		FieldExpiryDate:   "31/12/9999",
		// Allow-listed but without a canonical mapping: raw id passes through.
		"txtAccountNumber": "ACC-1",
	}, res.Fields)
	assert.Equal(t, "123456789", res.CircuitID())
}

func TestExtractHistory(t *testing.T) {
	sel := DefaultSelectors()
	page := browsertest.NewPage()
	page.Nodes["#"+sel.HistoryControlID] = []*browsertest.FakeElement{{}}
	page.Nodes[sel.HistoryRows] = []*browsertest.FakeElement{
		browsertest.Cells("1", "2024-06-01", "Acme", "ACC-1", "123456789", "p", "e", "Provisioning", ""),
		browsertest.Cells("C-99", "2025-01-10", "Acme", "ACC-1", "123456789", "p", "e", "Cancellation", "Captured"),
		browsertest.Cells("short", "row"), // malformed, dropped
		browsertest.Cells("C-7", "2025-02-01", "Acme", "ACC-1", "123456789", "p", "e", "cancellation", "CAPTURED"),
	}

	engine := NewEngine(sel, zap.NewNop())
	res := &Result{Fields: map[string]string{}}
	require.NoError(t, engine.ExtractHistory(context.Background(), page, res))

	assert.Equal(t, 3, res.TotalRecords, "only well-formed rows count")
	assert.Len(t, res.History, 3)
	assert.Equal(t, []string{"C-99", "C-7"}, res.CapturedCancellationIDs)
	assert.Equal(t, 1, page.Nodes["#"+sel.HistoryControlID][0].Clicks)
}

func TestExtractHistoryControlFallbacks(t *testing.T) {
	sel := DefaultSelectors()

	t.Run("text lookup", func(t *testing.T) {
		page := browsertest.NewPage()
		byText := &browsertest.FakeElement{}
		page.ByText["a, button, span|"+sel.HistoryControlText] = byText

		engine := NewEngine(sel, zap.NewNop())
		require.NoError(t, engine.ExtractHistory(context.Background(), page, &Result{}))
		assert.Equal(t, 1, byText.Clicks)
	})

	t.Run("scripted deep search", func(t *testing.T) {
		page := browsertest.NewPage()
		evaluated := 0
		page.EvalFn = func(js string, args ...interface{}) (json.RawMessage, error) {
			evaluated++
			require.Equal(t, []interface{}{sel.HistoryControlText}, args)
			return json.RawMessage("true"), nil
		}

		engine := NewEngine(sel, zap.NewNop())
		require.NoError(t, engine.ExtractHistory(context.Background(), page, &Result{}))
		assert.Equal(t, 1, evaluated)
	})

	t.Run("exhaustion", func(t *testing.T) {
		page := browsertest.NewPage() // nothing resolvable, script returns null

		engine := NewEngine(sel, zap.NewNop())
		err := engine.ExtractHistory(context.Background(), page, &Result{})
		require.Error(t, err)
	})
}

func TestResultCircuitIDNilSafe(t *testing.T) {
	var res *Result
	assert.Equal(t, "", res.CircuitID())
}

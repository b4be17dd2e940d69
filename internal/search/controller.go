// Package search drives the portal's two record partitions. The active
// partition is queried with a direct field-and-submit search; the deactivated
// partition only exposes a condition-builder that filters as conditions are
// entered. The controller never infers partition membership from prior state:
// the Outcome it returns is the single source of truth for downstream logic.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
	"portalprobe/internal/extract"
	"portalprobe/internal/faults"
	"portalprobe/internal/strategy"
)

// Partition identifies which record view produced a match.
type Partition string

const (
	PartitionActive   Partition = "active"
	PartitionInactive Partition = "inactive"
	PartitionNotFound Partition = "not_found"
)

// Outcome is the result of searching both partitions. Exhausting both without
// a match is a normal outcome, not an error.
type Outcome struct {
	Found     bool
	Partition Partition
	// Row is the primary matched row, parsed from the result grid.
	Row *extract.HistoryRecord
	// RowSelector addresses the matched row for activation.
	RowSelector string
}

// Selectors locates the navigation and search surfaces of the portal.
type Selectors struct {
	LoginUser   string
	LoginPass   string
	LoginButton string

	ActiveTab    string
	SearchField  string
	SearchButton string
	ActiveRows   string

	InactiveTab        string
	AddConditionButton string
	ConditionField     string
	ConditionOperator  string
	ConditionValue     string
	InactiveRows       string

	// ConditionFieldLabel is the field chosen in the condition builder;
	// OperatorEqualsLabel is the equality operator's visible text.
	ConditionFieldLabel string
	OperatorEqualsLabel string
}

// DefaultSelectors matches the portal release this engine currently targets.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginUser:   "#username",
		LoginPass:   "#password",
		LoginButton: "#btnLogin",

		ActiveTab:    "#tabActiveServices",
		SearchField:  "#txtSearchCircuit",
		SearchButton: "#btnSearch",
		ActiveRows:   "#resultsGrid tbody tr",

		InactiveTab:        "#tabDeactivatedServices",
		AddConditionButton: "#btnAddCondition",
		ConditionField:     "#selConditionField",
		ConditionOperator:  "#selConditionOperator",
		ConditionValue:     "#txtConditionValue",
		InactiveRows:       "#deactivatedGrid tbody tr",

		ConditionFieldLabel: "Circuit ID",
		OperatorEqualsLabel: "equals",
	}
}

// Controller sequences navigation and search over one session page.
type Controller struct {
	log *zap.Logger
	sel Selectors

	searchFill   *strategy.Chain
	condFill     *strategy.Chain
	userFill     *strategy.Chain
	passFill     *strategy.Chain
	activation   *strategy.Chain
	confirm      *strategy.Chain
	popupDismiss *strategy.Chain
	errorDetect  *strategy.DetectChain
	deniedDetect *strategy.DetectChain
}

// NewController assembles every fallback chain the controller needs. All
// strategy selection happens here, at construction.
func NewController(sel Selectors, log *zap.Logger) *Controller {
	log = log.Named("search")
	return &Controller{
		log:          log,
		sel:          sel,
		searchFill:   strategy.NewFormFillChain(sel.SearchField, log),
		condFill:     strategy.NewFormFillChain(sel.ConditionValue, log),
		userFill:     strategy.NewFormFillChain(sel.LoginUser, log),
		passFill:     strategy.NewFormFillChain(sel.LoginPass, log),
		activation:   strategy.NewActivationChain(log),
		confirm:      strategy.NewConfirmationChain(log),
		popupDismiss: strategy.NewPopupDismissChain(log),
		errorDetect:  strategy.NewErrorDetectChain(log),
		deniedDetect: strategy.NewAccessDeniedChain(log),
	}
}

// Login authenticates against the portal. Credential rejection and
// access-denied pages surface as AuthenticationError; the caller wraps this
// operation in the resilience layer.
func (c *Controller) Login(ctx context.Context, page browser.Page, username, password string) error {
	if err := c.userFill.Apply(ctx, page, username); err != nil {
		return &faults.AuthenticationError{Err: err}
	}
	if err := c.passFill.Apply(ctx, page, password); err != nil {
		return &faults.AuthenticationError{Err: err}
	}
	btn, err := page.Element(ctx, c.sel.LoginButton)
	if err != nil {
		return &faults.AuthenticationError{Err: err}
	}
	if err := btn.Click(ctx); err != nil {
		return &faults.AuthenticationError{Err: err}
	}
	if err := page.WaitStable(ctx); err != nil {
		c.log.Debug("post-login page never stabilized", zap.Error(err))
	}

	denied, err := c.deniedDetect.Detect(ctx, page)
	if err != nil {
		return &faults.AuthenticationError{Err: err}
	}
	if denied {
		return &faults.AuthenticationError{Err: fmt.Errorf("portal denied access after login")}
	}
	c.log.Info("login succeeded")
	return nil
}

// Find searches the active partition first, then the deactivated partition.
// A search error or an empty active result set falls through to the
// deactivated path; both empty is PartitionNotFound with a nil error.
func (c *Controller) Find(ctx context.Context, page browser.Page, target string) (Outcome, error) {
	outcome, err := c.searchActive(ctx, page, target)
	if err != nil {
		c.log.Warn("active partition search failed, trying deactivated partition", zap.Error(err))
	} else if outcome.Found {
		return outcome, nil
	}

	outcome, err = c.searchInactive(ctx, page, target)
	if err != nil {
		return Outcome{Partition: PartitionNotFound}, err
	}
	if outcome.Found {
		return outcome, nil
	}

	c.log.Info("target not present in either partition", zap.String("target", target))
	return Outcome{Found: false, Partition: PartitionNotFound}, nil
}

// searchActive populates the search field directly and uses the primary
// submit action.
func (c *Controller) searchActive(ctx context.Context, page browser.Page, target string) (Outcome, error) {
	tab, err := page.Element(ctx, c.sel.ActiveTab)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: "active partition tab", Err: err}
	}
	if err := tab.Click(ctx); err != nil {
		return Outcome{}, &faults.NavigationError{Step: "active partition tab", Err: err}
	}

	if err := c.searchFill.Apply(ctx, page, target); err != nil {
		return Outcome{}, err
	}
	btn, err := page.Element(ctx, c.sel.SearchButton)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: "search submit", Err: err}
	}
	if err := btn.Click(ctx); err != nil {
		return Outcome{}, &faults.NavigationError{Step: "search submit", Err: err}
	}
	if err := page.WaitStable(ctx); err != nil {
		c.log.Debug("active results never stabilized", zap.Error(err))
	}

	if err := strategy.DismissPopups(ctx, page, c.popupDismiss, c.log); err != nil {
		c.log.Warn("pop-up dismissal failed, continuing", zap.Error(err))
	}

	if failed, err := c.errorDetect.Detect(ctx, page); err == nil && failed {
		return Outcome{}, &faults.NavigationError{Step: "active partition search", Err: fmt.Errorf("portal reported a search error")}
	}

	return c.matchRows(ctx, page, c.sel.ActiveRows, PartitionActive)
}

// searchInactive uses the deactivated partition's condition builder: add a
// condition, select the field, select the equality operator, enter the value.
// Results filter automatically; there is no explicit submit.
func (c *Controller) searchInactive(ctx context.Context, page browser.Page, target string) (Outcome, error) {
	tab, err := page.Element(ctx, c.sel.InactiveTab)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: "deactivated partition tab", Err: err}
	}
	if err := tab.Click(ctx); err != nil {
		return Outcome{}, &faults.NavigationError{Step: "deactivated partition tab", Err: err}
	}

	add, err := page.Element(ctx, c.sel.AddConditionButton)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: "add condition", Err: err}
	}
	if err := add.Click(ctx); err != nil {
		return Outcome{}, &faults.NavigationError{Step: "add condition", Err: err}
	}

	field, err := page.Element(ctx, c.sel.ConditionField)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: "condition field", Err: err}
	}
	if err := field.SelectOption(ctx, c.sel.ConditionFieldLabel); err != nil {
		return Outcome{}, &faults.NavigationError{Step: "condition field", Err: err}
	}

	op, err := page.Element(ctx, c.sel.ConditionOperator)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: "condition operator", Err: err}
	}
	if err := op.SelectOption(ctx, c.sel.OperatorEqualsLabel); err != nil {
		return Outcome{}, &faults.NavigationError{Step: "condition operator", Err: err}
	}

	if err := c.condFill.Apply(ctx, page, target); err != nil {
		return Outcome{}, err
	}
	if err := page.WaitStable(ctx); err != nil {
		c.log.Debug("deactivated results never stabilized", zap.Error(err))
	}

	return c.matchRows(ctx, page, c.sel.InactiveRows, PartitionInactive)
}

// matchRows parses the result grid and returns the first non-empty
// well-formed row. Zero non-empty rows is a non-match, not an error.
func (c *Controller) matchRows(ctx context.Context, page browser.Page, rowsSel string, partition Partition) (Outcome, error) {
	rows, err := page.Elements(ctx, rowsSel)
	if err != nil {
		return Outcome{}, &faults.NavigationError{Step: string(partition) + " result rows", Err: err}
	}

	for i, row := range rows {
		cells, err := row.Elements(ctx, "td")
		if err != nil {
			continue
		}
		values := make([]string, 0, len(cells))
		empty := true
		for _, cell := range cells {
			text, err := cell.Text(ctx)
			if err != nil {
				text = ""
			}
			if text != "" {
				empty = false
			}
			values = append(values, text)
		}
		if empty {
			continue
		}
		rec, ok := extract.RowFromCells(values, i)
		if !ok {
			c.log.Warn("malformed result row skipped",
				zap.String("partition", string(partition)),
				zap.Int("row", i),
				zap.Int("columns", len(values)))
			continue
		}
		c.log.Info("match found",
			zap.String("partition", string(partition)),
			zap.Int("row", i),
			zap.String("id", rec.ID))
		return Outcome{
			Found:       true,
			Partition:   partition,
			Row:         &rec,
			RowSelector: fmt.Sprintf("%s:nth-child(%d)", rowsSel, i+1),
		}, nil
	}
	return Outcome{Found: false, Partition: PartitionNotFound}, nil
}

// Activate opens the detail view for a matched result via the activation
// fallback chain.
func (c *Controller) Activate(ctx context.Context, page browser.Page, outcome Outcome) error {
	if !outcome.Found || outcome.RowSelector == "" {
		return fmt.Errorf("no matched row to activate")
	}
	if err := c.activation.Apply(ctx, page, outcome.RowSelector); err != nil {
		return err
	}
	// Some records raise an "open this record?" confirmation before the
	// detail view renders.
	if err := strategy.ConfirmIfPresent(ctx, page, c.confirm); err != nil {
		c.log.Warn("confirmation handling failed, continuing", zap.Error(err))
	}
	if err := page.WaitStable(ctx); err != nil {
		c.log.Debug("detail view never stabilized", zap.Error(err))
	}
	return nil
}

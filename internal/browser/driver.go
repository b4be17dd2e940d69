// Package browser owns the browser-driver lifecycle for one portal job and
// exposes the narrow driving surface the rest of the engine consumes. The
// target portal has no API, so its rendered DOM is the de facto protocol;
// everything above this package talks to Page/Element, never to the driver
// library directly, which keeps the automation logic testable with fakes.
package browser

import (
	"context"
	"encoding/json"
)

// Page is one portal tab. Every wait behind these calls is bounded by the
// element/navigation timeouts captured in the session config.
type Page interface {
	// Navigate loads the URL and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitStable waits for the DOM to stop mutating, bounded by the element
	// timeout. Used after actions that re-render result tables.
	WaitStable(ctx context.Context) error
	// URL returns the current location.
	URL(ctx context.Context) (string, error)
	// HTML returns the serialized document, used by content heuristics.
	HTML(ctx context.Context) (string, error)
	// Has reports whether at least one element matches the selector.
	Has(ctx context.Context, selector string) (bool, error)
	// Element resolves the first match, waiting up to the element timeout.
	Element(ctx context.Context, selector string) (Element, error)
	// Elements resolves all current matches without waiting.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// ElementByText resolves the first match whose text contains the given
	// literal text.
	ElementByText(ctx context.Context, selector, text string) (Element, error)
	// Eval runs a JS function expression in the page and returns its result.
	Eval(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error)
	// AcceptNextDialog arms a one-shot accept for the next native JS dialog.
	AcceptNextDialog(ctx context.Context)
	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Element is a resolved DOM node.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Value returns the live value property of a form control.
	Value(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Visible(ctx context.Context) (bool, error)
	// Input replaces the control's content with text.
	Input(ctx context.Context, text string) error
	Click(ctx context.Context) error
	DoubleClick(ctx context.Context) error
	// SelectOption selects the option matching the visible text.
	SelectOption(ctx context.Context, text string) error
	Element(ctx context.Context, selector string) (Element, error)
	Elements(ctx context.Context, selector string) ([]Element, error)
}

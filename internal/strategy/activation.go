package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
)

// dispatchDblClickJS synthesizes a double-click when real mouse events are
// swallowed by the portal's grid widget.
const dispatchDblClickJS = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	const ev = new MouseEvent('dblclick', { bubbles: true, cancelable: true, view: window });
	el.dispatchEvent(ev);
	return true;
}`

// NewActivationChain returns the fallback chain that opens the detail view
// for a matched result row. The value passed to Apply is the row's selector.
func NewActivationChain(log *zap.Logger) *Chain {
	return NewChain("activate result row", log,
		Technique("double-click first cell", func(ctx context.Context, page browser.Page, row string) error {
			cell, err := page.Element(ctx, row+" td")
			if err != nil {
				return err
			}
			return cell.DoubleClick(ctx)
		}),
		Technique("double-click row", func(ctx context.Context, page browser.Page, row string) error {
			el, err := page.Element(ctx, row)
			if err != nil {
				return err
			}
			return el.DoubleClick(ctx)
		}),
		Technique("dispatch dblclick event", func(ctx context.Context, page browser.Page, row string) error {
			res, err := page.Eval(ctx, dispatchDblClickJS, row)
			if err != nil {
				return err
			}
			if string(res) != "true" {
				return fmt.Errorf("row %q not present for synthetic dblclick", row)
			}
			return nil
		}),
		Technique("follow embedded link", func(ctx context.Context, page browser.Page, row string) error {
			link, err := page.Element(ctx, row+" a")
			if err != nil {
				return err
			}
			return link.Click(ctx)
		}),
	)
}

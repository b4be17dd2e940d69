package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
)

// setValueJS sets a control's value from script and dispatches the events the
// portal's framework listens for, since a programmatic change fires neither.
const setValueJS = `(selector, value) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	if (el.disabled || el.readOnly) return false;
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// NewFormFillChain returns the fallback chain for populating one form control.
// The selector is fixed at construction; Apply's value is the text to enter.
func NewFormFillChain(selector string, log *zap.Logger) *Chain {
	return NewChain(fmt.Sprintf("fill %s", selector), log,
		Technique("direct input", func(ctx context.Context, page browser.Page, value string) error {
			el, err := page.Element(ctx, selector)
			if err != nil {
				return err
			}
			return el.Input(ctx, value)
		}),
		Technique("click then input", func(ctx context.Context, page browser.Page, value string) error {
			el, err := page.Element(ctx, selector)
			if err != nil {
				return err
			}
			if err := el.Click(ctx); err != nil {
				return err
			}
			return el.Input(ctx, value)
		}),
		Technique("scripted value set", func(ctx context.Context, page browser.Page, value string) error {
			res, err := page.Eval(ctx, setValueJS, selector, value)
			if err != nil {
				return err
			}
			if string(res) != "true" {
				return fmt.Errorf("control %q not settable from script", selector)
			}
			return nil
		}),
	)
}

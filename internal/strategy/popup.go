package strategy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
	"portalprobe/internal/faults"
)

// Selector families for the portal's transient warning pop-ups. The portal
// renders dialogs with at least two different widget kits depending on the
// view, so both families are tried before the native dialog fallback.
var (
	popupCloseSelectors = []string{
		".ui-dialog:not([style*='display: none']) button.ui-dialog-titlebar-close",
		".modal.show button.close",
		".x-window .x-tool-close",
	}
	popupButtonLabels = []string{"OK", "Close", "Dismiss"}
	popupPresence     = []string{
		".ui-dialog:not([style*='display: none'])",
		".modal.show",
		".x-window",
	}
)

// NewPopupDismissChain returns the fallback chain that clears one transient
// warning pop-up. Apply's value is unused.
func NewPopupDismissChain(log *zap.Logger) *Chain {
	return NewChain("dismiss warning pop-up", log,
		Technique("close button selectors", func(ctx context.Context, page browser.Page, _ string) error {
			for _, sel := range popupCloseSelectors {
				has, err := page.Has(ctx, sel)
				if err != nil || !has {
					continue
				}
				el, err := page.Element(ctx, sel)
				if err != nil {
					continue
				}
				return el.Click(ctx)
			}
			return fmt.Errorf("no close control matched %d selector families", len(popupCloseSelectors))
		}),
		Technique("button by label", func(ctx context.Context, page browser.Page, _ string) error {
			for _, label := range popupButtonLabels {
				el, err := page.ElementByText(ctx, "button", label)
				if err != nil {
					continue
				}
				if visible, err := el.Visible(ctx); err != nil || !visible {
					continue
				}
				return el.Click(ctx)
			}
			return fmt.Errorf("no dismiss button labelled %v", popupButtonLabels)
		}),
		Technique("native dialog accept", func(ctx context.Context, page browser.Page, _ string) error {
			page.AcceptNextDialog(ctx)
			return nil
		}),
	)
}

// popupMaxPasses bounds dismissal; pop-ups can stack but never deeper than two
// in practice.
const popupMaxPasses = 2

// DismissPopups clears any transient pop-ups currently shown, running the
// dismissal chain at most twice. It never fails the enclosing step: an
// undismissable pop-up is reported but the caller continues best-effort.
func DismissPopups(ctx context.Context, page browser.Page, chain *Chain, log *zap.Logger) error {
	for pass := 0; pass < popupMaxPasses; pass++ {
		present := false
		for _, sel := range popupPresence {
			has, err := page.Has(ctx, sel)
			if err == nil && has {
				present = true
				break
			}
		}
		if !present {
			return nil
		}
		if err := chain.Apply(ctx, page, ""); err != nil {
			var ie *faults.InteractionError
			if errors.As(err, &ie) {
				log.Warn("pop-up dismissal exhausted", zap.Int("techniques", ie.Attempted))
			}
			return err
		}
	}
	return nil
}

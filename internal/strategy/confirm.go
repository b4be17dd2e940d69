package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
)

var (
	confirmSelectors = []string{
		".ui-dialog:not([style*='display: none']) button.confirm",
		".modal.show button.btn-primary",
		"button[id*='confirm']",
	}
	confirmLabels = []string{"Yes", "Confirm", "OK"}
)

// ConfirmIfPresent accepts a confirmation dialog when one is currently shown.
// No dialog is a no-op; an undismissable dialog surfaces as the chain's
// exhaustion error.
func ConfirmIfPresent(ctx context.Context, page browser.Page, chain *Chain) error {
	for _, sel := range confirmSelectors {
		has, err := page.Has(ctx, sel)
		if err != nil || !has {
			continue
		}
		return chain.Apply(ctx, page, "")
	}
	return nil
}

// NewConfirmationChain returns the fallback chain for accepting a
// confirmation dialog raised by the portal. Apply's value is unused.
func NewConfirmationChain(log *zap.Logger) *Chain {
	return NewChain("confirm dialog", log,
		Technique("confirm button selectors", func(ctx context.Context, page browser.Page, _ string) error {
			for _, sel := range confirmSelectors {
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
			return fmt.Errorf("no confirm control matched %d selectors", len(confirmSelectors))
		}),
		Technique("button by label", func(ctx context.Context, page browser.Page, _ string) error {
			for _, label := range confirmLabels {
				el, err := page.ElementByText(ctx, "button", label)
				if err != nil {
					continue
				}
				if visible, err := el.Visible(ctx); err != nil || !visible {
					continue
				}
				return el.Click(ctx)
			}
			return fmt.Errorf("no confirm button labelled %v", confirmLabels)
		}),
		Technique("native dialog accept", func(ctx context.Context, page browser.Page, _ string) error {
			page.AcceptNextDialog(ctx)
			return nil
		}),
	)
}

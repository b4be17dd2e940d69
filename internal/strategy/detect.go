package strategy

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
)

var (
	accessDeniedURLPatterns = []string{"access-denied", "accessdenied", "unauthorised", "unauthorized", "login?denied"}
	accessDeniedPhrases     = []string{"access denied", "not authorised", "not authorized", "permission to view"}

	errorBannerSelectors = []string{
		".error:not(:empty)",
		".x-message-error",
		"[role='alert']:not(:empty)",
		".validation-summary-errors",
	}
	errorPhrases = []string{"an error occurred", "unexpected error", "system error", "request could not be completed"}
)

// NewAccessDeniedChain combines the URL-pattern and page-content heuristics
// for access-denied detection.
func NewAccessDeniedChain(log *zap.Logger) *DetectChain {
	return NewDetectChain("access denied", log,
		Heuristic("url pattern", func(ctx context.Context, page browser.Page) (bool, error) {
			url, err := page.URL(ctx)
			if err != nil {
				return false, err
			}
			url = strings.ToLower(url)
			for _, p := range accessDeniedURLPatterns {
				if strings.Contains(url, p) {
					return true, nil
				}
			}
			return false, nil
		}),
		Heuristic("page content", func(ctx context.Context, page browser.Page) (bool, error) {
			html, err := page.HTML(ctx)
			if err != nil {
				return false, err
			}
			html = strings.ToLower(html)
			for _, p := range accessDeniedPhrases {
				if strings.Contains(html, p) {
					return true, nil
				}
			}
			return false, nil
		}),
	)
}

// NewErrorDetectChain detects the portal's error banners after a search or
// submit action.
func NewErrorDetectChain(log *zap.Logger) *DetectChain {
	return NewDetectChain("portal error", log,
		Heuristic("error banner selectors", func(ctx context.Context, page browser.Page) (bool, error) {
			for _, sel := range errorBannerSelectors {
				has, err := page.Has(ctx, sel)
				if err != nil {
					continue
				}
				if !has {
					continue
				}
				el, err := page.Element(ctx, sel)
				if err != nil {
					continue
				}
				if visible, err := el.Visible(ctx); err == nil && visible {
					return true, nil
				}
			}
			return false, nil
		}),
		Heuristic("page content", func(ctx context.Context, page browser.Page) (bool, error) {
			html, err := page.HTML(ctx)
			if err != nil {
				return false, err
			}
			html = strings.ToLower(html)
			for _, p := range errorPhrases {
				if strings.Contains(html, p) {
					return true, nil
				}
			}
			return false, nil
		}),
	)
}

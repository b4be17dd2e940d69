// Package strategy implements ordered fallback chains for every interaction
// with the portal UI. The portal's DOM is versioned independently of this
// engine, so no single selector is trusted: each logical action is a
// configured list of techniques tried in order until one succeeds. Chains are
// assembled by factories at construction time, never by inspecting the target
// at runtime.
package strategy

import (
	"context"

	"go.uber.org/zap"

	"portalprobe/internal/browser"
	"portalprobe/internal/faults"
)

// Detector is one technique for detecting a page condition.
type Detector interface {
	Name() string
	Detect(ctx context.Context, page browser.Page) (bool, error)
}

// Interactor is one technique for performing an interaction.
type Interactor interface {
	Name() string
	Apply(ctx context.Context, page browser.Page, value string) error
}

// Chain tries interaction techniques in order. A failed technique is logged
// and non-fatal; success short-circuits the rest; exhaustion is a typed
// InteractionError carrying the number of techniques attempted.
type Chain struct {
	context string
	log     *zap.Logger
	steps   []Interactor
}

// NewChain builds an interaction chain for one logical action.
func NewChain(context string, log *zap.Logger, steps ...Interactor) *Chain {
	return &Chain{context: context, log: log.Named("strategy"), steps: steps}
}

// Apply runs the chain with the given value.
func (c *Chain) Apply(ctx context.Context, page browser.Page, value string) error {
	var lastErr error
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := step.Apply(ctx, page, value)
		if err == nil {
			c.log.Debug("technique succeeded",
				zap.String("action", c.context),
				zap.String("technique", step.Name()))
			return nil
		}
		lastErr = err
		c.log.Debug("technique failed, trying next",
			zap.String("action", c.context),
			zap.String("technique", step.Name()),
			zap.Error(err))
	}
	return &faults.InteractionError{Context: c.context, Attempted: len(c.steps), Err: lastErr}
}

// DetectChain combines detection heuristics. A technique error is logged and
// the next technique is tried; any technique reporting true wins.
type DetectChain struct {
	context string
	log     *zap.Logger
	steps   []Detector
}

// NewDetectChain builds a detection chain for one condition.
func NewDetectChain(context string, log *zap.Logger, steps ...Detector) *DetectChain {
	return &DetectChain{context: context, log: log.Named("strategy"), steps: steps}
}

// Detect reports whether any technique detected the condition. If every
// technique errors, the exhaustion surfaces as an InteractionError.
func (c *DetectChain) Detect(ctx context.Context, page browser.Page) (bool, error) {
	var lastErr error
	errored := 0
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		found, err := step.Detect(ctx, page)
		if err != nil {
			lastErr = err
			errored++
			c.log.Debug("detection technique failed, trying next",
				zap.String("condition", c.context),
				zap.String("technique", step.Name()),
				zap.Error(err))
			continue
		}
		if found {
			c.log.Debug("condition detected",
				zap.String("condition", c.context),
				zap.String("technique", step.Name()))
			return true, nil
		}
	}
	if errored == len(c.steps) && errored > 0 {
		return false, &faults.InteractionError{Context: c.context, Attempted: errored, Err: lastErr}
	}
	return false, nil
}

// funcInteractor adapts a closure into an Interactor.
type funcInteractor struct {
	name string
	fn   func(ctx context.Context, page browser.Page, value string) error
}

func (f *funcInteractor) Name() string { return f.name }

func (f *funcInteractor) Apply(ctx context.Context, page browser.Page, value string) error {
	return f.fn(ctx, page, value)
}

// Technique wraps a closure as a named interaction technique.
func Technique(name string, fn func(ctx context.Context, page browser.Page, value string) error) Interactor {
	return &funcInteractor{name: name, fn: fn}
}

// funcDetector adapts a closure into a Detector.
type funcDetector struct {
	name string
	fn   func(ctx context.Context, page browser.Page) (bool, error)
}

func (f *funcDetector) Name() string { return f.name }

func (f *funcDetector) Detect(ctx context.Context, page browser.Page) (bool, error) {
	return f.fn(ctx, page)
}

// Heuristic wraps a closure as a named detection technique.
func Heuristic(name string, fn func(ctx context.Context, page browser.Page) (bool, error)) Detector {
	return &funcDetector{name: name, fn: fn}
}

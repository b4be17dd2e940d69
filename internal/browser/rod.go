package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodPage adapts a rod page to the Page interface. All blocking calls are
// bounded: lookups by the element timeout, Navigate by the navigation timeout.
type rodPage struct {
	page        *rod.Page
	navTimeout  time.Duration
	elemTimeout time.Duration
}

func (p *rodPage) bounded(ctx context.Context) *rod.Page {
	return p.page.Context(ctx).Timeout(p.elemTimeout)
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.navTimeout)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) WaitStable(ctx context.Context) error {
	return p.bounded(ctx).WaitDOMStable(300*time.Millisecond, 0)
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

func (p *rodPage) Element(ctx context.Context, selector string) (Element, error) {
	el, err := p.bounded(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return &rodElement{el: el, elemTimeout: p.elemTimeout}, nil
}

func (p *rodPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("elements %q: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, elemTimeout: p.elemTimeout})
	}
	return out, nil
}

func (p *rodPage) ElementByText(ctx context.Context, selector, text string) (Element, error) {
	el, err := p.bounded(ctx).ElementR(selector, regexp.QuoteMeta(text))
	if err != nil {
		return nil, fmt.Errorf("element %q with text %q: %w", selector, text, err)
	}
	return &rodElement{el: el, elemTimeout: p.elemTimeout}, nil
}

func (p *rodPage) Eval(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.Value.MarshalJSON()
}

func (p *rodPage) AcceptNextDialog(ctx context.Context) {
	wait, handle := p.page.Context(ctx).HandleDialog()
	go func() {
		wait()
		_ = handle(&proto.PageHandleJavaScriptDialog{Accept: true})
	}()
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, nil)
}

type rodElement struct {
	el          *rod.Element
	elemTimeout time.Duration
}

func (e *rodElement) bounded(ctx context.Context) *rod.Element {
	return e.el.Context(ctx).Timeout(e.elemTimeout)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.bounded(ctx).Text()
}

func (e *rodElement) Value(ctx context.Context) (string, error) {
	v, err := e.bounded(ctx).Property("value")
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.bounded(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.bounded(ctx).Visible()
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	el := e.bounded(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.bounded(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) DoubleClick(ctx context.Context) error {
	return e.bounded(ctx).Click(proto.InputMouseButtonLeft, 2)
}

func (e *rodElement) SelectOption(ctx context.Context, text string) error {
	return e.bounded(ctx).Select([]string{text}, true, rod.SelectorTypeText)
}

func (e *rodElement) Element(ctx context.Context, selector string) (Element, error) {
	el, err := e.bounded(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return &rodElement{el: el, elemTimeout: e.elemTimeout}, nil
}

func (e *rodElement) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("elements %q: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, elemTimeout: e.elemTimeout})
	}
	return out, nil
}

// Package browsertest provides scriptable fakes for the driver interfaces so
// the automation logic can be exercised without a browser.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"portalprobe/internal/browser"
)

// FakeElement is a scriptable DOM node.
type FakeElement struct {
	TextValue   string
	ValueValue  string
	Attrs       map[string]string
	Hidden      bool
	Children    map[string][]*FakeElement
	ClickErr    error
	DblClickErr error
	InputErr    error
	SelectErr   error

	Clicks       int
	DoubleClicks int
	Inputs       []string
	Selected     []string
}

var _ browser.Element = (*FakeElement)(nil)

func (e *FakeElement) Text(context.Context) (string, error)  { return e.TextValue, nil }
func (e *FakeElement) Value(context.Context) (string, error) { return e.ValueValue, nil }

func (e *FakeElement) Attribute(_ context.Context, name string) (string, error) {
	return e.Attrs[name], nil
}

func (e *FakeElement) Visible(context.Context) (bool, error) { return !e.Hidden, nil }

func (e *FakeElement) Input(_ context.Context, text string) error {
	if e.InputErr != nil {
		return e.InputErr
	}
	e.Inputs = append(e.Inputs, text)
	e.ValueValue = text
	return nil
}

func (e *FakeElement) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	return nil
}

func (e *FakeElement) DoubleClick(context.Context) error {
	if e.DblClickErr != nil {
		return e.DblClickErr
	}
	e.DoubleClicks++
	return nil
}

func (e *FakeElement) SelectOption(_ context.Context, text string) error {
	if e.SelectErr != nil {
		return e.SelectErr
	}
	e.Selected = append(e.Selected, text)
	return nil
}

func (e *FakeElement) Element(_ context.Context, selector string) (browser.Element, error) {
	els := e.Children[selector]
	if len(els) == 0 {
		return nil, fmt.Errorf("fake: no child element %q", selector)
	}
	return els[0], nil
}

func (e *FakeElement) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	els := e.Children[selector]
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

// Cells builds a table row whose td children carry the given texts.
func Cells(texts ...string) *FakeElement {
	row := &FakeElement{Children: map[string][]*FakeElement{}}
	for _, t := range texts {
		row.Children["td"] = append(row.Children["td"], &FakeElement{TextValue: t})
	}
	return row
}

// FakePage is a scriptable page. Selectors resolve through the Nodes map;
// text lookups through the ByText map keyed "selector|text".
type FakePage struct {
	Location string
	Content  string
	Nodes    map[string][]*FakeElement
	ByText   map[string]*FakeElement

	// EvalFn handles script evaluation; nil returns null for every script.
	EvalFn func(js string, args ...interface{}) (json.RawMessage, error)
	// ScreenshotFn produces snapshot payloads; nil yields a stub PNG.
	ScreenshotFn func() ([]byte, error)

	Navigated       []string
	DialogsAccepted int
	StableWaits     int
}

var _ browser.Page = (*FakePage)(nil)

// NewPage returns an empty fake page.
func NewPage() *FakePage {
	return &FakePage{
		Nodes:  map[string][]*FakeElement{},
		ByText: map[string]*FakeElement{},
	}
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.Navigated = append(p.Navigated, url)
	p.Location = url
	return nil
}

func (p *FakePage) WaitStable(context.Context) error {
	p.StableWaits++
	return nil
}

func (p *FakePage) URL(context.Context) (string, error)  { return p.Location, nil }
func (p *FakePage) HTML(context.Context) (string, error) { return p.Content, nil }

func (p *FakePage) Has(_ context.Context, selector string) (bool, error) {
	return len(p.Nodes[selector]) > 0, nil
}

func (p *FakePage) Element(_ context.Context, selector string) (browser.Element, error) {
	els := p.Nodes[selector]
	if len(els) == 0 {
		return nil, fmt.Errorf("fake: no element %q", selector)
	}
	return els[0], nil
}

func (p *FakePage) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	els := p.Nodes[selector]
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (p *FakePage) ElementByText(_ context.Context, selector, text string) (browser.Element, error) {
	el, ok := p.ByText[selector+"|"+text]
	if !ok {
		return nil, fmt.Errorf("fake: no element %q with text %q", selector, text)
	}
	return el, nil
}

func (p *FakePage) Eval(_ context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	if p.EvalFn != nil {
		return p.EvalFn(js, args...)
	}
	return json.RawMessage("null"), nil
}

func (p *FakePage) AcceptNextDialog(context.Context) {
	p.DialogsAccepted++
}

func (p *FakePage) Screenshot(context.Context) ([]byte, error) {
	if p.ScreenshotFn != nil {
		return p.ScreenshotFn()
	}
	return []byte("png-stub"), nil
}

// FakeSession pairs a fake page with close tracking.
type FakeSession struct {
	PageValue browser.Page

	mu     sync.Mutex
	closes int
}

var _ browser.ActiveSession = (*FakeSession)(nil)

func (s *FakeSession) Page() browser.Page { return s.PageValue }

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closes reports how many times Close ran.
func (s *FakeSession) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// FakeOpener records session opens.
type FakeOpener struct {
	Session *FakeSession
	OpenErr error
	Opens   int
}

var _ browser.Opener = (*FakeOpener)(nil)

func (o *FakeOpener) Open(context.Context) (browser.ActiveSession, error) {
	o.Opens++
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return o.Session, nil
}

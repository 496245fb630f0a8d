package scraper

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Session is the narrow capability surface the interaction driver needs from
// a live browsing session. The production implementation wraps a rod page;
// tests substitute an in-memory stub, so the driver's state machine is
// exercisable without a browser.
type Session interface {
	// Find returns the elements matching the CSS selector, in document
	// order.
	Find(selector string) ([]Element, error)

	// ScrollToBottom scrolls the viewport to the bottom of the document.
	ScrollToBottom() error

	// DocumentHeight returns the current document scroll height.
	DocumentHeight() (int, error)

	// WaitIdle waits up to timeout for the page to stabilise after an
	// interaction. Timing out is expected and reported as an error the
	// caller may ignore.
	WaitIdle(timeout time.Duration) error

	// CurrentURL returns the session's current location.
	CurrentURL() string
}

// Element is a handle to one DOM node in the live session.
type Element interface {
	// ID is a stable identity for the element within the session, used
	// to avoid reselecting already-clicked controls.
	ID() string

	// Click clicks the element.
	Click() error

	// Visible reports whether the element is visible.
	Visible() bool

	// Text returns the element's visible text, or "" on failure.
	Text() string

	// Attribute returns the named attribute value, or "" when absent.
	Attribute(name string) string
}

// rodSession adapts a rod page to the Session interface. The page is already
// bound to the request context, so every call inherits its deadline.
type rodSession struct {
	page *rod.Page
}

var _ Session = (*rodSession)(nil)

func (s *rodSession) Find(selector string) ([]Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	result := make([]Element, 0, len(els))
	for _, el := range els {
		result = append(result, &rodElement{el: el})
	}
	return result, nil
}

func (s *rodSession) ScrollToBottom() error {
	_, err := s.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (s *rodSession) DocumentHeight() (int, error) {
	res, err := s.page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// WaitIdle uses DOM stability as the idle signal. WaitRequestIdle would be
// the literal network-idle wait, but it uses the Fetch domain, which
// conflicts with the hijack router on Chromium 145+.
func (s *rodSession) WaitIdle(timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()
	return p.WaitDOMStable(300*time.Millisecond, 0.1)
}

func (s *rodSession) CurrentURL() string {
	res, err := s.page.Eval(`() => window.location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// rodElement adapts a rod element to the Element interface. Lookup failures
// on optional reads (text, visibility, attributes) degrade to zero values:
// the driver treats those as "not a candidate" rather than errors.
type rodElement struct {
	el *rod.Element
}

var _ Element = (*rodElement)(nil)

func (e *rodElement) ID() string {
	return string(e.el.Object.ObjectID)
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Visible() bool {
	v, err := e.el.Visible()
	return err == nil && v
}

func (e *rodElement) Text() string {
	t, err := e.el.Text()
	if err != nil {
		return ""
	}
	return t
}

func (e *rodElement) Attribute(name string) string {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

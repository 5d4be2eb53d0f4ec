package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// FakeElement is a scripted DOM element
type FakeElement struct {
	Text  string
	Attrs map[string]string
	HTML  string
	// Hidden elements are present but not visible
	Hidden bool
	// Dismiss hides the element once it is clicked
	Dismiss bool
}

// FakePage is a scripted page served for one URL
type FakePage struct {
	Title       string
	Elements    map[string]FakeElement
	NavigateErr error
	// Heights are successive document heights. Each scroll advances to the
	// next value and the last one repeats.
	Heights []int
}

// FakeProvider serves scripted pages without a real browser. It is safe for
// concurrent use by many workers.
type FakeProvider struct {
	mu    sync.Mutex
	pages map[string]*FakePage

	// AcquireHook, when set, is called with the 1-based acquire number and
	// may return an error to fail that acquisition.
	AcquireHook func(n int) error

	acquired  atomic.Int64
	closed    atomic.Int64
	navigated atomic.Int64
	scrolls   atomic.Int64
	clicks    atomic.Int64
	visits    sync.Map
}

// NewFakeProvider creates a provider with no pages
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{pages: make(map[string]*FakePage)}
}

// AddPage registers the page served for url
func (p *FakeProvider) AddPage(url string, page *FakePage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[url] = page
}

func (p *FakeProvider) page(url string) (*FakePage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pg, ok := p.pages[url]
	return pg, ok
}

// Acquire returns a new FakeSession unless AcquireHook fails it
func (p *FakeProvider) Acquire(ctx context.Context) (Session, error) {
	n := int(p.acquired.Add(1))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.AcquireHook != nil {
		if err := p.AcquireHook(n); err != nil {
			return nil, err
		}
	}
	return &FakeSession{provider: p, hidden: make(map[string]bool)}, nil
}

// Acquired counts Acquire calls, failed ones included
func (p *FakeProvider) Acquired() int { return int(p.acquired.Load()) }

// Closed counts sessions released with Close
func (p *FakeProvider) Closed() int { return int(p.closed.Load()) }

// Navigations counts Navigate calls across all sessions
func (p *FakeProvider) Navigations() int { return int(p.navigated.Load()) }

// Scrolls counts scroll-to-bottom scripts across all sessions
func (p *FakeProvider) Scrolls() int { return int(p.scrolls.Load()) }

// Clicks counts successful clicks across all sessions
func (p *FakeProvider) Clicks() int { return int(p.clicks.Load()) }

// Visits reports how many times url was navigated to
func (p *FakeProvider) Visits(url string) int {
	v, ok := p.visits.Load(url)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int64).Load())
}

// FakeSession is a Session over scripted pages. A session is used by one
// worker at a time.
type FakeSession struct {
	provider  *FakeProvider
	url       string
	page      *FakePage
	heightIdx int
	hidden    map[string]bool
	closed    bool
}

func (s *FakeSession) check(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("session closed")
	}
	return ctx.Err()
}

func (s *FakeSession) element(sel string) (FakeElement, error) {
	if s.page == nil {
		return FakeElement{}, fmt.Errorf("no page loaded")
	}
	el, ok := s.page.Elements[sel]
	if !ok {
		return FakeElement{}, fmt.Errorf("waiting for %q: %w", sel, context.DeadlineExceeded)
	}
	return el, nil
}

func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.provider.navigated.Add(1)
	counter, _ := s.provider.visits.LoadOrStore(url, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	pg, ok := s.provider.page(url)
	if !ok {
		return fmt.Errorf("navigate %s: net::ERR_NAME_NOT_RESOLVED", url)
	}
	if pg.NavigateErr != nil {
		return pg.NavigateErr
	}
	s.url = url
	s.page = pg
	s.heightIdx = 0
	s.hidden = make(map[string]bool)
	return nil
}

// WaitPresent fails at once for missing elements instead of blocking until
// the deadline.
func (s *FakeSession) WaitPresent(ctx context.Context, sel string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	_, err := s.element(sel)
	return err
}

func (s *FakeSession) WaitNotVisible(ctx context.Context, sel string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	el, err := s.element(sel)
	if err != nil {
		return nil
	}
	if el.Hidden || s.hidden[sel] {
		return nil
	}
	return fmt.Errorf("element %q still visible: %w", sel, context.DeadlineExceeded)
}

func (s *FakeSession) Click(ctx context.Context, sel string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	el, err := s.element(sel)
	if err != nil {
		return err
	}
	if el.Hidden || s.hidden[sel] {
		return fmt.Errorf("element %q not visible: %w", sel, context.DeadlineExceeded)
	}
	s.provider.clicks.Add(1)
	if el.Dismiss {
		s.hidden[sel] = true
	}
	return nil
}

func (s *FakeSession) Text(ctx context.Context, sel string) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	el, err := s.element(sel)
	return el.Text, err
}

func (s *FakeSession) Attribute(ctx context.Context, sel, name string) (string, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	el, err := s.element(sel)
	if err != nil {
		return "", false, err
	}
	v, ok := el.Attrs[name]
	return v, ok, nil
}

func (s *FakeSession) OuterHTML(ctx context.Context, sel string) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	el, err := s.element(sel)
	return el.HTML, err
}

// Evaluate understands the scroll scripts only
func (s *FakeSession) Evaluate(ctx context.Context, expr string, res interface{}) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.page == nil {
		return fmt.Errorf("no page loaded")
	}

	switch expr {
	case ScriptScrollToBottom:
		s.provider.scrolls.Add(1)
		if s.heightIdx < len(s.page.Heights)-1 {
			s.heightIdx++
		}
		return nil
	case ScriptScrollHeight:
		height := 0
		if len(s.page.Heights) > 0 {
			height = s.page.Heights[s.heightIdx]
		}
		switch r := res.(type) {
		case *int:
			*r = height
		case *int64:
			*r = int64(height)
		case *float64:
			*r = float64(height)
		case nil:
		default:
			return fmt.Errorf("unsupported result type %T", res)
		}
		return nil
	default:
		return fmt.Errorf("unsupported script %q", expr)
	}
}

func (s *FakeSession) Title(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if s.page == nil {
		return "", nil
	}
	return s.page.Title, nil
}

func (s *FakeSession) Location(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	return s.url, nil
}

// Screenshot returns a PNG signature so callers can write a file
func (s *FakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (s *FakeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.provider.closed.Add(1)
	return nil
}

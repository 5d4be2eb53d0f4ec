package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"shopscraper/pkg/config"
	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
)

// Desktop viewport so the shop serves its full product grid
const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// ChromeProvider starts one headless Chrome process per session
type ChromeProvider struct {
	cfg config.BrowserConfig
	log logger.Logger
}

// NewChromeProvider creates a provider using the given browser settings
func NewChromeProvider(cfg config.BrowserConfig, log logger.Logger) *ChromeProvider {
	if log == nil {
		log = logger.GetLogger()
	}
	logger.LogComponentStart(log, "browser", map[string]interface{}{
		"headless":   cfg.Headless,
		"no_sandbox": cfg.NoSandbox,
		"exec_path":  cfg.ExecPath,
	})
	return &ChromeProvider{cfg: cfg, log: log.WithField("component", "browser")}
}

func (p *ChromeProvider) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.cfg.Headless),
		chromedp.Flag("no-sandbox", p.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", p.cfg.DisableDevShm),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if p.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.cfg.UserAgent))
	}
	if p.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ExecPath))
	}
	return opts
}

// Acquire launches a fresh browser and verifies it responds. The session
// outlives ctx; ctx only bounds startup.
func (p *ChromeProvider) Acquire(ctx context.Context) (Session, error) {
	start := time.Now()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), p.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			p.log.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			p.log.Debug("cdp: " + fmt.Sprintf(format, args...))
		}),
	)

	abort := func() {
		browserCancel()
		allocCancel()
	}
	stop := context.AfterFunc(ctx, abort)
	defer stop()

	// The first Run allocates the browser, so it must not carry a timeout.
	if err := chromedp.Run(browserCtx); err != nil {
		abort()
		return nil, errors.Wrap(errors.ErrorTypeSession, "failed to start browser", err)
	}

	probeCtx, probeCancel := context.WithTimeout(browserCtx, p.cfg.StartupTimeout)
	defer probeCancel()
	err := chromedp.Run(probeCtx,
		chromedp.ActionFunc(func(c context.Context) error {
			return emulation.SetDeviceMetricsOverride(viewportWidth, viewportHeight, 1, false).Do(c)
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		abort()
		return nil, errors.Wrap(errors.ErrorTypeSession, "browser failed startup probe", err)
	}

	p.log.DebugWithFields("Browser session started", map[string]interface{}{
		"startup_time": time.Since(start),
		"headless":     p.cfg.Headless,
	})

	return &chromeSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type chromeSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
}

// run executes actions in the session tab, bounded by both the session
// lifetime and the caller's ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := scope(ctx, s.ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// scope derives a context from session that also ends when caller does
func scope(caller, session context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(session)
	if deadline, ok := caller.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithDeadline(ctx, deadline)
		parentCancel := cancel
		cancel = func() {
			cancelDeadline()
			parentCancel()
		}
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitPresent(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.WaitReady(sel))
}

func (s *chromeSession) WaitNotVisible(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.WaitNotVisible(sel))
}

func (s *chromeSession) Click(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.Click(sel, chromedp.NodeVisible))
}

func (s *chromeSession) Text(ctx context.Context, sel string) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Text(sel, &text))
	return text, err
}

func (s *chromeSession) Attribute(ctx context.Context, sel, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.run(ctx, chromedp.AttributeValue(sel, name, &value, &ok))
	return value, ok, err
}

func (s *chromeSession) OuterHTML(ctx context.Context, sel string) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML(sel, &html))
	return html, err
}

func (s *chromeSession) Evaluate(ctx context.Context, expr string, res interface{}) error {
	return s.run(ctx, chromedp.Evaluate(expr, res))
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *chromeSession) Location(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			Do(c)
		return err
	}))
	return buf, err
}

// Close shuts the browser down. Safe to call more than once.
func (s *chromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.ctx)
		s.browserCancel()
		s.allocCancel()
	})
	return err
}

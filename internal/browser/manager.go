package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"portalprobe/internal/faults"
)

// Config is the immutable configuration snapshot one session runs with.
type Config struct {
	PortalURL      string
	Bin            string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	// PageLoadTimeout bounds the initial portal load during Open.
	PageLoadTimeout time.Duration
	// NavigationTimeout bounds every later Navigate + load wait.
	NavigationTimeout time.Duration
	// ElementTimeout bounds every element lookup and stability wait.
	ElementTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		PageLoadTimeout:   60 * time.Second,
		NavigationTimeout: 30 * time.Second,
		ElementTimeout:    10 * time.Second,
	}
}

func (c Config) pageLoadTimeout() time.Duration {
	if c.PageLoadTimeout == 0 {
		return 60 * time.Second
	}
	return c.PageLoadTimeout
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeout == 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

func (c Config) elementTimeout() time.Duration {
	if c.ElementTimeout == 0 {
		return 10 * time.Second
	}
	return c.ElementTimeout
}

// ActiveSession is the engine-facing view of one open session.
type ActiveSession interface {
	Page() Page
	Close() error
}

// Opener opens sessions. The job adapter depends on this interface so
// validation failures can be proven to never open a session.
type Opener interface {
	Open(ctx context.Context) (ActiveSession, error)
}

// Manager launches one browser per job with anti-detection configuration.
type Manager struct {
	cfg Config
	log *zap.Logger
}

// NewManager creates a session manager.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	return &Manager{cfg: cfg, log: log.Named("browser")}
}

// maskAutomationJS hides the most common webdriver fingerprints before any
// portal script runs.
const maskAutomationJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	window.chrome = window.chrome || { runtime: {} };
	Object.defineProperty(navigator, 'languages', { get: () => ['en-GB', 'en'] });
}`

// Open launches the driver, applies the anti-detection flags, and loads the
// portal entry page. Any failure is an InitializationError; on failure nothing
// is left running.
func (m *Manager) Open(ctx context.Context) (ActiveSession, error) {
	cfg := m.cfg

	l := launcher.New().
		Headless(cfg.Headless).
		Set(flags.Flag("no-first-run")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("disable-infobars")).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight))
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &faults.InitializationError{Err: fmt.Errorf("launch driver: %w", err)}
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		l.Cleanup()
		return nil, &faults.InitializationError{Err: fmt.Errorf("connect driver: %w", err)}
	}

	sess := &Session{
		cfg:      cfg,
		log:      m.log,
		browser:  br,
		launcher: l,
	}

	page, err := br.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = sess.Close()
		return nil, &faults.InitializationError{Err: fmt.Errorf("open page: %w", err)}
	}
	sess.page = page

	if _, err := page.EvalOnNewDocument(maskAutomationJS); err != nil {
		m.log.Warn("failed to install automation mask", zap.Error(err))
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		m.log.Warn("failed to set viewport", zap.Error(err))
	}

	if cfg.PortalURL != "" {
		pg := page.Context(ctx).Timeout(cfg.pageLoadTimeout())
		if err := pg.Navigate(cfg.PortalURL); err != nil {
			_ = sess.Close()
			return nil, &faults.InitializationError{Err: fmt.Errorf("portal unreachable: %w", err)}
		}
		if err := pg.WaitLoad(); err != nil {
			_ = sess.Close()
			return nil, &faults.InitializationError{Err: fmt.Errorf("portal load timed out: %w", err)}
		}
	}

	m.log.Info("session opened", zap.String("portal", cfg.PortalURL), zap.Bool("headless", cfg.Headless))
	return sess, nil
}

// Session wraps one exclusively-owned driver handle plus its config snapshot.
type Session struct {
	cfg      Config
	log      *zap.Logger
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// Page returns the engine-facing page for this session.
func (s *Session) Page() Page {
	return &rodPage{
		page:        s.page,
		navTimeout:  s.cfg.navigationTimeout(),
		elemTimeout: s.cfg.elementTimeout(),
	}
}

// Close releases the driver process and its temporary profile storage. It is
// idempotent; every call after the first is a no-op returning nil.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Cleanup()
		}
		s.log.Info("session closed")
	})
	return s.closeErr
}

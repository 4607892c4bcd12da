// Package browserutil owns the lifetime of the single automated Chrome
// process shared by every scrape operation. The target portal blocks
// headless automation signatures, so the browser runs headful with the
// usual automation markers stripped and a stealth script injected into
// every page before navigation.
package browserutil

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

var ErrLaunchFailed = fmt.Errorf("failed to launch browser")

type Config struct {
	// Headless should stay false for portals that detect headless
	// Chrome; it exists so tests and cooperative targets can flip it.
	Headless bool   `json:"headless"`
	Bin      string `json:"bin"`
	// UserAgent overrides the automation default. Empty keeps the
	// browser's own UA string.
	UserAgent      string `json:"user_agent"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1366
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 768
	}
}

// Session lazily launches one browser process and hands it out to
// callers. At most one browser is alive per Session; Acquire reuses it
// while it responds to a liveness probe and relaunches otherwise.
type Session struct {
	cfg  Config
	turn TurnQueue

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func NewSession(cfg Config) *Session {
	cfg.defaults()
	return &Session{cfg: cfg}
}

func (s *Session) Acquire(ctx context.Context) (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		_, err := proto.BrowserGetVersion{}.Call(s.browser)
		if err == nil {
			return s.browser, nil
		}
		slog.WarnContext(ctx, "browser liveness probe failed, relaunching", "err", err)
		s.teardownLocked()
	}

	browser, lnch, err := s.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLaunchFailed, err.Error())
	}
	s.browser = browser
	s.lnch = lnch
	return browser, nil
}

// Release closes and discards the browser process. Safe to call
// multiple times and while no browser exists.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	if s.browser != nil {
		err := s.browser.Close()
		if err != nil {
			slog.Warn("failed to close browser", "err", err)
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch = nil
	}
}

// WithExclusiveTurn runs op while holding the session's FIFO turn.
// Only one op interacts with the browser at a time; a second caller
// blocks until the first fully completes, including its cleanup.
func (s *Session) WithExclusiveTurn(op func() error) error {
	s.turn.Wait()
	defer s.turn.Release()
	return op()
}

func (s *Session) launch(ctx context.Context) (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Headless(s.cfg.Headless).
		Leakless(true)
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}

	// strip the fingerprints legacy portals actually check for
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-infobars"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-default-browser-check"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", s.cfg.ViewportWidth, s.cfg.ViewportHeight))

	controlUrl, err := l.Launch()
	if err != nil {
		return nil, nil, err
	}

	browser := rod.New().Context(ctx).ControlURL(controlUrl)
	err = browser.Connect()
	if err != nil {
		l.Kill()
		return nil, nil, err
	}

	slog.InfoContext(ctx, "browser launched", "headless", s.cfg.Headless)
	return browser, l, nil
}

// Page opens a fresh tab with the stealth script, user agent override
// and viewport applied before any navigation happens. Ordering matters:
// the stealth script only affects documents loaded after injection.
func (s *Session) Page(ctx context.Context) (*rod.Page, error) {
	browser, err := s.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	page = page.Context(ctx)

	_, err = page.EvalOnNewDocument(stealth.JS)
	if err != nil {
		slog.WarnContext(ctx, "stealth injection failed, proceeding without it", "err", err)
	}
	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: s.cfg.UserAgent,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to override user agent", "err", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to set viewport", "err", err)
	}

	return page, nil
}

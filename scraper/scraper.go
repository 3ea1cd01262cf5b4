package scraper

import (
	"log/slog"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/models"
)

// RodSession is the go-rod implementation of Session: one browser, one page.
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter
	cfg     config.BrowserConfig
	logger  *slog.Logger
}

// NewRodSession launches a browser and opens the single page all searches
// run in.
func NewRodSession(cfg config.BrowserConfig, logger *slog.Logger) (*RodSession, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), "1920,1080")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	logger.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	s := &RodSession{
		browser: browser,
		page:    page,
		cfg:     cfg,
		logger:  logger,
	}

	_ = proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}.Call(page)

	// Stealth and headers must be in place before the first navigation.
	if cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			logger.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	if cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": cfg.AcceptLanguage}),
		}.Call(page)
	}

	s.router = setupHijack(page, cfg.BlockedResourceTypes)

	if cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(cfg.ScreenshotDir, 0o755); err != nil {
			logger.Warn("screenshot dir unavailable", "dir", cfg.ScreenshotDir, "error", err)
		}
	}

	return s, nil
}

// Alive reports whether the browser still answers protocol calls.
func (s *RodSession) Alive() bool {
	_, err := proto.BrowserGetVersion{}.Call(s.browser)
	return err == nil
}

// Close stops the hijack router and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *RodSession) Close() error {
	s.logger.Info("session shutting down: closing browser")
	if s.router != nil {
		_ = s.router.Stop()
	}
	err := s.browser.Close()
	s.logger.Info("session shutdown complete")
	return err
}

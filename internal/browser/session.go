package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sorteops/relatorio/internal/config"
	"go.uber.org/zap"
)

var (
	ErrAuth       = errors.New("auth_failed")
	ErrNavigation = errors.New("navigation_failed")
)

const (
	onboardingWait  = 5 * time.Second
	interactiveWait = 10 * time.Second
)

type Credentials struct {
	Email    string
	Password string
}

// Target is a navigation destination inside the panel, kept as data so the
// orchestrator declares where to go instead of how.
type Target struct {
	Name string
	Expr string // XPath of the control that must become interactable
}

// DrawsMenu opens the raffle listing from the side menu.
var DrawsMenu = Target{
	Name: "sorteios",
	Expr: `//*[@id="root"]/div/div/div/div/div/div/div[1]/div[2]/div/div/div/div[2]/ul[1]/div[2]/div[2]/span`,
}

// Session owns one authenticated browser-automation session against the
// panel. All waits are bounded; nothing here blocks indefinitely.
type Session struct {
	cfg config.Config
	log *zap.Logger

	ctx     context.Context
	cancels []context.CancelFunc
}

func NewSession(cfg config.Config, log *zap.Logger) *Session {
	return &Session{
		cfg: cfg,
		log: log.Named("browser.session"),
	}
}

// Establish starts the browser, logs in, dismisses the onboarding popup and
// clears blocking overlays. Missing or rejected credentials fail with
// ErrAuth.
func (s *Session) Establish(ctx context.Context, creds Credentials) error {
	if creds.Email == "" || creds.Password == "" {
		return fmt.Errorf("%w: missing login credentials", ErrAuth)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(s.cfg)...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	s.ctx = taskCtx
	s.cancels = []context.CancelFunc{cancelTask, cancelAlloc}

	err := s.run(60*time.Second,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(s.cfg.DownloadDir).
			WithEventsEnabled(true),
		chromedp.Navigate(s.cfg.PanelURL),
		chromedp.WaitVisible(`input[name="email"]`, chromedp.ByQuery),
		// the panel fires window.print on some screens, neuter it
		chromedp.Evaluate(`window.print = function(){};`, nil),
		chromedp.SendKeys(`input[name="email"]`, creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, creds.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		s.Close()
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	// login either lands on the app shell or leaves the form in place
	if err := s.run(interactiveWait, chromedp.WaitNotPresent(`input[name="password"]`, chromedp.ByQuery)); err != nil {
		s.Close()
		return fmt.Errorf("%w: credentials rejected", ErrAuth)
	}

	s.dismissOnboarding()
	s.clearOverlays()
	return nil
}

// Navigate clicks through to a target, failing with ErrNavigation when the
// control never becomes interactable within the bounded wait.
func (s *Session) Navigate(target Target) error {
	err := s.run(interactiveWait,
		chromedp.WaitVisible(target.Expr, chromedp.BySearch),
		chromedp.ScrollIntoView(target.Expr, chromedp.BySearch),
		// JS click: overlays intercept pointer events on this panel
		chromedp.Evaluate(clickByXPath(target.Expr), nil),
	)
	if err != nil {
		return fmt.Errorf("%w: %s not interactable: %v", ErrNavigation, target.Name, err)
	}
	s.log.Info("navigated", zap.String("target", target.Name))
	return nil
}

// ForceDownloadClick programmatically activates any visible
// download-capable element. Used as the watcher's active-trigger fallback.
func (s *Session) ForceDownloadClick(ctx context.Context) error {
	_ = ctx
	return s.run(5*time.Second, chromedp.Evaluate(forceDownloadJS, nil))
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// dismissOnboarding closes the "Entendi" dialog when it shows up. Its
// absence is expected and never an error.
func (s *Session) dismissOnboarding() {
	err := s.run(onboardingWait,
		chromedp.Click(`//button[normalize-space(text())='Entendi']`, chromedp.BySearch),
		chromedp.WaitNotPresent(`div.MuiDialog-container`, chromedp.ByQuery),
	)
	if err != nil {
		s.log.Info("onboarding popup not shown")
		return
	}
	s.log.Info("onboarding popup dismissed")
}

// clearOverlays sends Escape a few times and then force-removes any backdrop
// still intercepting clicks. The panel's overlays do not reliably close on
// ordinary interaction.
func (s *Session) clearOverlays() {
	err := s.run(interactiveWait,
		chromedp.KeyEvent(kb.Escape),
		chromedp.KeyEvent(kb.Escape),
		chromedp.KeyEvent(kb.Escape),
		chromedp.Evaluate(removeBackdropsJS, nil),
	)
	if err != nil {
		s.log.Warn("overlay cleanup failed", zap.Error(err))
		return
	}
	s.log.Info("overlays removed")
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	if s.ctx == nil {
		return errors.New("session not established")
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func allocatorOptions(cfg config.Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	return opts
}

func clickByXPath(expr string) string {
	return fmt.Sprintf(
		`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue.click();`,
		expr,
	)
}

const removeBackdropsJS = `
document.querySelectorAll('div.MuiBackdrop-root').forEach(function(backdrop){
	if (backdrop.style.opacity !== '0') {
		backdrop.remove();
	}
});`

const forceDownloadJS = `
(function(){
	var links = document.querySelectorAll('a[href*=".csv"], a[download], button[onclick*="download"]');
	for (var i = 0; i < links.length; i++) {
		if (links[i].href && (links[i].href.includes('download') || links[i].href.includes('.csv'))) {
			links[i].click();
			return;
		}
	}
})();`

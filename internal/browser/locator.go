package browser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var (
	ErrEditionNotFound = errors.New("edition_not_found")
	ErrTitleCapture    = errors.New("title_capture_failed")
)

const (
	searchInput    = `input[placeholder*="Pesquisar"]`
	purchasesBtn   = `//button[@aria-label='Compras']`
	salesReportOpt = `//li[contains(., 'Relatório de Vendas')]`
	minTitleLen    = 10
)

// titleStrategies is the ordered list of extraction attempts, from the exact
// structural path down to increasingly generic selectors. A dialog heading is
// the last resort: with a dialog open it matches text that is not the report
// title. New panel layouts get a new entry, not new code.
var titleStrategies = []struct {
	name string
	expr string
}{
	{"structural_path", `//*[@id="root"]/div/main/div/div/div[2]/div[1]/div[1]/div/div/div[1]/div[2]/div/div/div/div/div/div/div/div[1]/div/div[1]/div/h4`},
	{"typography_h4", `//h4[contains(@class,'MuiTypography')]`},
	{"grid_heading", `//div[contains(@class,'MuiGrid')]//h4`},
	{"any_h4", `//h4`},
	{"dialog_heading", `//div[@role='dialog']//h4`},
}

// Locator drives edition search and report-title capture on an established
// session.
type Locator struct {
	session *Session
	log     *zap.Logger
}

func NewLocator(session *Session, log *zap.Logger) *Locator {
	return &Locator{
		session: session,
		log:     log.Named("browser.locator"),
	}
}

// Search filters the raffle listing by edition id and opens the sales-report
// view for it. An edition the panel does not know yields ErrEditionNotFound:
// the listing renders no purchases control for it.
func (l *Locator) Search(editionID int64) error {
	id := strconv.FormatInt(editionID, 10)

	err := l.session.run(interactiveWait,
		chromedp.WaitVisible(searchInput, chromedp.ByQuery),
		chromedp.Click(searchInput, chromedp.ByQuery),
		// stale text lingers between searches, wipe it at both levels
		chromedp.SetValue(searchInput, "", chromedp.ByQuery),
		chromedp.Evaluate(resetSearchJS, nil),
		chromedp.SendKeys(searchInput, id, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: search field: %v", ErrNavigation, err)
	}

	if err := l.session.run(15*time.Second, chromedp.WaitVisible(purchasesBtn, chromedp.BySearch)); err != nil {
		return fmt.Errorf("%w: edition %s has no purchases control", ErrEditionNotFound, id)
	}

	err = l.session.run(interactiveWait,
		chromedp.Evaluate(clickByXPath(purchasesBtn), nil),
		chromedp.WaitVisible(salesReportOpt, chromedp.BySearch),
		chromedp.Evaluate(clickByXPath(salesReportOpt), nil),
	)
	if err != nil {
		return fmt.Errorf("%w: sales report option: %v", ErrNavigation, err)
	}
	l.log.Info("sales report opened", zap.String("edition", id))
	return nil
}

// ExtractTitle walks the strategy list and returns the first plausible
// report title. Fragments shorter than the validity floor are rejected so a
// stray heading cannot masquerade as a title.
func (l *Locator) ExtractTitle() (string, error) {
	for _, strat := range titleStrategies {
		var text string
		err := l.session.run(3*time.Second, chromedp.Text(strat.expr, &text, chromedp.BySearch))
		if err != nil {
			continue
		}
		title := strings.TrimSpace(text)
		if !titleValid(title) {
			l.log.Debug("title candidate rejected",
				zap.String("strategy", strat.name),
				zap.String("text", title),
			)
			continue
		}
		l.log.Info("title captured",
			zap.String("strategy", strat.name),
			zap.String("title", title),
		)
		return title, nil
	}
	return "", fmt.Errorf("%w: no strategy produced a usable title", ErrTitleCapture)
}

func titleValid(title string) bool {
	return len(title) > minTitleLen
}

const resetSearchJS = `
(function(){
	var field = document.querySelector('input[placeholder*="Pesquisar"]');
	if (field) {
		field.value = '';
		field.dispatchEvent(new Event('input', { bubbles: true }));
	}
})();`

// Package toto is the site adapter for the toto-dream betting site. All site
// literals (URL markers, selectors, Japanese button labels) live here; the
// engine above it only sees the abstract capability set.
package toto

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/site"
)

// StartURL is the toto top page a fresh run navigates to.
const StartURL = "https://www.toto-dream.com/toto/index.html"

// URL fragments identifying the site's pages.
const (
	markerVoteSheet = "PGSPSL00001MoveSingleVoteSheet"
	markerRoundInfo = "PGSPIN00001DisptotoLotInfo"
	markerTopPage   = "/toto/index.html"
)

// addVotesLabel is the cart page's "add another toto bet" button text.
const addVotesLabel = "totoの投票を追加する"

// overlaySelectors are probed in order when looking for a blocking modal.
var overlaySelectors = []string{
	".modal-cont-wrap",
	".modal-dialog",
	".modal",
	"[role='dialog']",
	".modal-backdrop",
}

// closeSelectors are preferred dismissal targets inside a detected modal.
var closeSelectors = []string{
	".modal-close",
	".modal .close",
	".modal-header .close",
	"button[data-dismiss='modal']",
}

var roundPattern = regexp.MustCompile(`^第\d+回$`)

// Adapter implements site.Adapter and site.Session against one live tab.
type Adapter struct {
	logger *zap.Logger

	mu         sync.Mutex
	dialogText string
	dialogOpen bool
}

// New installs the JS-dialog listener on the tab context and returns the
// adapter. tabCtx must be a chromedp context; it is only used for listening,
// every method takes its own ctx.
func New(tabCtx context.Context, logger *zap.Logger) *Adapter {
	a := &Adapter{logger: logger.Named("toto")}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if dialog, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			a.mu.Lock()
			a.dialogText = dialog.Message
			a.dialogOpen = true
			a.mu.Unlock()
			a.logger.Info("JavaScript dialog opened", zap.String("message", dialog.Message))
		}
	})
	return a
}

// Navigate drives the session to url and waits for the body to be ready.
func (a *Adapter) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// ClassifyPage maps the current URL (and, for the cart page, the DOM) onto a
// page kind.
func (a *Adapter) ClassifyPage(ctx context.Context) (site.PageKind, error) {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return site.PageUnknown, fmt.Errorf("reading location: %w", err)
	}

	lower := strings.ToLower(url)
	switch {
	case strings.Contains(url, markerVoteSheet):
		return site.PageForm, nil
	case strings.Contains(url, markerRoundInfo), strings.Contains(url, markerTopPage):
		return site.PageRoundSelect, nil
	case strings.Contains(lower, "login"):
		return site.PageLogin, nil
	}

	// The cart page has no stable URL marker; probe for its add-votes button.
	var hasAddButton bool
	expr := fmt.Sprintf(`document.body ? document.body.innerText.includes(%q) : false`, addVotesLabel)
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &hasAddButton)); err != nil {
		return site.PageUnknown, fmt.Errorf("probing cart page: %w", err)
	}
	if hasAddButton {
		return site.PageCart, nil
	}

	// A grid of vote checkboxes also means the form, whatever the URL says.
	var hasGrid bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(
		`document.querySelector("input[name^='chkbox_']") !== null`, &hasGrid)); err != nil {
		return site.PageUnknown, fmt.Errorf("probing vote grid: %w", err)
	}
	if hasGrid {
		return site.PageForm, nil
	}
	return site.PageUnknown, nil
}

// Resolve waits up to timeout for the locator to match a ready element.
func (a *Adapter) Resolve(ctx context.Context, loc site.Locator, timeout time.Duration) (site.Element, error) {
	el, err := newElement(loc)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(el.sel, el.by)); err != nil {
		return nil, fmt.Errorf("%w: %s %q within %s", site.ErrElementNotFound, loc.Kind, loc.Value, timeout)
	}
	return el, nil
}

// DetectBlockingOverlay probes the known modal selectors for a visible match
// and returns a dismissal target: a close button inside the modal when one
// exists, the modal itself otherwise.
func (a *Adapter) DetectBlockingOverlay(ctx context.Context) (site.Element, bool, error) {
	visible := func(sel string) (bool, error) {
		var ok bool
		expr := fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); return el !== null && el.offsetParent !== null; })()`,
			sel)
		if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
			return false, err
		}
		return ok, nil
	}

	for _, overlaySel := range overlaySelectors {
		ok, err := visible(overlaySel)
		if err != nil {
			return nil, false, fmt.Errorf("probing overlay %q: %w", overlaySel, err)
		}
		if !ok {
			continue
		}
		a.logger.Debug("Blocking overlay found", zap.String("selector", overlaySel))

		for _, closeSel := range closeSelectors {
			if ok, err := visible(closeSel); err == nil && ok {
				el, _ := newElement(site.CSS(closeSel))
				return el, true, nil
			}
		}
		el, _ := newElement(site.CSS(overlaySel))
		return el, true, nil
	}
	return nil, false, nil
}

// ReadAvailableRounds scrapes the round links currently offered.
func (a *Adapter) ReadAvailableRounds(ctx context.Context) ([]site.RoundID, error) {
	var texts []string
	expr := fmt.Sprintf(
		`Array.from(document.querySelectorAll("a[href*='%s'], a[onclick*='AlertNoVote']"))
			.map(a => (a.textContent || '').trim())`,
		markerRoundInfo)
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, fmt.Errorf("scraping round links: %w", err)
	}

	seen := make(map[string]bool)
	var rounds []site.RoundID
	for _, t := range texts {
		if !roundPattern.MatchString(t) || seen[t] {
			continue
		}
		seen[t] = true
		rounds = append(rounds, site.RoundID(t))
	}
	a.logger.Info("Detected rounds", zap.Int("count", len(rounds)))
	return rounds, nil
}

// -- site.Session --

// CurrentURL returns the tab's current location.
func (a *Adapter) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return url, nil
}

// ActiveDialog reports an unhandled JavaScript dialog.
func (a *Adapter) ActiveDialog(context.Context) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dialogText, a.dialogOpen
}

// HandleDialog accepts or dismisses the open dialog.
func (a *Adapter) HandleDialog(ctx context.Context, accept bool) error {
	if err := chromedp.Run(ctx, page.HandleJavaScriptDialog(accept)); err != nil {
		return fmt.Errorf("handling dialog: %w", err)
	}
	a.mu.Lock()
	a.dialogOpen = false
	a.dialogText = ""
	a.mu.Unlock()
	return nil
}

// CaptureScreenshot writes a viewport screenshot to path.
func (a *Adapter) CaptureScreenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing screenshot %s: %w", path, err)
	}
	a.logger.Debug("Screenshot saved", zap.String("path", path))
	return nil
}

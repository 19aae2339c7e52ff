package toto

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/hokutoh/formloop/pkg/site"
)

// element binds a locator to a chromedp selector pair. The click variants map
// onto the dismissal arsenal: native click, scripted click, CDP pointer click,
// and a synthetic MouseEvent at the element center.
type element struct {
	loc site.Locator
	sel string
	by  chromedp.QueryOption
}

func newElement(loc site.Locator) (*element, error) {
	switch loc.Kind {
	case site.ByCSS:
		return &element{loc: loc, sel: loc.Value, by: chromedp.ByQuery}, nil
	case site.ByID:
		return &element{loc: loc, sel: "#" + loc.Value, by: chromedp.ByQuery}, nil
	case site.ByName:
		return &element{loc: loc, sel: fmt.Sprintf("[name=%q]", loc.Value), by: chromedp.ByQuery}, nil
	case site.ByXPath:
		return &element{loc: loc, sel: loc.Value, by: chromedp.BySearch}, nil
	default:
		return nil, fmt.Errorf("unsupported locator kind %q", loc.Kind)
	}
}

// jsRef is a JS expression evaluating to the element, or null.
func (e *element) jsRef() string {
	if e.loc.Kind == site.ByXPath {
		return fmt.Sprintf(
			`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			e.sel)
	}
	return fmt.Sprintf(`document.querySelector(%q)`, e.sel)
}

func (e *element) Click(ctx context.Context) error {
	if err := chromedp.Run(ctx, chromedp.Click(e.sel, e.by)); err != nil {
		return fmt.Errorf("clicking %q: %w", e.sel, err)
	}
	return nil
}

func (e *element) ClickViaScript(ctx context.Context) error {
	expr := fmt.Sprintf(
		`(() => { const el = %s; if (!el) return false; el.click(); return true; })()`,
		e.jsRef())
	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return fmt.Errorf("script click on %q: %w", e.sel, err)
	}
	if !clicked {
		return fmt.Errorf("script click on %q: %w", e.sel, site.ErrElementNotFound)
	}
	return nil
}

// ClickWithPointer drives the click through CDP input events rather than the
// DOM, which gets past handlers that ignore untrusted events.
func (e *element) ClickWithPointer(ctx context.Context) error {
	x, y, err := e.center(ctx)
	if err != nil {
		return err
	}
	err = chromedp.Run(ctx,
		input.DispatchMouseEvent(input.MouseMoved, x, y),
		input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1),
		input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).WithClickCount(1),
	)
	if err != nil {
		return fmt.Errorf("pointer click on %q: %w", e.sel, err)
	}
	return nil
}

// ClickAtCenter dispatches a synthetic MouseEvent at the element's own center
// coordinates, the last-ditch variant for stubborn targets.
func (e *element) ClickAtCenter(ctx context.Context) error {
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		const r = el.getBoundingClientRect();
		el.dispatchEvent(new MouseEvent('click', {
			bubbles: true, cancelable: true, view: window,
			clientX: r.left + r.width / 2, clientY: r.top + r.height / 2,
		}));
		return true;
	})()`, e.jsRef())
	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return fmt.Errorf("center click on %q: %w", e.sel, err)
	}
	if !clicked {
		return fmt.Errorf("center click on %q: %w", e.sel, site.ErrElementNotFound)
	}
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := chromedp.Run(ctx, chromedp.ScrollIntoView(e.sel, e.by)); err != nil {
		return fmt.Errorf("scrolling %q into view: %w", e.sel, err)
	}
	return nil
}

func (e *element) SetText(ctx context.Context, value string) error {
	err := chromedp.Run(ctx,
		chromedp.Clear(e.sel, e.by),
		chromedp.SendKeys(e.sel, value, e.by),
	)
	if err != nil {
		return fmt.Errorf("setting text on %q: %w", e.sel, err)
	}
	return nil
}

// Selected reports the checked state for checkboxes and radios.
func (e *element) Selected(ctx context.Context) (bool, error) {
	expr := fmt.Sprintf(`(() => { const el = %s; return el ? el.checked === true : false; })()`, e.jsRef())
	var checked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &checked)); err != nil {
		return false, fmt.Errorf("reading checked state of %q: %w", e.sel, err)
	}
	return checked, nil
}

func (e *element) center(ctx context.Context) (float64, float64, error) {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(e.sel, &nodes, e.by, chromedp.AtLeast(1))); err != nil {
		return 0, 0, fmt.Errorf("locating %q: %w", e.sel, err)
	}
	var box *dom.BoxModel
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return 0, 0, fmt.Errorf("box model of %q: %w", e.sel, err)
	}
	x, y, err := boxCenter(box)
	if err != nil {
		return 0, 0, fmt.Errorf("box model of %q: %w", e.sel, err)
	}
	return x, y, nil
}

var errEmptyBoxModel = errors.New("empty box model")

// boxCenter computes the content-quad midpoint. DevTools reports a nil or
// truncated box for detached nodes without raising a protocol error.
func boxCenter(box *dom.BoxModel) (float64, float64, error) {
	if box == nil || len(box.Content) < 8 {
		return 0, 0, errEmptyBoxModel
	}
	x := (box.Content[0] + box.Content[4]) / 2
	y := (box.Content[1] + box.Content[5]) / 2
	return x, y, nil
}

// Package site defines the capability set a target website must provide to
// the replay and orchestration engines. The core never embeds site-specific
// selectors or URLs; one Adapter implementation exists per target site.
package site

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned by Resolve when a locator cannot be
// resolved to a live element within its timeout.
var ErrElementNotFound = errors.New("element not found")

// PageKind classifies the page a live session is currently showing.
type PageKind string

const (
	PageUnknown      PageKind = "unknown"
	PageLogin        PageKind = "login"
	PageRoundSelect  PageKind = "round_select"
	PageForm         PageKind = "form"
	PageCart         PageKind = "cart"
	PageConfirmation PageKind = "confirmation"
)

// LocatorKind selects the lookup strategy for a Locator.
type LocatorKind string

const (
	ByCSS   LocatorKind = "css"
	ByXPath LocatorKind = "xpath"
	ByName  LocatorKind = "name"
	ByID    LocatorKind = "id"
)

// Locator is an opaque, serializable reference to an element on the target
// site. The engine passes it through to the Adapter without interpretation.
type Locator struct {
	Kind  LocatorKind `json:"kind"`
	Value string      `json:"value"`
}

// CSS builds a CSS locator.
func CSS(sel string) Locator { return Locator{Kind: ByCSS, Value: sel} }

// XPath builds an XPath locator.
func XPath(expr string) Locator { return Locator{Kind: ByXPath, Value: expr} }

// Name builds a locator matching an element's name attribute.
func Name(name string) Locator { return Locator{Kind: ByName, Value: name} }

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool { return l.Value == "" }

// RoundID identifies one betting round offered by the site.
type RoundID string

// Element is a resolved handle to a live page element. The method set covers
// the effects the player performs plus the primitives the overlay dismissal
// strategies are built from.
type Element interface {
	// Click performs a plain, driver-level click.
	Click(ctx context.Context) error
	// ClickViaScript clicks through injected script, bypassing hit testing.
	ClickViaScript(ctx context.Context) error
	// ClickWithPointer moves a synthetic pointer to the element's center and
	// presses/releases, mimicking a real input path.
	ClickWithPointer(ctx context.Context) error
	// ClickAtCenter dispatches a synthetic MouseEvent at the element's
	// bounding-box center coordinates.
	ClickAtCenter(ctx context.Context) error
	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView(ctx context.Context) error
	// SetText clears the element and types the given value.
	SetText(ctx context.Context, value string) error
	// Selected reports the checked state of a checkbox or radio element.
	Selected(ctx context.Context) (bool, error)
}

// Adapter supplies page-detection predicates and element lookups for one
// specific target site.
type Adapter interface {
	// ClassifyPage inspects the live session and reports what kind of page
	// it is currently showing.
	ClassifyPage(ctx context.Context) (PageKind, error)

	// Resolve looks up a locator, waiting up to timeout for the element to
	// appear. Returns ErrElementNotFound (possibly wrapped) when it does not.
	Resolve(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)

	// DetectBlockingOverlay reports whether a modal or overlay is blocking
	// interaction, returning the blocking element when one is present so a
	// dismissal strategy has a target.
	DetectBlockingOverlay(ctx context.Context) (Element, bool, error)

	// ReadAvailableRounds scrapes the rounds currently open for betting.
	ReadAvailableRounds(ctx context.Context) ([]RoundID, error)
}

// Session exposes page-global observations the player needs that are not
// tied to a single element.
type Session interface {
	// CurrentURL returns the session's current location.
	CurrentURL(ctx context.Context) (string, error)

	// ActiveDialog returns the text of an unhandled JavaScript dialog, if one
	// is open.
	ActiveDialog(ctx context.Context) (string, bool)

	// HandleDialog accepts or dismisses the open JavaScript dialog.
	HandleDialog(ctx context.Context, accept bool) error

	// CaptureScreenshot writes a full-viewport screenshot to path.
	CaptureScreenshot(ctx context.Context, path string) error
}

// Package overlay dismisses blocking modals and dialogs by trying an ordered
// list of named click strategies until one lands.
package overlay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/site"
)

// ErrUnresolved is returned when every strategy in the list has failed.
var ErrUnresolved = errors.New("overlay could not be dismissed")

// Strategy is one named way of clicking a dismissal target.
type Strategy struct {
	Name    string
	Dismiss func(ctx context.Context, el site.Element) error
}

// DefaultStrategies returns the standard ordered list. Escalation order runs
// from the cheapest, most honest click to fully synthetic event dispatch.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name: "direct_click",
			Dismiss: func(ctx context.Context, el site.Element) error {
				return el.Click(ctx)
			},
		},
		{
			Name: "scroll_and_click",
			Dismiss: func(ctx context.Context, el site.Element) error {
				if err := el.ScrollIntoView(ctx); err != nil {
					return err
				}
				return el.Click(ctx)
			},
		},
		{
			Name: "script_click",
			Dismiss: func(ctx context.Context, el site.Element) error {
				return el.ClickViaScript(ctx)
			},
		},
		{
			Name: "pointer_click",
			Dismiss: func(ctx context.Context, el site.Element) error {
				return el.ClickWithPointer(ctx)
			},
		},
		{
			Name: "coordinate_click",
			Dismiss: func(ctx context.Context, el site.Element) error {
				return el.ClickAtCenter(ctx)
			},
		},
	}
}

// Dismiss tries each strategy in order against el and returns the name of the
// one that succeeded. All failing yields ErrUnresolved.
func Dismiss(ctx context.Context, logger *zap.Logger, el site.Element, strategies []Strategy) (string, error) {
	if len(strategies) == 0 {
		return "", fmt.Errorf("%w: no strategies configured", ErrUnresolved)
	}
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := s.Dismiss(ctx, el); err != nil {
			logger.Debug("Dismissal strategy failed",
				zap.String("strategy", s.Name),
				zap.Error(err))
			continue
		}
		logger.Info("Overlay dismissed", zap.String("strategy", s.Name))
		return s.Name, nil
	}
	return "", fmt.Errorf("%w: exhausted %d strategies", ErrUnresolved, len(strategies))
}

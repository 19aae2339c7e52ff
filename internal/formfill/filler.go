// Package formfill applies batch rows to the betting sheet's checkbox grid.
// The grid maps one checkbox to each (set, game, value) triple; filling a
// batch is a per-row, per-column value-to-element walk.
package formfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/batch"
	"github.com/hokutoh/formloop/pkg/site"
)

// FillError reports which cell of the grid could not be applied.
type FillError struct {
	Row    int // 1-based set index within the batch
	Column int // 1-based game index
	Err    error
}

func (e *FillError) Error() string {
	return fmt.Sprintf("fill row %d column %d: %v", e.Row, e.Column, e.Err)
}

func (e *FillError) Unwrap() error { return e.Err }

// GridFiller checks grid checkboxes through the site adapter.
type GridFiller struct {
	adapter     site.Adapter
	logger      *zap.Logger
	cellTimeout time.Duration
}

// NewGridFiller creates a filler with the given per-cell resolve timeout.
func NewGridFiller(adapter site.Adapter, logger *zap.Logger, cellTimeout time.Duration) *GridFiller {
	if cellTimeout <= 0 {
		cellTimeout = 5 * time.Second
	}
	return &GridFiller{
		adapter:     adapter,
		logger:      logger.Named("formfill"),
		cellTimeout: cellTimeout,
	}
}

// checkboxName derives the grid checkbox's name attribute. The set index
// comes first, then the game index, then the predicted value.
func checkboxName(setIdx, gameIdx, value int) string {
	return fmt.Sprintf("chkbox_%d_%d_%d", setIdx, gameIdx, value)
}

// FillBatch applies every row of the batch to the grid, always starting from
// the batch's first row. Any cell failure aborts the whole batch.
func (f *GridFiller) FillBatch(ctx context.Context, b batch.Batch) error {
	f.logger.Info("Filling checkbox grid",
		zap.Int("batch", b.Index+1),
		zap.Int("rows", len(b.Rows)))

	for setIdx, row := range b.Rows {
		for gameIdx, value := range row {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.checkCell(ctx, setIdx, gameIdx, value); err != nil {
				return &FillError{Row: setIdx + 1, Column: gameIdx + 1, Err: err}
			}
		}
		f.logger.Debug("Row applied", zap.Int("set", setIdx+1))
	}
	return nil
}

// checkCell resolves one checkbox by name and ensures it ends up checked.
// Already-checked boxes are left alone so refills stay idempotent.
func (f *GridFiller) checkCell(ctx context.Context, setIdx, gameIdx, value int) error {
	name := checkboxName(setIdx, gameIdx, value)
	el, err := f.adapter.Resolve(ctx, site.Name(name), f.cellTimeout)
	if err != nil {
		return fmt.Errorf("checkbox %s: %w", name, err)
	}

	checked, err := el.Selected(ctx)
	if err != nil {
		return fmt.Errorf("checkbox %s state: %w", name, err)
	}
	if checked {
		return nil
	}

	if err := el.ScrollIntoView(ctx); err != nil {
		f.logger.Debug("Scroll before click failed", zap.String("checkbox", name), zap.Error(err))
	}
	if err := el.Click(ctx); err != nil {
		// Hit-test misses on partially covered checkboxes; the script path
		// toggles them regardless.
		if jsErr := el.ClickViaScript(ctx); jsErr != nil {
			return fmt.Errorf("checkbox %s click: %w", name, err)
		}
	}

	checked, err = el.Selected(ctx)
	if err != nil {
		return fmt.Errorf("checkbox %s verify: %w", name, err)
	}
	if !checked {
		return fmt.Errorf("checkbox %s did not register the click", name)
	}
	return nil
}

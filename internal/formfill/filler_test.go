package formfill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/batch"
	"github.com/hokutoh/formloop/pkg/site"
)

type gridElement struct {
	mu         sync.Mutex
	checked    bool
	clickErr   error
	scriptOK   bool
	sticky     bool // click never registers
	clickCount int
}

func (g *gridElement) Click(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clickCount++
	if g.clickErr != nil {
		return g.clickErr
	}
	if !g.sticky {
		g.checked = true
	}
	return nil
}

func (g *gridElement) ClickViaScript(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.scriptOK {
		return errors.New("script click failed")
	}
	if !g.sticky {
		g.checked = true
	}
	return nil
}

func (g *gridElement) ClickWithPointer(context.Context) error { return nil }
func (g *gridElement) ClickAtCenter(context.Context) error    { return nil }
func (g *gridElement) ScrollIntoView(context.Context) error   { return nil }
func (g *gridElement) SetText(context.Context, string) error  { return nil }
func (g *gridElement) Selected(context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checked, nil
}

// gridAdapter serves checkbox elements by name and records resolve order.
type gridAdapter struct {
	mu       sync.Mutex
	elements map[string]*gridElement
	resolved []string
	missing  map[string]bool
}

func newGridAdapter() *gridAdapter {
	return &gridAdapter{
		elements: make(map[string]*gridElement),
		missing:  make(map[string]bool),
	}
}

func (g *gridAdapter) ClassifyPage(context.Context) (site.PageKind, error) {
	return site.PageForm, nil
}

func (g *gridAdapter) Resolve(_ context.Context, loc site.Locator, _ time.Duration) (site.Element, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolved = append(g.resolved, loc.Value)
	if g.missing[loc.Value] {
		return nil, fmt.Errorf("%w: %s", site.ErrElementNotFound, loc.Value)
	}
	el, ok := g.elements[loc.Value]
	if !ok {
		el = &gridElement{}
		g.elements[loc.Value] = el
	}
	return el, nil
}

func (g *gridAdapter) DetectBlockingOverlay(context.Context) (site.Element, bool, error) {
	return nil, false, nil
}

func (g *gridAdapter) ReadAvailableRounds(context.Context) ([]site.RoundID, error) {
	return nil, nil
}

func TestCheckboxName(t *testing.T) {
	// Set index first, then game index, then value.
	assert.Equal(t, "chkbox_0_0_0", checkboxName(0, 0, 0))
	assert.Equal(t, "chkbox_2_12_1", checkboxName(2, 12, 1))
	assert.Equal(t, "chkbox_9_5_2", checkboxName(9, 5, 2))
}

func TestFillBatch_ChecksEveryCellInOrder(t *testing.T) {
	adapter := newGridAdapter()
	filler := NewGridFiller(adapter, zap.NewNop(), time.Second)

	b := batch.Batch{Index: 0, Rows: []batch.Row{
		{1, 0, 2},
		{0, 2, 1},
	}}
	require.NoError(t, filler.FillBatch(context.Background(), b))

	want := []string{
		"chkbox_0_0_1", "chkbox_0_1_0", "chkbox_0_2_2",
		"chkbox_1_0_0", "chkbox_1_1_2", "chkbox_1_2_1",
	}
	assert.Equal(t, want, adapter.resolved)
	for _, name := range want {
		el := adapter.elements[name]
		checked, _ := el.Selected(context.Background())
		assert.True(t, checked, name)
	}
}

func TestFillBatch_SkipsAlreadyChecked(t *testing.T) {
	adapter := newGridAdapter()
	adapter.elements["chkbox_0_0_1"] = &gridElement{checked: true}
	filler := NewGridFiller(adapter, zap.NewNop(), time.Second)

	b := batch.Batch{Rows: []batch.Row{{1}}}
	require.NoError(t, filler.FillBatch(context.Background(), b))
	assert.Zero(t, adapter.elements["chkbox_0_0_1"].clickCount)
}

func TestFillBatch_ScriptFallback(t *testing.T) {
	adapter := newGridAdapter()
	adapter.elements["chkbox_0_0_2"] = &gridElement{
		clickErr: errors.New("element click intercepted"),
		scriptOK: true,
	}
	filler := NewGridFiller(adapter, zap.NewNop(), time.Second)

	b := batch.Batch{Rows: []batch.Row{{2}}}
	require.NoError(t, filler.FillBatch(context.Background(), b))

	checked, _ := adapter.elements["chkbox_0_0_2"].Selected(context.Background())
	assert.True(t, checked)
}

func TestFillBatch_CellFailureIsPositional(t *testing.T) {
	adapter := newGridAdapter()
	adapter.missing["chkbox_1_2_0"] = true
	filler := NewGridFiller(adapter, zap.NewNop(), time.Second)

	b := batch.Batch{Rows: []batch.Row{
		{0, 0, 0},
		{0, 0, 0},
	}}
	err := filler.FillBatch(context.Background(), b)

	var fillErr *FillError
	require.ErrorAs(t, err, &fillErr)
	assert.Equal(t, 2, fillErr.Row)
	assert.Equal(t, 3, fillErr.Column)
	assert.ErrorIs(t, err, site.ErrElementNotFound)
}

func TestFillBatch_UnregisteredClick(t *testing.T) {
	adapter := newGridAdapter()
	adapter.elements["chkbox_0_0_0"] = &gridElement{sticky: true, scriptOK: true}
	filler := NewGridFiller(adapter, zap.NewNop(), time.Second)

	err := filler.FillBatch(context.Background(), batch.Batch{Rows: []batch.Row{{0}}})
	var fillErr *FillError
	require.ErrorAs(t, err, &fillErr)
	assert.Contains(t, err.Error(), "did not register")
}

func TestFillBatch_Cancellation(t *testing.T) {
	adapter := newGridAdapter()
	filler := NewGridFiller(adapter, zap.NewNop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := filler.FillBatch(ctx, batch.Batch{Rows: []batch.Row{{0, 1}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, adapter.resolved)
}

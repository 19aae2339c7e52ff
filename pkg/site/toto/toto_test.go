package toto

import (
	"testing"

	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hokutoh/formloop/pkg/site"
)

func TestNewElement_SelectorMapping(t *testing.T) {
	testCases := []struct {
		name    string
		loc     site.Locator
		wantSel string
	}{
		{
			name:    "css passes through",
			loc:     site.CSS(".modal-close"),
			wantSel: ".modal-close",
		},
		{
			name:    "id becomes a hash selector",
			loc:     site.Locator{Kind: site.ByID, Value: "select_single"},
			wantSel: "#select_single",
		},
		{
			name:    "name becomes an attribute selector",
			loc:     site.Name("chkbox_0_0_1"),
			wantSel: `[name="chkbox_0_0_1"]`,
		},
		{
			name:    "xpath passes through",
			loc:     site.XPath("//a[contains(., '回')]"),
			wantSel: "//a[contains(., '回')]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			el, err := newElement(tc.loc)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSel, el.sel)
		})
	}

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := newElement(site.Locator{Kind: "tagname", Value: "a"})
		assert.Error(t, err)
	})
}

func TestElementJSRef(t *testing.T) {
	el, err := newElement(site.CSS("#submit"))
	require.NoError(t, err)
	assert.Equal(t, `document.querySelector("#submit")`, el.jsRef())

	el, err = newElement(site.XPath("//input[@type='submit']"))
	require.NoError(t, err)
	assert.Contains(t, el.jsRef(), "document.evaluate")
	assert.Contains(t, el.jsRef(), "singleNodeValue")
}

func TestBuiltinSequencesAreValid(t *testing.T) {
	for _, seq := range []struct {
		name string
		seq  interface{ Validate() error }
	}{
		{"submit", DefaultSubmit()},
		{"cart return", DefaultCartReturn()},
		{"round select", DefaultRoundSelect()},
	} {
		t.Run(seq.name, func(t *testing.T) {
			assert.NoError(t, seq.seq.Validate())
		})
	}
}

func TestBoxCenter(t *testing.T) {
	_, _, err := boxCenter(nil)
	assert.ErrorIs(t, err, errEmptyBoxModel)

	_, _, err = boxCenter(&dom.BoxModel{Content: dom.Quad{10, 20}})
	assert.ErrorIs(t, err, errEmptyBoxModel, "a truncated quad must not be dereferenced")

	x, y, err := boxCenter(&dom.BoxModel{Content: dom.Quad{10, 20, 110, 20, 110, 60, 10, 60}})
	require.NoError(t, err)
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 40.0, y)
}

func TestDefaultCartReturn_AddVotesIsOptional(t *testing.T) {
	seq := DefaultCartReturn()
	require.Len(t, seq.Steps, 3)
	assert.True(t, seq.Steps[0].Optional, "add-votes click must not fail the sequence when absent")
	assert.False(t, seq.Steps[1].Optional)
	assert.False(t, seq.Steps[2].Optional)
}

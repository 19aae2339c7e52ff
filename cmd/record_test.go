package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/site"
)

func TestParseStep(t *testing.T) {
	testCases := []struct {
		name string
		line string
		want action.Step
	}{
		{
			name: "click with bare css locator",
			line: "click .btn-submit",
			want: action.Step{Kind: action.Click, Locator: &site.Locator{Kind: site.ByCSS, Value: ".btn-submit"}},
		},
		{
			name: "checkbox with name locator",
			line: "checkbox name=chkbox_0_3_1",
			want: action.Step{Kind: action.ConfirmCheckbox, Locator: &site.Locator{Kind: site.ByName, Value: "chkbox_0_3_1"}},
		},
		{
			name: "submit with xpath locator",
			line: "submit xpath=//input[@type='submit']",
			want: action.Step{Kind: action.SubmitForm, Locator: &site.Locator{Kind: site.ByXPath, Value: "//input[@type='submit']"}},
		},
		{
			name: "input joins the remaining words",
			line: "input id=user-name taro yamada",
			want: action.Step{
				Kind:    action.InputText,
				Locator: &site.Locator{Kind: site.ByID, Value: "user-name"},
				Value:   "taro yamada",
			},
		},
		{
			name: "waiturl keeps the fragment",
			line: "waiturl MoveSingleVoteSheet",
			want: action.Step{Kind: action.WaitForURLChange, Value: "MoveSingleVoteSheet"},
		},
		{
			name: "alert defaults to accept",
			line: "alert",
			want: action.Step{Kind: action.WaitForAlert, Value: "accept"},
		},
		{
			name: "alert dismiss",
			line: "alert dismiss",
			want: action.Step{Kind: action.WaitForAlert, Value: "dismiss"},
		},
		{
			name: "sleep with seconds",
			line: "sleep 2.5",
			want: action.Step{Kind: action.Sleep, Value: "2.5"},
		},
		{
			name: "screenshot path",
			line: "shot out/form.png",
			want: action.Step{Kind: action.Screenshot, Value: "out/form.png"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseStep(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseStep_Rejections(t *testing.T) {
	for _, line := range []string{
		"click",
		"input .field",
		"waiturl",
		"alert maybe",
		"sleep",
		"frobnicate .x",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := parseStep(line)
			assert.Error(t, err)
		})
	}
}

func TestParseLocator(t *testing.T) {
	assert.Equal(t, site.Locator{Kind: site.ByCSS, Value: ".row a"}, parseLocator("css=.row a"))
	assert.Equal(t, site.Locator{Kind: site.ByID, Value: "main"}, parseLocator("id=main"))
	assert.Equal(t, site.Locator{Kind: site.ByXPath, Value: "//a"}, parseLocator("xpath=//a"))
	// Bare values and unknown prefixes fall back to CSS.
	assert.Equal(t, site.CSS("#form input"), parseLocator("#form input"))
	assert.Equal(t, site.CSS("data=x"), parseLocator("data=x"))
}

package toto

import (
	"fmt"
	"time"

	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/site"
)

// Built-in sequences for driving the site without any recordings on disk.
// The selectors mirror the live markup: the submit control is a plain submit
// input, the cart page carries the add-votes button, the round link reads
// 第N回, and the single-vote mode button has id select_single.

const (
	submitSelector     = "input[type='submit']"
	roundLinkXPath     = "//a[starts-with(normalize-space(.), '第') and contains(., '回')]"
	singleButtonXPath  = "//*[@id='select_single']"
	defaultStepTimeout = 10 * time.Second
)

func builtinStep(kind action.Kind, loc site.Locator, waitAfter time.Duration, desc string) action.Step {
	return action.Step{
		Kind:        kind,
		Locator:     &loc,
		Description: desc,
		WaitAfter:   action.Duration(waitAfter),
		Timeout:     action.Duration(defaultStepTimeout),
	}
}

// DefaultSubmit clicks the vote-sheet submit control and accepts the
// confirmation alert if the site raises one.
func DefaultSubmit() *action.Sequence {
	return &action.Sequence{
		Metadata: action.Metadata{
			Name:        "builtin_submit",
			Description: "Built-in submit: click the submit input, accept any alert.",
		},
		Steps: []action.Step{
			builtinStep(action.SubmitForm, site.CSS(submitSelector), 2*time.Second, "Submit the vote sheet"),
			{
				Kind:        action.WaitForAlert,
				Value:       "accept",
				Description: "Accept the confirmation alert if one appears",
				Timeout:     action.Duration(5 * time.Second),
				Optional:    true,
			},
		},
	}
}

// DefaultCartReturn moves the session from the cart (vote addition) page back
// to a fresh single vote sheet: add-votes button, round link, single button.
func DefaultCartReturn() *action.Sequence {
	addVotes := site.XPath(fmt.Sprintf("//*[contains(text(), '%s')]", addVotesLabel))
	seq := &action.Sequence{
		Metadata: action.Metadata{
			Name:        "builtin_cart_return",
			Description: "Built-in cart exit: add votes, pick the round, choose single mode.",
		},
		Steps: []action.Step{
			builtinStep(action.Click, addVotes, 2*time.Second, "Open the add-votes section"),
			builtinStep(action.Click, site.XPath(roundLinkXPath), 2*time.Second, "Reopen the round"),
			builtinStep(action.Click, site.XPath(singleButtonXPath), 2*time.Second, "Switch to single vote entry"),
		},
	}
	// The add-votes button is absent when the cart renders it already expanded.
	seq.Steps[0].Optional = true
	return seq
}

// DefaultRoundSelect picks the first open round and enters single vote mode.
func DefaultRoundSelect() *action.Sequence {
	return &action.Sequence{
		Metadata: action.Metadata{
			Name:        "builtin_round_select",
			Description: "Built-in round selection: first open round, single mode.",
		},
		Steps: []action.Step{
			builtinStep(action.Click, site.XPath(roundLinkXPath), 2*time.Second, "Open the first listed round"),
			builtinStep(action.Click, site.XPath(singleButtonXPath), 2*time.Second, "Switch to single vote entry"),
		},
	}
}

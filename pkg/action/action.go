// Package action defines the recorded-action data model: a Step describes one
// browser operation, a Sequence is an ordered list of steps plus metadata.
// Sequences are immutable once loaded; replay never mutates them.
package action

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hokutoh/formloop/pkg/site"
)

// Kind enumerates the supported step operations.
type Kind string

const (
	Click            Kind = "click"
	InputText        Kind = "input_text"
	WaitForElement   Kind = "wait_for_element"
	WaitForURLChange Kind = "wait_for_url_change"
	WaitForAlert     Kind = "wait_for_alert"
	Sleep            Kind = "sleep"
	Scroll           Kind = "scroll"
	Screenshot       Kind = "screenshot"
	ConfirmCheckbox  Kind = "confirm_checkbox"
	SubmitForm       Kind = "submit_form"
)

// kindsNeedingLocator lists the kinds that cannot execute without a locator.
var kindsNeedingLocator = map[Kind]bool{
	Click:           true,
	InputText:       true,
	WaitForElement:  true,
	Scroll:          true,
	ConfirmCheckbox: true,
	SubmitForm:      true,
}

// kindsNeedingValue lists the kinds that cannot execute without a value.
var kindsNeedingValue = map[Kind]bool{
	InputText:        true,
	WaitForURLChange: true,
}

// Duration wraps time.Duration with millisecond-integer JSON encoding, so
// action files stay readable and round-trip exactly.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Milliseconds())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Step is a single recorded browser operation with its own wait and retry
// parameters.
type Step struct {
	Kind        Kind          `json:"kind"`
	Locator     *site.Locator `json:"locator,omitempty"`
	Value       string        `json:"value,omitempty"`
	Description string        `json:"description,omitempty"`
	WaitBefore  Duration      `json:"wait_before_ms"`
	WaitAfter   Duration      `json:"wait_after_ms"`
	Timeout     Duration      `json:"timeout_ms"`
	Optional    bool          `json:"optional,omitempty"`
	Retries     int           `json:"retries,omitempty"`
}

// Validate checks the step's per-kind requirements and numeric bounds.
func (s Step) Validate() error {
	switch s.Kind {
	case Click, InputText, WaitForElement, WaitForURLChange, WaitForAlert,
		Sleep, Scroll, Screenshot, ConfirmCheckbox, SubmitForm:
	case "":
		return fmt.Errorf("step kind is required")
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	if kindsNeedingLocator[s.Kind] && (s.Locator == nil || s.Locator.IsZero()) {
		return fmt.Errorf("%s step requires a locator", s.Kind)
	}
	if kindsNeedingValue[s.Kind] && s.Value == "" {
		return fmt.Errorf("%s step requires a value", s.Kind)
	}
	if s.WaitBefore < 0 {
		return fmt.Errorf("wait_before must be non-negative")
	}
	if s.WaitAfter < 0 {
		return fmt.Errorf("wait_after must be non-negative")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if s.Retries < 0 {
		return fmt.Errorf("retries must be non-negative")
	}
	return nil
}

// Metadata describes where a sequence came from.
type Metadata struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version,omitempty"`
}

// Sequence is an ordered list of steps replayed strictly in file order.
type Sequence struct {
	Metadata Metadata `json:"metadata"`
	Steps    []Step   `json:"actions"`
}

// Validate checks the sequence and every step in it.
func (s *Sequence) Validate() error {
	if s.Metadata.Name == "" {
		return fmt.Errorf("sequence name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("sequence has no steps")
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Package player replays a stored action sequence against a live page
// session, one step at a time. Replay is strictly sequential: a later step may
// depend on DOM state produced by an earlier one, so steps are never
// reordered or run concurrently.
package player

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/site"
)

// ErrTimeout reports a polling wait whose predicate never held.
var ErrTimeout = errors.New("wait timed out")

// retryPause separates attempts of one failing step.
const retryPause = time.Second

// StepError surfaces a failed non-optional step to the caller, which decides
// whether to abort or recover.
type StepError struct {
	Index int
	Kind  action.Kind
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("action %d (%s) failed: %v", e.Index+1, e.Kind, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

// Stats summarizes one replay.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// SleepFunc pauses for d or returns early with the context's error.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option customizes a Player.
type Option func(*Player)

// WithSleep substitutes the blocking wait, letting tests run with
// zero-duration waits.
func WithSleep(s SleepFunc) Option { return func(p *Player) { p.sleep = s } }

// WithPollInterval sets the sub-interval of polling waits.
func WithPollInterval(d time.Duration) Option { return func(p *Player) { p.poll = d } }

// Player executes sequences through a site adapter and session.
type Player struct {
	adapter site.Adapter
	session site.Session
	logger  *zap.Logger
	poll    time.Duration
	sleep   SleepFunc
	now     func() time.Time
}

// New creates a Player with the default 250ms poll interval.
func New(adapter site.Adapter, session site.Session, logger *zap.Logger, opts ...Option) *Player {
	p := &Player{
		adapter: adapter,
		session: session,
		logger:  logger.Named("player"),
		poll:    250 * time.Millisecond,
		sleep:   contextSleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play replays seq in order. A failed non-optional step stops replay and
// returns a *StepError; optional failures are logged and skipped. The
// returned Stats reflect work done up to the stop point.
func (p *Player) Play(ctx context.Context, seq *action.Sequence) (Stats, error) {
	start := p.now()
	stats := Stats{Total: len(seq.Steps)}
	log := p.logger.With(zap.String("sequence", seq.Metadata.Name))
	log.Info("Replaying action sequence", zap.Int("steps", len(seq.Steps)))

	for i, step := range seq.Steps {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = p.now().Sub(start)
			return stats, err
		}
		if err := p.sleep(ctx, step.WaitBefore.Std()); err != nil {
			stats.Elapsed = p.now().Sub(start)
			return stats, err
		}

		err := p.runStep(ctx, i, step)
		switch {
		case err == nil:
			stats.Succeeded++
		case step.Optional:
			stats.Skipped++
			log.Warn("Optional step failed, skipping",
				zap.Int("step", i+1),
				zap.String("kind", string(step.Kind)),
				zap.Error(err))
			continue
		default:
			stats.Failed++
			stats.Elapsed = p.now().Sub(start)
			return stats, &StepError{Index: i, Kind: step.Kind, Cause: err}
		}

		if err := p.sleep(ctx, step.WaitAfter.Std()); err != nil {
			stats.Elapsed = p.now().Sub(start)
			return stats, err
		}
	}

	stats.Elapsed = p.now().Sub(start)
	log.Info("Sequence complete",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// runStep performs one step, honoring its retry budget. Attempts past the
// first are separated by a fixed pause.
func (p *Player) runStep(ctx context.Context, index int, step action.Step) error {
	attempts := max(step.Retries, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = p.perform(ctx, step); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < attempts {
			p.logger.Debug("Step attempt failed, retrying",
				zap.Int("step", index+1),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if serr := p.sleep(ctx, retryPause); serr != nil {
				return serr
			}
		}
	}
	return err
}

// perform dispatches a single attempt of one step.
func (p *Player) perform(ctx context.Context, step action.Step) error {
	switch step.Kind {
	case action.Click, action.SubmitForm:
		el, err := p.resolve(ctx, step)
		if err != nil {
			return err
		}
		return el.Click(ctx)

	case action.ConfirmCheckbox:
		el, err := p.resolve(ctx, step)
		if err != nil {
			return err
		}
		checked, err := el.Selected(ctx)
		if err != nil {
			return err
		}
		if checked {
			return nil
		}
		return el.Click(ctx)

	case action.InputText:
		el, err := p.resolve(ctx, step)
		if err != nil {
			return err
		}
		return el.SetText(ctx, step.Value)

	case action.Scroll:
		el, err := p.resolve(ctx, step)
		if err != nil {
			return err
		}
		return el.ScrollIntoView(ctx)

	case action.WaitForElement:
		_, err := p.resolve(ctx, step)
		return err

	case action.WaitForURLChange:
		want := strings.ToLower(step.Value)
		return p.pollUntil(ctx, step.Timeout.Std(), fmt.Sprintf("url contains %q", step.Value),
			func(ctx context.Context) (bool, error) {
				url, err := p.session.CurrentURL(ctx)
				if err != nil {
					return false, err
				}
				return strings.Contains(strings.ToLower(url), want), nil
			})

	case action.WaitForAlert:
		err := p.pollUntil(ctx, step.Timeout.Std(), "alert present",
			func(context.Context) (bool, error) {
				_, open := p.session.ActiveDialog(ctx)
				return open, nil
			})
		if err != nil {
			return err
		}
		accept := !strings.EqualFold(step.Value, "dismiss")
		return p.session.HandleDialog(ctx, accept)

	case action.Sleep:
		return p.sleep(ctx, sleepDuration(step.Value))

	case action.Screenshot:
		path := step.Value
		if path == "" {
			path = fmt.Sprintf("replay_%d.png", p.now().Unix())
		}
		return p.session.CaptureScreenshot(ctx, path)

	default:
		return fmt.Errorf("unsupported action kind %q", step.Kind)
	}
}

// resolve looks up the step's locator within its timeout.
func (p *Player) resolve(ctx context.Context, step action.Step) (site.Element, error) {
	if step.Locator == nil {
		return nil, fmt.Errorf("%s step has no locator", step.Kind)
	}
	el, err := p.adapter.Resolve(ctx, *step.Locator, step.Timeout.Std())
	if err != nil {
		return nil, fmt.Errorf("resolving %s %q: %w", step.Locator.Kind, step.Locator.Value, err)
	}
	return el, nil
}

// pollUntil blocks until pred holds, the timeout elapses (ErrTimeout), or the
// context is cancelled.
func (p *Player) pollUntil(ctx context.Context, timeout time.Duration, what string, pred func(context.Context) (bool, error)) error {
	deadline := p.now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !p.now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrTimeout, what, timeout)
		}
		if err := p.sleep(ctx, p.poll); err != nil {
			return err
		}
	}
}

// sleepDuration parses a sleep step's value: a Go duration ("1.5s") or a bare
// float of seconds ("1.5"), defaulting to one second.
func sleepDuration(value string) time.Duration {
	if value == "" {
		return time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return time.Second
}

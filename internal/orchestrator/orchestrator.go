// Package orchestrator drives the per-batch submission state machine: for
// each batch it navigates to the form, delegates the fill, submits, confirms,
// and decides whether another batch follows. A single logical thread owns the
// live session; exactly one batch is in flight at any time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/batch"
	"github.com/hokutoh/formloop/pkg/overlay"
	"github.com/hokutoh/formloop/pkg/player"
	"github.com/hokutoh/formloop/pkg/site"
)

// ErrCancelled reports a run stopped cooperatively between actions.
var ErrCancelled = errors.New("run cancelled")

// Filler applies one batch's rows to the live form. Implementations restart
// from the first row on every call; a batch is never resumed mid-way.
type Filler interface {
	FillBatch(ctx context.Context, b batch.Batch) error
}

// SequencePlayer replays one action sequence. Satisfied by *player.Player.
type SequencePlayer interface {
	Play(ctx context.Context, seq *action.Sequence) (player.Stats, error)
}

// Sequences holds the site-specific navigation recordings the orchestrator
// replays between state transitions. Which sequence runs at a batch boundary
// is configuration, not a hardcoded two-step assumption.
type Sequences struct {
	// Navigation maps a detected page kind to the recording that moves the
	// session from that page toward the form page.
	Navigation map[site.PageKind]*action.Sequence
	// Submit triggers form submission (add to cart).
	Submit *action.Sequence
	// Confirm acknowledges the submission; optional for sites that confirm
	// through a JS alert handled inside Submit.
	Confirm *action.Sequence
	// NextBatch returns the session to a form page after a completed batch.
	NextBatch *action.Sequence
}

// Config tunes one orchestrator.
type Config struct {
	// BatchSize is the maximum rows per submission (default 10).
	BatchSize int
	// BatchPause separates consecutive batch submissions.
	BatchPause time.Duration
	// MaxNavHops bounds classify-replay-reclassify cycles per batch before
	// giving up on reaching the form page (default 5).
	MaxNavHops int
	// Strategies is the ordered overlay dismissal list; nil means the
	// standard five.
	Strategies []overlay.Strategy
}

func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.MaxNavHops == 0 {
		c.MaxNavHops = 5
	}
	if c.Strategies == nil {
		c.Strategies = overlay.DefaultStrategies()
	}
}

// Result reports how a run ended. FailedBatch is 1-based; zero with a non-nil
// Err means the run failed before the first batch started.
type Result struct {
	RunID            string
	State            State
	TotalBatches     int
	CompletedBatches int
	FailedBatch      int
	FailedState      State
	Err              error
}

// Orchestrator owns the state machine. All mutable per-run state lives on the
// Run stack; the struct itself is read-only after New.
type Orchestrator struct {
	cfg     Config
	logger  *zap.Logger
	adapter site.Adapter
	player  SequencePlayer
	filler  Filler
	seqs    Sequences
	sleep   player.SleepFunc
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSleep substitutes the inter-batch pause, letting tests run without
// real waits.
func WithSleep(s player.SleepFunc) Option { return func(o *Orchestrator) { o.sleep = s } }

// New wires an orchestrator from its collaborators.
func New(cfg Config, logger *zap.Logger, adapter site.Adapter, pl SequencePlayer, filler Filler, seqs Sequences, opts ...Option) (*Orchestrator, error) {
	if logger == nil || adapter == nil || pl == nil || filler == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if seqs.Submit == nil {
		return nil, fmt.Errorf("a submit sequence is required")
	}
	cfg.applyDefaults()
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		adapter: adapter,
		player:  pl,
		filler:  filler,
		seqs:    seqs,
		sleep:   defaultSleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func defaultSleep(ctx context.Context, d time.Duration) error {
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

// progress is the state mutated over one run and discarded at its end.
type progress struct {
	state      State
	batchNum   int // 1-based
	lastPage   site.PageKind
	totalBatch int
}

// Run splits rows into batches and submits them strictly in order. Batches
// are never overlapped and never resumed mid-way: on any failure the run
// stops at that batch, so a caller can resume from it without re-submitting
// earlier batches.
func (o *Orchestrator) Run(ctx context.Context, rows []batch.Row) *Result {
	res := &Result{RunID: uuid.New().String(), State: StateInit}
	log := o.logger.With(zap.String("runID", res.RunID))

	batches, err := batch.Split(rows, o.cfg.BatchSize)
	if err != nil {
		return o.fail(log, res, &progress{state: StateInit}, err)
	}
	res.TotalBatches = len(batches)
	if len(batches) > 1 && o.seqs.NextBatch == nil {
		return o.fail(log, res, &progress{state: StateInit},
			fmt.Errorf("%d batches but no next-batch sequence configured", len(batches)))
	}

	log.Info("Run starting",
		zap.Int("rows", len(rows)),
		zap.Int("batches", len(batches)),
		zap.Int("batchSize", o.cfg.BatchSize))

	prog := &progress{state: StateInit, totalBatch: len(batches)}

	for _, b := range batches {
		prog.batchNum = b.Index + 1
		blog := log.With(zap.Int("batch", prog.batchNum), zap.Int("of", prog.totalBatch))

		if err := o.runBatch(ctx, blog, prog, b); err != nil {
			return o.fail(blog, res, prog, err)
		}
		res.CompletedBatches++

		if prog.batchNum < prog.totalBatch {
			if err := o.transition(ctx, blog, prog, StateNextBatch); err != nil {
				return o.fail(blog, res, prog, err)
			}
			if _, err := o.player.Play(ctx, o.seqs.NextBatch); err != nil {
				return o.fail(blog, res, prog, fmt.Errorf("next-batch navigation: %w", err))
			}
			if err := o.sleep(ctx, o.cfg.BatchPause); err != nil {
				return o.fail(blog, res, prog, cancelErr(err))
			}
		}
	}

	if err := o.transition(ctx, log, prog, StateComplete); err != nil {
		return o.fail(log, res, prog, err)
	}
	res.State = StateComplete
	log.Info("Run complete", zap.Int("batches", res.CompletedBatches))
	return res
}

// runBatch walks one batch through NAVIGATING → ... → BATCH_DONE.
func (o *Orchestrator) runBatch(ctx context.Context, log *zap.Logger, prog *progress, b batch.Batch) error {
	if err := o.transition(ctx, log, prog, StateNavigating); err != nil {
		return err
	}
	if err := o.navigateToForm(ctx, log, prog); err != nil {
		return err
	}

	if err := o.transition(ctx, log, prog, StateFilling); err != nil {
		return err
	}
	log.Info("Filling form", zap.Int("rows", len(b.Rows)))
	if err := o.filler.FillBatch(ctx, b); err != nil {
		return fmt.Errorf("filling batch: %w", err)
	}

	if err := o.transition(ctx, log, prog, StateSubmitting); err != nil {
		return err
	}
	if err := o.submit(ctx, log); err != nil {
		return err
	}

	if err := o.transition(ctx, log, prog, StateConfirming); err != nil {
		return err
	}
	if o.seqs.Confirm != nil {
		if _, err := o.player.Play(ctx, o.seqs.Confirm); err != nil {
			return fmt.Errorf("confirming submission: %w", err)
		}
	}

	if err := o.transition(ctx, log, prog, StateBatchDone); err != nil {
		return err
	}
	log.Info("Batch submitted")
	return nil
}

// navigateToForm classifies the page and replays navigation recordings until
// the adapter reports the form page, bounded by MaxNavHops.
func (o *Orchestrator) navigateToForm(ctx context.Context, log *zap.Logger, prog *progress) error {
	for hop := 0; hop < o.cfg.MaxNavHops; hop++ {
		if err := ctx.Err(); err != nil {
			return cancelErr(err)
		}
		kind, err := o.adapter.ClassifyPage(ctx)
		if err != nil {
			return fmt.Errorf("classifying page: %w", err)
		}
		prog.lastPage = kind
		if kind == site.PageForm {
			return o.transition(ctx, log, prog, StateFormReady)
		}

		seq, ok := o.seqs.Navigation[kind]
		if !ok {
			return fmt.Errorf("no navigation sequence for %s page", kind)
		}
		log.Info("Not on form page, replaying navigation",
			zap.String("page", string(kind)),
			zap.String("sequence", seq.Metadata.Name))
		if _, err := o.player.Play(ctx, seq); err != nil {
			return fmt.Errorf("navigating from %s page: %w", kind, err)
		}
	}
	return fmt.Errorf("form page not reached after %d navigation hops (last page %s)",
		o.cfg.MaxNavHops, prog.lastPage)
}

// submit replays the submit sequence and clears any blocking overlay. A
// failed submit gets one retry if dismissing an overlay unblocked the page.
func (o *Orchestrator) submit(ctx context.Context, log *zap.Logger) error {
	_, err := o.player.Play(ctx, o.seqs.Submit)
	if err != nil {
		dismissed, derr := o.clearOverlay(ctx, log)
		if derr != nil {
			return derr
		}
		if !dismissed {
			return fmt.Errorf("submitting batch: %w", err)
		}
		log.Info("Retrying submission after overlay dismissal")
		if _, err = o.player.Play(ctx, o.seqs.Submit); err != nil {
			return fmt.Errorf("submitting batch after overlay dismissal: %w", err)
		}
	}

	// The site can also raise a modal in response to a successful submit.
	if _, err := o.clearOverlay(ctx, log); err != nil {
		return err
	}
	return nil
}

// clearOverlay reports whether a blocking overlay was present and dismissed.
// An overlay that resists every strategy is fatal.
func (o *Orchestrator) clearOverlay(ctx context.Context, log *zap.Logger) (bool, error) {
	el, blocked, err := o.adapter.DetectBlockingOverlay(ctx)
	if err != nil {
		return false, fmt.Errorf("detecting overlay: %w", err)
	}
	if !blocked {
		return false, nil
	}
	log.Warn("Blocking overlay detected, applying dismissal strategies")
	if _, err := overlay.Dismiss(ctx, log, el, o.cfg.Strategies); err != nil {
		return false, err
	}
	return true, nil
}

// transition advances the machine. Cancellation is cooperative: the flag is
// checked at every transition, and an in-flight action always finishes first.
func (o *Orchestrator) transition(ctx context.Context, log *zap.Logger, prog *progress, next State) error {
	if err := ctx.Err(); err != nil {
		return cancelErr(err)
	}
	log.Debug("State transition",
		zap.Stringer("from", prog.state),
		zap.Stringer("to", next))
	prog.state = next
	return nil
}

// fail finalizes a run in the terminal ERROR state, recording which batch and
// which state it failed in. A context cancellation that surfaced inside a
// collaborator (sequence replay, batch fill) is mapped to ErrCancelled here,
// so every stop request ends the run with the same reason.
func (o *Orchestrator) fail(log *zap.Logger, res *Result, prog *progress, err error) *Result {
	err = cancelErr(err)
	res.State = StateError
	res.FailedBatch = prog.batchNum
	res.FailedState = prog.state
	res.Err = err
	log.Error("Run failed",
		zap.Int("failedBatch", prog.batchNum),
		zap.Stringer("state", prog.state),
		zap.Error(err))
	return res
}

// cancelErr maps context errors onto the run-level cancellation reason.
func cancelErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

// Package recorder captures a live sequence of user-performed browser
// operations into an ordered action sequence.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hokutoh/formloop/pkg/action"
)

// ErrStopped is returned when an operation is observed after the session was
// finalized.
var ErrStopped = errors.New("recording session already stopped")

// Defaults are stamped onto observed steps that don't carry their own
// wait/timeout parameters.
type Defaults struct {
	WaitAfter time.Duration
	Timeout   time.Duration
	Retries   int
}

// Saver persists a finished sequence. *action.Store satisfies it.
type Saver interface {
	Save(seq *action.Sequence, name string) (string, error)
}

// Session is one recording session. It has two states: active (accepting new
// steps) and stopped (sequence finalized and immutable).
type Session struct {
	mu       sync.Mutex
	stopped  bool
	meta     action.Metadata
	steps    []action.Step
	defaults Defaults
	store    Saver
	logger   *zap.Logger
	now      func() time.Time

	// result caches the finalized sequence so Stop stays idempotent.
	result *action.Sequence
}

// NewSession starts an active recording session.
func NewSession(meta action.Metadata, defaults Defaults, store Saver, logger *zap.Logger) *Session {
	return &Session{
		meta:     meta,
		defaults: defaults,
		store:    store,
		logger:   logger.Named("recorder"),
		now:      time.Now,
	}
}

// Active reports whether the session still accepts steps.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Observe appends one operation in occurrence order, filling in configured
// defaults for any wait/timeout parameter the operation didn't specify.
func (s *Session) Observe(step action.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}

	if step.WaitAfter == 0 {
		step.WaitAfter = action.Duration(s.defaults.WaitAfter)
	}
	if step.Timeout == 0 {
		step.Timeout = action.Duration(s.defaults.Timeout)
	}
	if step.Retries == 0 {
		step.Retries = s.defaults.Retries
	}

	if err := step.Validate(); err != nil {
		return fmt.Errorf("rejecting observed step %d: %w", len(s.steps)+1, err)
	}

	s.steps = append(s.steps, step)
	s.logger.Debug("Recorded step",
		zap.Int("index", len(s.steps)),
		zap.String("kind", string(step.Kind)))
	return nil
}

// Stop finalizes the sequence, persists it, and returns it. Stopping an
// already-stopped session is a no-op returning the same sequence.
func (s *Session) Stop() (*action.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.result, nil
	}
	s.stopped = true

	meta := s.meta
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now().UTC()
	}
	seq := &action.Sequence{
		Metadata: meta,
		Steps:    append([]action.Step(nil), s.steps...),
	}
	s.result = seq

	if len(seq.Steps) == 0 {
		s.logger.Warn("Recording session stopped with no steps; nothing persisted")
		return seq, nil
	}

	path, err := s.store.Save(seq, "")
	if err != nil {
		return seq, fmt.Errorf("persisting recorded sequence: %w", err)
	}
	s.logger.Info("Recording session stopped",
		zap.Int("steps", len(seq.Steps)),
		zap.String("path", path))
	return seq, nil
}

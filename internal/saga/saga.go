// Package saga records the inverse of every forward action applied during a unit of
// work so that a failed unit can be undone in reverse order. A log also keeps the
// locks its unit acquired and the hooks to run once the unit succeeds.
package saga

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"shopflow/internal/model"

	"github.com/rs/zerolog"
)

// Compensation undoes one forward action.
type Compensation func(ctx context.Context) error

type step struct {
	name string
	undo Compensation
}

// Log is an ordered list of compensations for the forward actions applied so far.
type Log struct {
	mu      sync.Mutex
	steps   []step
	held    []sync.Locker
	commits []func()
	logger  zerolog.Logger
}

// NewLog creates an empty compensation log.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "saga").Logger()}
}

// Record appends the compensation of a forward action that has just been applied.
func (l *Log) Record(name string, undo Compensation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step{name: name, undo: undo})
}

// Len returns the number of recorded compensations.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Compensate runs every recorded compensation in reverse order and clears the log.
// All compensations are attempted even if some fail; failures are returned joined and
// wrapped in model.ErrCompensationFailed.
func (l *Log) Compensate(ctx context.Context) error {
	l.mu.Lock()
	steps := l.steps
	l.steps = nil
	l.commits = nil
	l.mu.Unlock()

	// Compensations must run even when the caller's context is already done.
	ctx = context.WithoutCancel(ctx)

	var failures []error
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if err := s.undo(ctx); err != nil {
			l.logger.Error().Err(err).Str("step", s.name).Msg("compensation step failed")
			failures = append(failures, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		l.logger.Debug().Str("step", s.name).Msg("compensation step applied")
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", model.ErrCompensationFailed, errors.Join(failures...))
	}
	return nil
}

// Hold locks mu and keeps it until Release. A mutex the log already holds is not
// locked again.
func (l *Log) Hold(mu sync.Locker) {
	if l.Holds(mu) {
		return
	}
	mu.Lock()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = append(l.held, mu)
}

// Holds reports whether mu was locked through Hold and not yet released.
func (l *Log) Holds(mu sync.Locker) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.held, mu)
}

// Release unlocks every held mutex, last acquired first.
func (l *Log) Release() {
	l.mu.Lock()
	held := l.held
	l.held = nil
	l.mu.Unlock()

	for i := len(held) - 1; i >= 0; i-- {
		held[i].Unlock()
	}
}

// OnCommit defers fn until Commit. Compensate drops it.
func (l *Log) OnCommit(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commits = append(l.commits, fn)
}

// Commit forgets every recorded compensation and runs the OnCommit hooks in the
// order they were added.
func (l *Log) Commit() {
	l.mu.Lock()
	commits := l.commits
	l.steps = nil
	l.commits = nil
	l.mu.Unlock()

	for _, fn := range commits {
		fn()
	}
}

type logKey struct{}

// WithLog returns a context carrying l.
func WithLog(ctx context.Context, l *Log) context.Context {
	return context.WithValue(ctx, logKey{}, l)
}

// FromContext returns the log carried by ctx, if any.
func FromContext(ctx context.Context) (*Log, bool) {
	l, ok := ctx.Value(logKey{}).(*Log)
	return l, ok
}

// Record appends a compensation to the log carried by ctx. Outside a unit of work it
// is a no-op: the forward action is then final on its own.
func Record(ctx context.Context, name string, undo Compensation) {
	if l, ok := FromContext(ctx); ok {
		l.Record(name, undo)
	}
}

// Lock locks mu on behalf of the unit of work carried by ctx, which keeps it until the
// unit ends; the returned func is then a no-op. Outside a unit the returned func
// unlocks mu.
func Lock(ctx context.Context, mu sync.Locker) (unlock func()) {
	if l, ok := FromContext(ctx); ok {
		l.Hold(mu)
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}

// Peek locks mu for a read. Nothing is locked when the unit of work carried by ctx
// already holds mu.
func Peek(ctx context.Context, mu sync.Locker) (unlock func()) {
	if l, ok := FromContext(ctx); ok && l.Holds(mu) {
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}

// OnCommit runs fn once the unit of work carried by ctx succeeds, or right away
// outside a unit.
func OnCommit(ctx context.Context, fn func()) {
	if l, ok := FromContext(ctx); ok {
		l.OnCommit(fn)
		return
	}
	fn()
}

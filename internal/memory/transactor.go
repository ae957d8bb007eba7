package memory

import (
	"context"
	"fmt"

	"shopflow/internal/saga"

	"github.com/rs/zerolog"
)

// Transactor makes a unit of work over the memory repositories all-or-nothing by
// compensating the mutations it applied when it fails. Cells the unit writes stay
// locked until it ends, so no other caller observes its intermediate state.
type Transactor struct {
	logger zerolog.Logger
}

// WithinTx runs fn with a fresh compensation log. Nested calls share the outer log.
// When fn fails every recorded mutation is undone in reverse order; if an undo fails
// too the returned error also wraps model.ErrCompensationFailed. Held cells are
// released only after the commit hooks or the compensations ran.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := saga.FromContext(ctx); ok {
		return fn(ctx)
	}

	log := saga.NewLog(t.logger)
	defer log.Release()

	defer func() {
		if p := recover(); p != nil {
			if cerr := log.Compensate(ctx); cerr != nil {
				t.logger.Error().Err(cerr).Msg("failed to undo unit of work after panic")
			}
			panic(p)
		}
	}()

	if err = fn(saga.WithLog(ctx, log)); err != nil {
		if cerr := log.Compensate(ctx); cerr != nil {
			return fmt.Errorf("%w; rollback: %w", err, cerr)
		}
		return err
	}

	log.Commit()
	return nil
}

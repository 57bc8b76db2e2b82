// Package saga runs multi-step workflows whose completed steps are undone,
// newest first, when a later step fails.
package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Action performs or compensates one unit of work
type Action func(ctx context.Context) error

// Step is a named action with an optional compensation
type Step struct {
	Name string
	Do   Action
	Undo Action
}

// Saga accumulates compensations for completed steps
type Saga struct {
	mu    sync.Mutex
	undos []Step
}

// New creates an empty saga
func New() *Saga {
	return &Saga{}
}

// Run executes steps in order. On the first failure every compensation
// registered so far is run in reverse order and the step error is returned.
func (s *Saga) Run(ctx context.Context, steps ...Step) error {
	for _, step := range steps {
		if err := step.Do(ctx); err != nil {
			s.Compensate(ctx)
			return err
		}
		if step.Undo != nil {
			s.Defer(step.Name, step.Undo)
		}
	}
	return nil
}

// Defer registers a compensation for work that already succeeded
func (s *Saga) Defer(name string, undo Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undos = append(s.undos, Step{Name: name, Undo: undo})
}

// Compensate runs registered compensations newest first and clears them.
// Compensation errors are logged and counted, never returned.
func (s *Saga) Compensate(ctx context.Context) {
	s.mu.Lock()
	undos := s.undos
	s.undos = nil
	s.mu.Unlock()

	// cleanup must finish even if the caller went away
	ctx = context.WithoutCancel(ctx)
	log := logger.FromCtx(ctx)

	for i := len(undos) - 1; i >= 0; i-- {
		err := undos[i].Undo(ctx)
		prometheus.RecordCompensation(undos[i].Name, err)
		if err != nil {
			log.Error("Compensation failed", zap.String("step", undos[i].Name), zap.Error(err))
		}
	}
}

// Pending returns how many compensations are registered
func (s *Saga) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undos)
}

// Item is one element of a parallel batch. Its Do returns the compensation
// for the work it completed, which may be nil.
type Item func(ctx context.Context) (Action, error)

// parallelism bounds concurrent items in a Parallel step
const parallelism = 8

// Parallel builds a step that runs items concurrently and waits for all of
// them. If any item fails, compensations of the successful items are run
// before the step returns the combined error; otherwise they are handed to
// the saga so a later failure undoes the whole batch.
func (s *Saga) Parallel(name string, items []Item) Step {
	return Step{
		Name: name,
		Do: func(ctx context.Context) error {
			undos := make([]Action, len(items))
			errs := make([]error, len(items))

			// no shared context: siblings keep running so every upload
			// that succeeded is known and can be undone
			var g errgroup.Group
			g.SetLimit(parallelism)
			for i, item := range items {
				g.Go(func() error {
					undo, err := item(ctx)
					undos[i] = undo
					if err != nil {
						errs[i] = fmt.Errorf("%s[%d]: %w", name, i, err)
					}
					return errs[i]
				})
			}

			if err := g.Wait(); err != nil {
				// Wait keeps only the first failure
				err = multierr.Combine(errs...)
				batch := New()
				for i, undo := range undos {
					if undo != nil {
						batch.Defer(fmt.Sprintf("%s[%d]", name, i), undo)
					}
				}
				batch.Compensate(ctx)
				return err
			}

			for i, undo := range undos {
				if undo != nil {
					s.Defer(fmt.Sprintf("%s[%d]", name, i), undo)
				}
			}
			return nil
		},
	}
}

// Package propagate applies an archived-state flip to every descendant of a
// document. The root itself is patched synchronously by the caller; the
// descendant fan-out runs as a background batch whose completion the caller
// may await through the returned Job or simply ignore. Descendants are
// therefore eventually consistent with the root, and a failed descendant
// patch never rolls back the root or its siblings.
package propagate

import (
	"context"
	"errors"
	"sync"

	"github.com/inkpad/inkpad/internal/document"
	"github.com/inkpad/inkpad/internal/document/repository"
	"github.com/inkpad/inkpad/pkg/logger"
	"github.com/inkpad/inkpad/pkg/metrics"
)

const defaultWorkers = 4

type Propagator struct {
	store   repository.Store
	workers int
}

func New(store repository.Store, workers int) *Propagator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Propagator{store: store, workers: workers}
}

// Job is the completion handle of one propagation batch.
type Job struct {
	done chan struct{}
	err  error
}

// Wait blocks until every descendant patch has been attempted and returns the
// joined errors, if any.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// Done exposes the completion channel for select-based callers.
func (j *Job) Done() <-chan struct{} { return j.done }

// Run flips isArchived to archived on every descendant of rootID reachable
// through the owner+parent index. The traversal runs on a background context
// detached from the originating request, so an abandoned HTTP request does
// not strand a half-propagated subtree.
func (p *Propagator) Run(ownerID, rootID string, archived bool) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		ctx := context.Background()

		ids, collectErr := p.collect(ctx, ownerID, rootID)

		sem := make(chan struct{}, p.workers)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var errs []error
		if collectErr != nil {
			errs = append(errs, collectErr)
		}
		for _, id := range ids {
			wg.Add(1)
			sem <- struct{}{}
			go func(id string) {
				defer wg.Done()
				defer func() { <-sem }()
				_, err := p.store.Patch(ctx, id, document.Patch{IsArchived: document.Ptr(archived)})
				metrics.PropagationPatches.Inc()
				if err != nil {
					metrics.PropagationFailures.Inc()
					logger.Errorf("propagate: patch %s (archived=%v): %v", id, archived, err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()
		j.err = errors.Join(errs...)
	}()
	return j
}

// collect walks the subtree breadth-first and returns every descendant ID,
// excluding the root. The visited set guarantees termination even if the
// parent-pointer graph is corrupt.
func (p *Propagator) collect(ctx context.Context, ownerID, rootID string) ([]string, error) {
	visited := map[string]bool{rootID: true}
	queue := []string{rootID}
	var ids []string
	var errs []error
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := p.store.ByOwnerAndParent(ctx, ownerID, id)
		if err != nil {
			// a failed child query skips that branch, not the whole batch
			errs = append(errs, err)
			continue
		}
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			ids = append(ids, c.ID)
			queue = append(queue, c.ID)
		}
	}
	return ids, errors.Join(errs...)
}

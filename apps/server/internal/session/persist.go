package session

import (
	"context"
	"log"
	"sync"

	"baccarat-road/apps/server/internal/prefs"
	"baccarat-road/apps/server/internal/store"
)

type persistFunc func(ctx context.Context, st store.Service, p prefs.Store) error

type persistJob struct {
	name string
	fn   persistFunc
	// flush marker when non-nil
	ack chan struct{}
}

// persister runs writes in submission order on one goroutine. The actor never
// waits on it; failures are logged and dropped.
type persister struct {
	store store.Service
	prefs prefs.Store

	mu     sync.Mutex
	closed bool
	jobs   chan persistJob
	done   chan struct{}
}

func newPersister(st store.Service, p prefs.Store) *persister {
	w := &persister{
		store: st,
		prefs: p,
		jobs:  make(chan persistJob, 256),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *persister) run() {
	defer close(w.done)
	for job := range w.jobs {
		if job.ack != nil {
			close(job.ack)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := job.fn(ctx, w.store, w.prefs); err != nil {
			log.Printf("[Persist] %s failed: err=%v", job.name, err)
		}
		cancel()
	}
}

func (w *persister) enqueue(name string, fn persistFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		log.Printf("[Persist] %s dropped: persister stopped", name)
		return
	}
	w.jobs <- persistJob{name: name, fn: fn}
}

func (w *persister) flush(ctx context.Context) error {
	ack := make(chan struct{})
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return nil
	}
	w.jobs <- persistJob{ack: ack}
	w.mu.Unlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop drains queued jobs and waits for the worker to exit.
func (w *persister) stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

package luabind

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned for calls made after Worker.Stop.
var ErrWorkerStopped = errors.New("lua worker stopped")

// job is one call waiting for the Lua goroutine. reply is buffered so the
// worker never blocks on a caller that gave up.
type job struct {
	fn    func(*Binding) (any, error)
	reply chan reply
}

type reply struct {
	value any
	err   error
}

// Worker owns the goroutine that drives a Binding. Script runs, sweeps and
// anything else reaching the Lua state from timers or OS signal handlers go
// through Do.
type Worker struct {
	b      *Binding
	jobs   chan job
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// NewWorker starts the Lua goroutine for b.
func NewWorker(b *Binding) *Worker {
	w := &Worker{
		b:      b,
		jobs:   make(chan job),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go w.serve()
	return w
}

func (w *Worker) serve() {
	defer close(w.exited)
	for {
		select {
		case j := <-w.jobs:
			j.reply <- w.run(j.fn)
		case <-w.quit:
			return
		}
	}
}

// run calls fn and reports a panic as its error.
func (w *Worker) run(fn func(*Binding) (any, error)) (r reply) {
	defer func() {
		if p := recover(); p != nil {
			r = reply{err: fmt.Errorf("lua worker: %v", p)}
		}
	}()
	r.value, r.err = fn(w.b)
	return r
}

// Do runs fn on the Lua goroutine and waits for its result.
func (w *Worker) Do(fn func(*Binding) (any, error)) (any, error) {
	return w.DoContext(context.Background(), fn)
}

// DoContext is Do bounded by ctx. A job the worker already accepted runs to
// completion even if ctx ends first; only its result is dropped.
func (w *Worker) DoContext(ctx context.Context, fn func(*Binding) (any, error)) (any, error) {
	j := job{fn: fn, reply: make(chan reply, 1)}
	select {
	case w.jobs <- j:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-j.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop stops the Lua goroutine and returns once it has exited, after the
// job in progress, if any. The Binding may be closed afterwards.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.quit) })
	<-w.exited
}

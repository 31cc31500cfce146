package engine

import (
	"context"
	"sync"

	"github.com/gyaneshwarpardhi/eventbridge/internal/event"
)

// task is one queued event, with an optional channel for the synchronous
// caller waiting on the result.
type task struct {
	ev      *event.Event
	resultC chan *Result
}

// pool is a fixed-size goroutine pool with a bounded input queue. Submit
// never blocks; a full queue is an explicit rejection the caller handles.
type pool struct {
	queue chan task
	wg    sync.WaitGroup
}

func newPool(ctx context.Context, workers, depth int, run func(*event.Event) *Result) *pool {
	p := &pool{queue: make(chan task, depth)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case t, ok := <-p.queue:
					if !ok {
						return
					}
					res := run(t.ev)
					if t.resultC != nil {
						t.resultC <- res
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return p
}

// submit enqueues a task without blocking; returns false when the queue is full.
func (p *pool) submit(t task) bool {
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// drain closes the queue and waits for all workers to finish.
func (p *pool) drain() {
	close(p.queue)
	p.wg.Wait()
}

func (p *pool) queued() int   { return len(p.queue) }
func (p *pool) capacity() int { return cap(p.queue) }

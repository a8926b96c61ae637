package zkpath

import "sync"

// Pool is a fixed-size worker pool implementing session.Executor. It backs
// operation callbacks and watch deliveries when the caller does not supply
// an executor of their own.
type Pool struct {
	mu     sync.RWMutex
	tasks  chan func()
	wg     sync.WaitGroup
	closed bool
}

// NewPool starts a pool with the given number of workers (minimum 1).
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{tasks: make(chan func(), 64)}
	p.wg.Add(workers)
	for range workers {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit enqueues a task. If all workers are busy and the queue is full the
// task runs on its own goroutine so submission never blocks. Tasks submitted
// after Close are dropped.
func (p *Pool) Submit(task func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.tasks <- task:
	default:
		go task()
	}
}

// Close stops the workers after draining queued tasks.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

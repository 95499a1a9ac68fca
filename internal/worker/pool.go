package worker

import (
	"sync"

	"github.com/simplepos/pos-backend/internal/metrics"
)

type task func()

// Pool runs submitted tasks on a fixed number of goroutines. The service
// uses it for audit writes so a slow audit medium never delays a payment.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
				metrics.WorkerQueueDepth.Dec()
			}
		}()
	}
	return p
}

func (p *Pool) Submit(f task) {
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

// Stop drains the queue and waits for in-flight tasks.
func (p *Pool) Stop() { close(p.jobs); p.wg.Wait() }

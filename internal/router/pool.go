package router

import (
	"context"
	"sync"

	"github.com/flemzord/tgrelay/pkg/message"
)

// DefaultWorkerCount is the number of workers when no size is specified.
const DefaultWorkerCount = 10

// WorkerPool manages a fixed set of goroutines that consume from the inbox.
type WorkerPool struct {
	size int
	wg   sync.WaitGroup
}

// NewWorkerPool creates a pool with the given size.
// If size <= 0, DefaultWorkerCount is used.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = DefaultWorkerCount
	}
	return &WorkerPool{size: size}
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.size
}

// Start launches worker goroutines that consume messages from inbox until
// it is closed.
func (p *WorkerPool) Start(ctx context.Context, inbox <-chan message.InboundMessage, handler func(context.Context, message.InboundMessage)) {
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for msg := range inbox {
				handler(ctx, msg)
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

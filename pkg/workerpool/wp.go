package workerpool

import (
	"context"
	"sync"

	"github.com/JonnyShabli/imgfetch/pkg/logster"
)

// WorkerPool runs f over jobs with a fixed number of goroutines.
// Out is closed once every worker has returned.
type WorkerPool[J, R any] struct {
	name       string
	numWorkers int
	In         chan J
	Out        chan R
	wg         *sync.WaitGroup
	logger     logster.Logger
	f          func(context.Context, J) R
	closeOnce  sync.Once
}

func NewWorkerPool[J, R any](numWorkers int, logger logster.Logger, name string, f func(context.Context, J) R) *WorkerPool[J, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	logger.Debugf("%s pool created with %d workers", name, numWorkers)
	return &WorkerPool[J, R]{
		name:       name,
		numWorkers: numWorkers,
		In:         make(chan J),
		Out:        make(chan R),
		wg:         &sync.WaitGroup{},
		logger:     logger,
		f:          f,
	}
}

// AddJob blocks until a worker accepts the job or ctx is done.
// It reports whether the job was accepted.
func (wp *WorkerPool[J, R]) AddJob(ctx context.Context, job J) bool {
	select {
	case wp.In <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close signals that no more jobs will be added.
func (wp *WorkerPool[J, R]) Close() {
	wp.closeOnce.Do(func() { close(wp.In) })
}

func (wp *WorkerPool[J, R]) Results() <-chan R {
	return wp.Out
}

// Start launches the workers. A job already taken from In is always run to
// completion and its result delivered; f is expected to honour ctx itself.
func (wp *WorkerPool[J, R]) Start(ctx context.Context) {
	wp.logger.Debugf("Starting %s worker pool", wp.name)
	wp.wg.Add(wp.numWorkers)
	for range wp.numWorkers {
		go func() {
			defer wp.wg.Done()
			for {
				select {
				case job, ok := <-wp.In:
					if !ok {
						return
					}
					wp.Out <- wp.f(ctx, job)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wp.wg.Wait()
		wp.logger.Debugf("Stopping %s worker pool", wp.name)
		close(wp.Out)
	}()
}

package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
	"shopscraper/pkg/models"
)

// RunFunc scrapes one category
type RunFunc func(ctx context.Context, task models.CategoryTask) (models.CategoryResult, error)

// Outcome is the result of one task. Err is a *errors.WorkerError when the
// task failed or panicked.
type Outcome struct {
	Task     models.CategoryTask
	Result   models.CategoryResult
	Err      error
	Slot     int
	Duration time.Duration
}

// Pool runs category tasks on a fixed number of goroutines
type Pool struct {
	numWorkers  int
	jobQueue    chan models.CategoryTask
	resultQueue chan Outcome
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	run         RunFunc
	logger      logger.Logger
	stopOnce    sync.Once
}

// New creates a pool of numWorkers goroutines calling run
func New(numWorkers int, run RunFunc, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan models.CategoryTask, numWorkers*2),
		resultQueue: make(chan Outcome, numWorkers),
		run:         run,
		logger:      log,
	}
}

// Start launches the workers. Tasks run with ctx; cancelling it makes
// Submit fail but every accepted task still reports an outcome.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, waits for accepted tasks and closes Results.
// Results must be drained concurrently.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		close(p.resultQueue)
		p.cancel()
		p.logger.Debug("Worker pool stopped")
	})
}

// Submit queues a task, blocking while the queue is full
func (p *Pool) Submit(task models.CategoryTask) error {
	if p.ctx.Err() != nil {
		return errors.ErrPoolStopped
	}
	select {
	case p.jobQueue <- task:
		return nil
	case <-p.ctx.Done():
		return errors.ErrPoolStopped
	}
}

// Results returns the channel outcomes are delivered on
func (p *Pool) Results() <-chan Outcome {
	return p.resultQueue
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.numWorkers
}

func (p *Pool) worker(slot int) {
	defer p.wg.Done()

	for task := range p.jobQueue {
		p.resultQueue <- p.process(task, slot)
	}
}

// process runs one task, turning a panic into a WorkerError so sibling
// tasks keep running.
func (p *Pool) process(task models.CategoryTask, slot int) (out Outcome) {
	start := time.Now()
	out = Outcome{Task: task, Slot: slot}

	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			p.logger.ErrorWithFields("Worker panicked", map[string]interface{}{
				"worker": task.WorkerIndex,
				"url":    task.URL,
				"panic":  fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			})
			out.Result = models.CategoryResult{WorkerIndex: task.WorkerIndex, Status: models.StatusAborted}
			out.Err = errors.NewWorkerError(task.URL, task.WorkerIndex, errors.ErrorTypePanic, fmt.Errorf("panic: %v", r))
		}
	}()

	result, err := p.run(p.ctx, task)
	out.Result = result
	if err != nil {
		var workerErr *errors.WorkerError
		if !errors.As(err, &workerErr) {
			err = errors.NewWorkerError(task.URL, task.WorkerIndex, errors.ErrorTypeUnknown, err)
		}
		out.Err = err
	}
	return out
}

package scraper

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"shopscraper/internal/workerpool"
	"shopscraper/pkg/catalog"
	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
	"shopscraper/pkg/models"
)

// isoTimestamp renders UTC offsets as +00:00
const isoTimestamp = "2006-01-02T15:04:05.999999-07:00"

// Options configures an Orchestrator
type Options struct {
	WorkerLimit  int
	LocalePrefix string
	Version      string
	Observer     Observer
}

// Orchestrator runs category tasks on a bounded pool and builds the report
type Orchestrator struct {
	runner TaskRunner
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator dispatching to runner
func NewOrchestrator(runner TaskRunner, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.WorkerLimit < 1 {
		opts.WorkerLimit = 1
	}
	return &Orchestrator{
		runner: runner,
		opts:   opts,
		logger: log.WithField("component", "orchestrator"),
		now:    time.Now,
	}
}

// runState accumulates outcomes while the pool drains
type runState struct {
	aggregate  *Aggregate
	aborted    []string
	products   int
	failed     int
	duplicates int
}

// Run scrapes every URL and returns the report. Failed categories never
// cancel their siblings; the report always reflects what completed.
func (o *Orchestrator) Run(ctx context.Context, urls []string) (*models.Report, error) {
	start := o.now()
	state := &runState{aggregate: NewAggregate()}

	tasks, keys := o.plan(urls, state)

	o.logger.InfoWithFields("Starting scrape", map[string]interface{}{
		"categories": len(tasks),
		"workers":    o.opts.WorkerLimit,
	})
	if o.opts.Observer != nil {
		o.opts.Observer.RunStarted(len(tasks), o.opts.WorkerLimit)
	}

	if len(tasks) > 0 {
		o.dispatch(ctx, tasks, keys, state)
	}

	if ctx.Err() != nil {
		o.logger.WithError(ctx.Err()).Warn("Run interrupted, reporting partial results")
	}

	report := &models.Report{
		Metadata: o.metadata(start, state),
		Products: state.aggregate.Snapshot(),
	}

	o.logger.InfoWithFields("Scrape finished", map[string]interface{}{
		"products":   report.Metadata.TotalProducts,
		"failed":     report.Metadata.TotalFailed,
		"duplicates": report.Metadata.TotalDuplicates,
		"categories": report.Metadata.CategoriesScraped,
		"aborted":    len(report.Metadata.CategoriesAborted),
		"duration":   report.Metadata.DurationSeconds,
	})
	return report, nil
}

// plan builds one task per distinct category. Invalid URLs are aborted up
// front and repeated categories are dropped.
func (o *Orchestrator) plan(urls []string, state *runState) ([]models.CategoryTask, map[string]string) {
	tasks := make([]models.CategoryTask, 0, len(urls))
	keys := make(map[string]string, len(urls))
	seen := make(map[string]bool, len(urls))

	for i, u := range urls {
		key, err := catalog.DeriveCategoryKey(u, o.opts.LocalePrefix)
		if err != nil {
			o.logger.WithError(err).WarnWithFields("Skipping invalid category URL", map[string]interface{}{"url": u})
			state.aborted = append(state.aborted, u)
			continue
		}
		if seen[key] {
			o.logger.WarnWithFields("Skipping repeated category", map[string]interface{}{"url": u, "category": key})
			continue
		}
		seen[key] = true
		keys[u] = key
		tasks = append(tasks, models.CategoryTask{URL: u, WorkerIndex: i})
	}
	return tasks, keys
}

func (o *Orchestrator) dispatch(ctx context.Context, tasks []models.CategoryTask, keys map[string]string, state *runState) {
	pool := workerpool.New(o.opts.WorkerLimit, o.runner.Run, o.logger)
	pool.Start(ctx)

	var (
		mu          sync.Mutex
		unsubmitted []models.CategoryTask
	)
	go func() {
		defer pool.Stop()
		for _, task := range tasks {
			if err := pool.Submit(task); err != nil {
				mu.Lock()
				unsubmitted = append(unsubmitted, task)
				mu.Unlock()
			}
		}
	}()

	for out := range pool.Results() {
		o.fold(out.Task, out.Result, out.Err, keys, state)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, task := range unsubmitted {
		err := errors.NewWorkerError(keys[task.URL], task.WorkerIndex, errors.ErrorTypeSession, errors.ErrPoolStopped)
		o.fold(task, models.CategoryResult{Status: models.StatusAborted}, err, keys, state)
	}
}

// fold merges one task outcome into the run state
func (o *Orchestrator) fold(task models.CategoryTask, result models.CategoryResult, err error, keys map[string]string, state *runState) {
	if result.Key == "" || result.Key == task.URL {
		result.Key = keys[task.URL]
	}
	result.WorkerIndex = task.WorkerIndex

	if err == nil && result.Status != models.StatusAborted {
		if putErr := state.aggregate.Put(result.Key, result.Records); putErr != nil {
			err = errors.NewWorkerError(result.Key, task.WorkerIndex, errors.ErrorTypeUnknown, putErr)
		}
	}

	if err != nil || result.Status == models.StatusAborted {
		result.Status = models.StatusAborted
		state.aborted = append(state.aborted, result.Key)
		o.logger.WithError(err).ErrorWithFields("Category aborted", map[string]interface{}{
			"worker":     task.WorkerIndex,
			"category":   result.Key,
			"error_type": string(errors.TypeOf(err)),
		})
	} else {
		state.products += len(result.Records)
		state.failed += result.Failed
		state.duplicates += result.Duplicates
		o.logger.InfoWithFields("Finished category", map[string]interface{}{
			"worker":   task.WorkerIndex,
			"category": result.Key,
			"products": len(result.Records),
		})
	}

	if o.opts.Observer != nil {
		o.opts.Observer.CategoryFinished(result, err)
	}
}

func (o *Orchestrator) metadata(start time.Time, state *runState) models.RunMetadata {
	end := o.now()
	aborted := state.aborted
	if aborted == nil {
		aborted = []string{}
	}

	return models.RunMetadata{
		RunID:             uuid.NewString(),
		Datetime:          end.UTC().Format(isoTimestamp),
		ScraperVersion:    o.opts.Version,
		DurationSeconds:   math.Round(end.Sub(start).Seconds()*100) / 100,
		TotalProducts:     state.products,
		TotalFailed:       state.failed,
		TotalDuplicates:   state.duplicates,
		CategoriesScraped: state.aggregate.Len(),
		Categories:        state.aggregate.Keys(),
		CategoriesAborted: aborted,
	}
}

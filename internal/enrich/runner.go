package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mediavault.org/internal/obs"
)

const (
	minBatchSize = 1

	minPause = time.Second
	maxPause = 5 * time.Minute

	// Error strings are truncated so a long outage cannot balloon the
	// response body.
	maxBatchErrors  = 10
	maxRunAllErrors = 20
)

// BatchParams controls a single RunOnce invocation. Batch size and
// delay ranges come from the source's Limits.
type BatchParams struct {
	BatchSize int
	Delay     time.Duration
}

func (p BatchParams) validate(maxBatch int, lim Limits) error {
	if p.BatchSize < minBatchSize || p.BatchSize > maxBatch {
		return fmt.Errorf("%w: batchSize %d out of range [%d,%d]",
			ErrInvalidParameter, p.BatchSize, minBatchSize, maxBatch)
	}
	if p.Delay < lim.MinDelay || p.Delay > lim.MaxDelay {
		return fmt.Errorf("%w: delay %s out of range [%s,%s]",
			ErrInvalidParameter, p.Delay, lim.MinDelay, lim.MaxDelay)
	}
	return nil
}

// RunAllParams controls a RunAll invocation.
type RunAllParams struct {
	BatchSize int
	Delay     time.Duration
	MaxItems  int
	Pause     time.Duration
}

func (p RunAllParams) validate(lim Limits) error {
	if err := (BatchParams{BatchSize: p.BatchSize, Delay: p.Delay}).validate(lim.MaxBatchRunAll, lim); err != nil {
		return err
	}
	if p.MaxItems < 1 || p.MaxItems > lim.MaxItems {
		return fmt.Errorf("%w: maxItems %d out of range [1,%d]",
			ErrInvalidParameter, p.MaxItems, lim.MaxItems)
	}
	if p.Pause < minPause || p.Pause > maxPause {
		return fmt.Errorf("%w: pause %s out of range [%s,%s]",
			ErrInvalidParameter, p.Pause, minPause, maxPause)
	}
	return nil
}

// BatchResult is the outcome of one batch.
type BatchResult struct {
	Kind           string   `json:"kind"`
	TotalProcessed int      `json:"totalProcessed"`
	Enriched       int      `json:"enrichedCount"`
	NotFound       int      `json:"notFoundCount"`
	Failed         int      `json:"failedCount"`
	Errors         []string `json:"errors,omitempty"`
	Message        string   `json:"message"`
}

// RunAllResult aggregates BatchResults across one RunAll invocation.
type RunAllResult struct {
	Kind           string   `json:"kind"`
	TotalProcessed int      `json:"totalProcessed"`
	Enriched       int      `json:"enrichedCount"`
	NotFound       int      `json:"notFoundCount"`
	Failed         int      `json:"failedCount"`
	BatchesRun     int      `json:"batchesRun"`
	Remaining      int      `json:"remainingPending"`
	Errors         []string `json:"errors,omitempty"`
	Message        string   `json:"message"`
}

// Event is a progress notification emitted while a run executes.
// Subscribers (the SSE endpoint) receive them best-effort.
type Event struct {
	Kind      string    `json:"kind"`
	Stage     string    `json:"stage"`
	Batch     int       `json:"batch"`
	Processed int       `json:"processed"`
	Enriched  int       `json:"enriched"`
	NotFound  int       `json:"notFound"`
	Failed    int       `json:"failed"`
	Pending   int       `json:"pending"`
	At        time.Time `json:"at"`
}

// Event stages.
const (
	StageBatchStarted   = "batch_started"
	StageBatchCompleted = "batch_completed"
	StageRunCompleted   = "run_completed"
)

// Runner drives the batch enrichment loop for any Source. Items within
// a batch are processed strictly sequentially with a fixed pacing delay
// between external calls; RunAll adds a longer pause between batches.
// Both delays are rate-limit courtesy toward the external catalogs, not
// retry backoff.
type Runner struct {
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	notify func(Event)
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(log zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// WithNotifier registers a progress event callback. The callback must
// not block; the runner calls it inline.
func WithNotifier(fn func(Event)) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.notify = fn
		}
	}
}

// WithSleep overrides the sleep function (tests use this to run
// instantly and to record requested delays).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithRunnerClock overrides the time source.
func WithRunnerClock(fn func() time.Time) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRunner constructs a Runner with context-aware sleeping.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		log:    zerolog.Nop(),
		sleep:  sleepContext,
		notify: func(Event) {},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunOnce processes a single batch of up to BatchSize pending items.
func (r *Runner) RunOnce(ctx context.Context, src Source, p BatchParams) (BatchResult, error) {
	lim := src.Limits()
	if err := p.validate(lim.MaxBatchOnce, lim); err != nil {
		return BatchResult{}, err
	}
	res, err := r.runBatch(ctx, src, 1, p.BatchSize, p.Delay)
	if err != nil {
		return BatchResult{}, err
	}
	res.Message = fmt.Sprintf("processed %d %s item(s): %d enriched, %d not found, %d failed",
		res.TotalProcessed, src.Kind(), res.Enriched, res.NotFound, res.Failed)
	return res, nil
}

// RunAll loops RunOnce-sized batches until the source is exhausted, the
// MaxItems cap is reached, or a batch makes no forward progress. The
// shrinking budget min(BatchSize, MaxItems-processed) keeps the final
// batch from overshooting the cap.
func (r *Runner) RunAll(ctx context.Context, src Source, p RunAllParams) (RunAllResult, error) {
	if err := p.validate(src.Limits()); err != nil {
		return RunAllResult{}, err
	}

	agg := RunAllResult{Kind: src.Kind()}
	pending, err := src.CountPending(ctx)
	if err != nil {
		return RunAllResult{}, fmt.Errorf("count pending: %w", err)
	}

	for pending > 0 && agg.TotalProcessed < p.MaxItems {
		budget := p.BatchSize
		if remaining := p.MaxItems - agg.TotalProcessed; remaining < budget {
			budget = remaining
		}

		res, err := r.runBatch(ctx, src, agg.BatchesRun+1, budget, p.Delay)
		if err != nil {
			return RunAllResult{}, err
		}
		agg.BatchesRun++
		agg.TotalProcessed += res.TotalProcessed
		agg.Enriched += res.Enriched
		agg.NotFound += res.NotFound
		agg.Failed += res.Failed
		for _, e := range res.Errors {
			if len(agg.Errors) >= maxRunAllErrors {
				break
			}
			agg.Errors = append(agg.Errors, e)
		}

		// An empty batch means the store is not shrinking; stop rather
		// than spin forever.
		if res.TotalProcessed == 0 {
			break
		}

		pending, err = src.CountPending(ctx)
		if err != nil {
			return RunAllResult{}, fmt.Errorf("count pending: %w", err)
		}
		if pending == 0 || agg.TotalProcessed >= p.MaxItems {
			break
		}
		r.log.Debug().Str("kind", src.Kind()).Int("pending", pending).
			Dur("pause", p.Pause).Msg("pausing between enrichment batches")
		if err := r.sleep(ctx, p.Pause); err != nil {
			return RunAllResult{}, err
		}
	}

	agg.Remaining = pending
	agg.Message = fmt.Sprintf("ran %d batch(es), processed %d %s item(s): %d enriched, %d not found, %d failed, %d still pending",
		agg.BatchesRun, agg.TotalProcessed, src.Kind(), agg.Enriched, agg.NotFound, agg.Failed, agg.Remaining)

	r.notify(Event{
		Kind:      src.Kind(),
		Stage:     StageRunCompleted,
		Batch:     agg.BatchesRun,
		Processed: agg.TotalProcessed,
		Enriched:  agg.Enriched,
		NotFound:  agg.NotFound,
		Failed:    agg.Failed,
		Pending:   agg.Remaining,
		At:        r.now(),
	})
	return agg, nil
}

func (r *Runner) runBatch(ctx context.Context, src Source, batchNum, size int, delay time.Duration) (BatchResult, error) {
	kind := src.Kind()
	res := BatchResult{Kind: kind}

	items, err := src.PendingBatch(ctx, size)
	if err != nil {
		return BatchResult{}, fmt.Errorf("fetch pending batch: %w", err)
	}

	r.notify(Event{Kind: kind, Stage: StageBatchStarted, Batch: batchNum, Pending: len(items), At: r.now()})
	r.log.Info().Str("kind", kind).Int("batch", batchNum).Int("items", len(items)).
		Msg("enrichment batch started")

	for i, item := range items {
		if i > 0 {
			if err := r.sleep(ctx, delay); err != nil {
				return BatchResult{}, err
			}
		}
		res.TotalProcessed++

		switch err := src.Enrich(ctx, item); {
		case err == nil:
			res.Enriched++
			obs.CountEnrichItem(kind, "enriched")
		case errors.Is(err, ErrNoMatch):
			res.NotFound++
			obs.CountEnrichItem(kind, "not_found")
		default:
			res.Failed++
			obs.CountEnrichItem(kind, "failed")
			if len(res.Errors) < maxBatchErrors {
				res.Errors = append(res.Errors, fmt.Sprintf("%s (%s): %v", item.Label, item.ID, err))
			}
			r.log.Warn().Str("kind", kind).Str("item", item.ID).Err(err).
				Msg("enrichment failed for item")
		}
	}

	outcome := "ok"
	if res.Failed > 0 && res.Enriched == 0 {
		outcome = "all_failed"
	}
	obs.CountEnrichBatch(kind, outcome)

	r.notify(Event{
		Kind:      kind,
		Stage:     StageBatchCompleted,
		Batch:     batchNum,
		Processed: res.TotalProcessed,
		Enriched:  res.Enriched,
		NotFound:  res.NotFound,
		Failed:    res.Failed,
		At:        r.now(),
	})
	r.log.Info().Str("kind", kind).Int("batch", batchNum).
		Int("processed", res.TotalProcessed).Int("enriched", res.Enriched).
		Int("not_found", res.NotFound).Int("failed", res.Failed).
		Msg("enrichment batch completed")
	return res, nil
}

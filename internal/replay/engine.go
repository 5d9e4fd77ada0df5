// Package replay streams a recorded CAN trace through the charge tracker.
package replay

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charge-telemetry/backend/internal/charge"
	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/parser"
	"github.com/charge-telemetry/backend/internal/signaldb"
	"github.com/charge-telemetry/backend/internal/storage"
)

// Configuration errors. Each becomes the single error record of a stream.
var (
	ErrUnknownLog       = errors.New("invalid log parameter")
	ErrSignalDBNotFound = errors.New("signal database not found")
	ErrLogNotFound      = errors.New("log file not found")
)

// ErrReplayFailed wraps a failure after streaming started: a read error or a recovered panic.
var ErrReplayFailed = errors.New("charge monitoring failed")

// unknownLogLabel keeps caller-supplied names out of metric labels.
const unknownLogLabel = "unknown"

// Request selects a log and the gating policy of one replay.
type Request struct {
	Log      string
	SkipIdle bool
	Duration *float64 // log-relative seconds; nil means unlimited
}

// Options are the engine constants.
type Options struct {
	SnapshotInterval uint64
	Yield            time.Duration
	MinEnergyKWh     float64
	MaxEnergyKWh     float64
	Calculator       charge.Calculator
}

// DefaultOptions returns the production constants.
func DefaultOptions() Options {
	return Options{
		SnapshotInterval: charge.DefaultSnapshotInterval,
		Yield:            10 * time.Millisecond,
		MinEnergyKWh:     charge.DefaultMinEnergyKWh,
		MaxEnergyKWh:     charge.DefaultMaxEnergyKWh,
		Calculator:       charge.DefaultCalculator(),
	}
}

// Emitter receives records in order: zero or more *models.ProgressRecord then one
// *models.SummaryRecord, or a single *models.ErrorRecord. A non-nil return means
// the consumer is gone and the replay stops without further records.
type Emitter func(record any) error

// Result describes how a replay ended.
type Result struct {
	Status    models.ReplayStatus
	Messages  uint64
	Snapshots uint64
	Err       error
}

// Engine runs replays. It holds no per-replay state and is safe for concurrent use.
type Engine struct {
	catalog *storage.Catalog
	loader  *signaldb.Loader
	opts    Options
	log     logrus.FieldLogger
	metrics *Metrics
}

// NewEngine creates an engine. metrics may be nil.
func NewEngine(catalog *storage.Catalog, loader *signaldb.Loader, opts Options, logger logrus.FieldLogger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		catalog: catalog,
		loader:  loader,
		opts:    opts,
		log:     logger,
		metrics: metrics,
	}
}

// Catalog returns the log catalog the engine resolves against.
func (e *Engine) Catalog() *storage.Catalog {
	return e.catalog
}

// Options returns the engine constants.
func (e *Engine) Options() Options {
	return e.opts
}

// resources are acquired in Init and owned by one replay.
type resources struct {
	db     *signaldb.Database
	source *parser.Source
}

// Run executes one replay synchronously, pushing records to emit.
func (e *Engine) Run(ctx context.Context, req Request, emit Emitter) Result {
	name := req.Log
	if name == "" {
		name = e.catalog.DefaultLog()
	}

	label := name
	if _, ok := e.catalog.LogPath(name); !ok {
		label = unknownLogLabel
	}

	logger := e.log.WithFields(logrus.Fields{"log": name, "skip_idle": req.SkipIdle})
	start := time.Now()
	e.metrics.started()

	res := e.run(ctx, name, label, req, emit, logger)

	e.metrics.ended(label, res.Status, time.Since(start))
	entry := logger.WithFields(logrus.Fields{
		"outcome":   res.Status,
		"messages":  res.Messages,
		"snapshots": res.Snapshots,
		"elapsed":   time.Since(start).Round(time.Millisecond),
	})
	if res.Err != nil {
		entry.WithError(res.Err).Warn("replay ended with error")
	} else {
		entry.Info("replay ended")
	}
	return res
}

func (e *Engine) run(ctx context.Context, name, label string, req Request, emit Emitter, logger logrus.FieldLogger) Result {
	rs, err := e.acquire(name)
	if err != nil {
		var available []string
		if errors.Is(err, ErrUnknownLog) || errors.Is(err, ErrLogNotFound) {
			available = e.catalog.Names()
		}
		if emitErr := emit(models.NewErrorRecord(err.Error(), available)); emitErr != nil {
			return Result{Status: models.ReplayStatusCancelled, Err: err}
		}
		return Result{Status: models.ReplayStatusErrored, Err: err}
	}
	defer rs.source.Close()

	return e.stream(ctx, name, label, req, rs, emit, logger)
}

// acquire resolves and opens everything a replay needs. Failures here are
// configuration errors: nothing partial is ever emitted for them.
func (e *Engine) acquire(name string) (*resources, error) {
	logPath, ok := e.catalog.LogPath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLog, name)
	}

	db, err := e.loader.Load(e.catalog.SignalDBPath())
	if err != nil {
		if errors.Is(err, signaldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSignalDBNotFound, e.catalog.SignalDBPath())
		}
		return nil, err
	}

	if !e.catalog.Exists(logPath) {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, logPath)
	}
	src, err := parser.OpenSource(e.catalog.Fs(), logPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogNotFound, err)
	}

	return &resources{db: db, source: src}, nil
}

func (e *Engine) stream(ctx context.Context, name, label string, req Request, rs *resources, emit Emitter, logger logrus.FieldLogger) (res Result) {
	tracker := charge.NewTracker(req.SkipIdle, charge.WithEnergyWindow(e.opts.MinEnergyKWh, e.opts.MaxEnergyKWh))
	state := tracker.State()
	gate := charge.NewGate(req.SkipIdle, e.opts.SnapshotInterval)
	limiter := charge.NewDurationLimiter(req.Duration)

	res.Status = models.ReplayStatusStreaming

	defer func() {
		r := recover()
		res.Messages = state.MessageCount
		if r == nil {
			return
		}
		logger.WithField("panic", r).Error("replay panicked")
		res = abort(res, fmt.Errorf("%w: %v", ErrReplayFailed, r), emit)
	}()

	src := rs.source
	for src.Next() {
		if ctx.Err() != nil {
			res.Status = models.ReplayStatusCancelled
			return res
		}

		line := parser.ParseLine(src.Text())
		if line.Kind == parser.LineSkipped {
			continue
		}
		if limiter.Observe(state, line.Timestamp) {
			logger.WithField("duration_limit", *limiter.Budget()).Debug("duration budget exceeded")
			break
		}
		if line.Kind != parser.LineFrame {
			continue
		}

		id := line.Frame.Identifier
		tracker.Apply(id, rs.db.Decode(id, line.Frame.Payload))
		e.metrics.frame(label, charge.KindOf(id))

		if !gate.Admit(state) {
			continue
		}
		if err := emit(charge.Progress(state, req.SkipIdle)); err != nil {
			res.Status = models.ReplayStatusCancelled
			return res
		}
		res.Snapshots++
		if !e.yield(ctx) {
			res.Status = models.ReplayStatusCancelled
			return res
		}
	}

	if err := src.Err(); err != nil {
		return abort(res, fmt.Errorf("%w: reading %s: %v", ErrReplayFailed, name, err), emit)
	}
	if dropped := src.Dropped(); dropped > 0 {
		logger.WithField("dropped_lines", dropped).Warn("skipped lines over the length limit")
	}
	if ctx.Err() != nil {
		res.Status = models.ReplayStatusCancelled
		return res
	}

	summary := charge.Summary(state, e.opts.Calculator, charge.SummaryOptions{
		LogName:          name,
		SkipIdle:         req.SkipIdle,
		DurationLimit:    limiter.Budget(),
		DurationExceeded: limiter.Exceeded(),
	})
	if err := emit(summary); err != nil {
		res.Status = models.ReplayStatusCancelled
		return res
	}
	res.Status = models.ReplayStatusFinished
	return res
}

// abort ends a started replay with a single error record.
func abort(res Result, err error, emit Emitter) Result {
	res.Err = err
	res.Status = models.ReplayStatusErrored
	if emit(models.NewErrorRecord(err.Error(), nil)) != nil {
		res.Status = models.ReplayStatusCancelled
	}
	return res
}

// yield suspends briefly after a snapshot so one replay cannot starve others.
// It reports false when ctx was cancelled meanwhile.
func (e *Engine) yield(ctx context.Context) bool {
	if e.opts.Yield <= 0 {
		runtime.Gosched()
		return ctx.Err() == nil
	}

	timer := time.NewTimer(e.opts.Yield)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stream runs a replay on its own goroutine and returns its records on an
// unbuffered channel, closed when the replay ends. Cancelling ctx stops the
// replay and closes the channel without a summary.
func (e *Engine) Stream(ctx context.Context, req Request) <-chan any {
	out := make(chan any)

	go func() {
		defer close(out)
		e.Run(ctx, req, func(record any) error {
			select {
			case out <- record:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return out
}

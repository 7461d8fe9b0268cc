package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"runtime"
	"time"

	"netauction/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Sink persists the aggregated result of one rho. It is called once per
// rho, in sweep order, after every trial for that rho has completed.
type Sink interface {
	WriteSweep(ctx context.Context, r *domain.SweepResult) error
}

// TrialEvent describes a completed trial.
type TrialEvent struct {
	Rho     decimal.Decimal
	Trial   int
	NIter   int
	Elapsed time.Duration
}

// Observer receives progress notifications. TrialDone may be called from
// several goroutines at once.
type Observer interface {
	TrialDone(ev TrialEvent)
	SweepDone(r *domain.SweepResult)
}

// Recorder receives counters from the simulation loop. Implementations
// must be safe for concurrent use.
type Recorder interface {
	RecordDay(stats domain.DayStats)
	RecordTrial(elapsed time.Duration)
}

// Driver runs independent trials over a sweep of rho values.
type Driver struct {
	params    domain.Params
	seed      int64
	workers   int
	dumpDir   string
	sinks     []Sink
	observers []Observer
	recorder  Recorder
}

// Option configures a Driver.
type Option func(*Driver)

// WithSeed fixes the master seed. Zero seeds from the clock.
func WithSeed(seed int64) Option {
	return func(d *Driver) { d.seed = seed }
}

// WithWorkers bounds the number of trials running at once.
// Zero or less uses one worker per CPU.
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

// WithSinks appends result sinks, called in the given order.
func WithSinks(sinks ...Sink) Option {
	return func(d *Driver) { d.sinks = append(d.sinks, sinks...) }
}

// WithObservers appends progress observers.
func WithObservers(obs ...Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, obs...) }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithDumpDir sets where a panicking trial dumps its market state.
func WithDumpDir(dir string) Option {
	return func(d *Driver) { d.dumpDir = dir }
}

// NewDriver creates a driver for the given market constants.
func NewDriver(params domain.Params, opts ...Option) *Driver {
	d := &Driver{params: params, dumpDir: "."}
	for _, opt := range opts {
		opt(d)
	}
	if d.seed == 0 {
		d.seed = time.Now().UnixNano()
	}
	if d.workers <= 0 {
		d.workers = runtime.NumCPU()
	}
	return d
}

// Seed returns the master seed in effect.
func (d *Driver) Seed() int64 {
	return d.seed
}

// Validate checks the run parameters before any simulation starts.
func (d *Driver) Validate(sweep []decimal.Decimal, nIter, nDays int) error {
	if err := d.params.Validate(); err != nil {
		return err
	}
	if len(sweep) == 0 {
		return domain.NewConfigError("experiment.rho_values", domain.ErrEmptySweep)
	}
	for _, rho := range sweep {
		if err := domain.ValidateRho(rho.InexactFloat64()); err != nil {
			return err
		}
	}
	if nIter <= 0 {
		return domain.NewConfigError("experiment.n_iter", fmt.Errorf("%w: %d", domain.ErrNotPositive, nIter))
	}
	if nDays <= 0 {
		return domain.NewConfigError("experiment.n_days", fmt.Errorf("%w: %d", domain.ErrNotPositive, nDays))
	}
	return nil
}

// Run executes nIter trials of nDays days for every rho, in sweep order.
//
// The trial seeds are drawn from the master seed before any trial starts,
// so a given seed yields identical results whatever the worker count.
// Any trial error aborts the whole run.
func (d *Driver) Run(ctx context.Context, sweep []decimal.Decimal, nIter, nDays int) error {
	if err := d.Validate(sweep, nIter, nDays); err != nil {
		return err
	}

	master := newSource(d.seed)
	slog.InfoContext(ctx, "Experiment started",
		slog.Int64("seed", d.seed),
		slog.Int("rho_values", len(sweep)),
		slog.Int("n_iter", nIter),
		slog.Int("n_days", nDays),
		slog.Int("workers", d.workers))

	for _, rho := range sweep {
		seeds := make([]int64, nIter)
		for i := range seeds {
			seeds[i] = master.Int63()
		}

		result, err := d.runSweep(ctx, rho, seeds, nDays)
		if err != nil {
			return err
		}

		for _, sink := range d.sinks {
			if err := sink.WriteSweep(ctx, result); err != nil {
				return fmt.Errorf("write rho=%s: %w", rho, err)
			}
		}
		for _, obs := range d.observers {
			obs.SweepDone(result)
		}
	}

	slog.InfoContext(ctx, "Experiment completed", slog.Int64("seed", d.seed))
	return nil
}

func (d *Driver) runSweep(ctx context.Context, rho decimal.Decimal, seeds []int64, nDays int) (*domain.SweepResult, error) {
	slog.InfoContext(ctx, "Sweep started", slog.String("rho", rho.String()))

	result := domain.NewSweepResult(rho, len(seeds), nDays)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for trial, seed := range seeds {
		trial, seed := trial, seed
		g.Go(func() error {
			return d.runTrial(gctx, result, trial, seed)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// runTrial fills one trial's column of result. Trials write disjoint
// indices, so no locking is needed.
func (d *Driver) runTrial(ctx context.Context, result *domain.SweepResult, trial int, seed int64) (err error) {
	start := time.Now()
	rho := result.Rho.InexactFloat64()

	var m *Market
	defer func() {
		if r := recover(); r != nil {
			slog.Error("TRIAL_PANIC", slog.String("rho", result.Rho.String()), slog.Int("trial", trial), slog.Any("panic", r))
			if m != nil {
				m.DumpState(filepath.Join(d.dumpDir, fmt.Sprintf("panic_dump_rho%s_trial%d.json", result.Rho, trial)))
			}
			err = fmt.Errorf("%w: rho=%s trial=%d: %v", domain.ErrTrialPanic, result.Rho, trial, r)
		}
	}()

	m = NewMarket(newSource(seed), rho, d.params)
	if isolated := m.IsolatedBuyers(); isolated > 0 {
		slog.WarnContext(ctx, "Buyers without connections",
			slog.Any("warning", &domain.DivergenceWarning{Rho: rho, Trial: trial, Isolated: isolated}))
	}

	sell := make([]float64, result.NDays)
	buy := make([]float64, result.NDays)
	for day := 0; day < result.NDays; day++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sell[day] = m.MeanSellPrice()
		buy[day] = m.MeanBuyPrice()
		stats := m.Step()
		if d.recorder != nil {
			d.recorder.RecordDay(stats)
		}
	}
	result.SetTrial(trial, sell, buy)

	elapsed := time.Since(start)
	if d.recorder != nil {
		d.recorder.RecordTrial(elapsed)
	}
	slog.DebugContext(ctx, "Trial completed",
		slog.String("rho", result.Rho.String()),
		slog.Int("trial", trial),
		slog.Duration("elapsed", elapsed))

	ev := TrialEvent{Rho: result.Rho, Trial: trial, NIter: result.NIter, Elapsed: elapsed}
	for _, obs := range d.observers {
		obs.TrialDone(ev)
	}
	return nil
}

// IsAbort reports whether err came from cancellation rather than the simulation.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func newSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Package engine implements the load profile aggregation engine: cohort
// selection, per-building timeseries reads, alignment, community aggregation,
// multi-run averaging, and typical-day extraction. The engine is a pure
// transformation — (cohort + timeseries sources + configuration) → profile
// structures — and performs no persistence of its own; callers observe
// progress through the Tracker interface.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"community-load-profiles/internal/model"
	"community-load-profiles/internal/weather"
	"community-load-profiles/internal/workbook"
)

// Tracker receives run lifecycle notifications. Implementations must be safe
// for concurrent use; the default is a no-op.
type Tracker interface {
	Stage(run int, stage, status string)
	RunFinished(run int, cohort []string, err error)
}

type nopTracker struct{}

func (nopTracker) Stage(int, string, string)        {}
func (nopTracker) RunFinished(int, []string, error) {}

// Engine executes scenarios against an immutable configuration value.
type Engine struct {
	cfg     model.ScenarioConfig
	log     *zap.SugaredLogger
	tracker Tracker
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTracker attaches a run lifecycle tracker.
func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// New builds an Engine. The configuration is treated as immutable from here on.
func New(cfg model.ScenarioConfig, log *zap.SugaredLogger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Engine{cfg: cfg, log: log, tracker: nopTracker{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScenarioResult is everything one scenario produces, ready for the
// downstream writers.
type ScenarioResult struct {
	Period      model.Period              `json:"period"`
	Runs        []*model.RunResult        `json:"runs"`
	Averaged    *model.AveragedProfile    `json:"averaged"`
	TypicalDays []model.TypicalDayProfile `json:"typicalDays,omitempty"`
	Elapsed     time.Duration             `json:"elapsed"`
}

// RunScenario executes all configured runs concurrently, averages them, and
// extracts typical-day profiles. A failure in any run fails the scenario:
// partial work is discarded, never checkpointed.
func (e *Engine) RunScenario(ctx context.Context) (*ScenarioResult, error) {
	start := time.Now()
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	period, err := e.cfg.ScenarioPeriod()
	if err != nil {
		return nil, err
	}
	e.log.Infow("starting scenario", "state", e.cfg.State, "upgrade", e.cfg.Upgrade, "runs", e.cfg.Runs, "period", period.String())

	stocks, err := e.loadWorkbooks()
	if err != nil {
		return nil, err
	}
	ws, err := e.loadWeather()
	if err != nil {
		return nil, err
	}

	// Fan out independent runs; collect RunResults; first failure cancels the
	// rest. Runs share only the read-only workbook records and weather series.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *model.RunResult, e.cfg.Runs)
	firstErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(e.cfg.Runs)
	for i := 0; i < e.cfg.Runs; i++ {
		go func(run int) {
			defer wg.Done()
			rr, err := e.executeRun(runCtx, run, stocks, ws, period)
			if err != nil {
				select {
				case firstErr <- fmt.Errorf("run %d: %w", run, err):
				default:
				}
				cancel()
				return
			}
			results <- rr
		}(i)
	}
	wg.Wait()
	close(results)

	select {
	case err := <-firstErr:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runs := make([]*model.RunResult, e.cfg.Runs)
	for rr := range results {
		runs[rr.Run] = rr
	}

	averaged, err := AverageRuns(runs, e.cfg.Averaging)
	if err != nil {
		return nil, err
	}

	out := &ScenarioResult{Period: period, Runs: runs, Averaged: averaged}
	if e.cfg.Profiles.TypicalDayEnabled() {
		source := averaged.Mean
		if !e.cfg.Profiles.UseAveraged() {
			source = runs[0].Profile
		}
		days, err := ExtractTypicalDays(source, e.cfg.Profiles.Method)
		if err != nil {
			// Months without enough data are reported, not fatal: the rest of
			// the scenario output is unaffected by this stage.
			e.log.Warnw("typical-day extraction incomplete", "err", err)
		}
		out.TypicalDays = days
	}

	out.Elapsed = time.Since(start)
	e.log.Infow("scenario complete", "runs", len(runs), "buildings_per_run", len(runs[0].Cohort), "elapsed", out.Elapsed)
	return out, nil
}

// stockRecords holds one stock's workbook rows, loaded once and shared
// read-only across runs.
type stockRecords struct {
	stock   model.StockType
	cfg     *model.StockConfig
	records []model.BuildingRecord
}

func (e *Engine) loadWorkbooks() ([]stockRecords, error) {
	var out []stockRecords
	for _, stock := range []model.StockType{model.StockResidential, model.StockCommercial} {
		sc := e.cfg.Stocks()[stock]
		if sc == nil {
			continue
		}
		records, err := workbook.Read(sc.Characteristics, stock, sc.Columns, sc.UnitScaledTypes)
		if err != nil {
			return nil, fmt.Errorf("%s characteristics: %w", stock, err)
		}
		e.log.Infow("characteristics loaded", "stock", stock, "buildings", len(records))
		out = append(out, stockRecords{stock: stock, cfg: sc, records: records})
	}
	return out, nil
}

func (e *Engine) loadWeather() (*weather.Series, error) {
	if !e.cfg.Weather.Enabled {
		return nil, nil
	}
	series := make([]*weather.Series, 0, len(e.cfg.Weather.Files))
	for i, path := range e.cfg.Weather.Files {
		label := fmt.Sprintf("weather_%d", i)
		if i < len(e.cfg.Weather.SourceLabels) {
			label = e.cfg.Weather.SourceLabels[i]
		}
		s, err := weather.ReadCSVAuto(path, e.cfg.Weather.PreferredUnits, label)
		if err != nil {
			return nil, fmt.Errorf("weather file %s: %w", path, err)
		}
		series = append(series, s)
	}
	merged := weather.Merge(series...)
	e.log.Infow("weather loaded", "sources", len(series), "hours", merged.Frame.Len())
	return merged, nil
}

// executeRun performs one complete aggregation pass over one cohort draw:
// select → read (bounded pool) → align (barrier) → aggregate.
func (e *Engine) executeRun(ctx context.Context, run int, stocks []stockRecords, ws *weather.Series, period model.Period) (*model.RunResult, error) {
	seed := RunSeed(e.cfg, run)
	rng := newRand(seed)

	var result *model.RunResult
	var err error
	defer func() {
		var cohort []string
		if result != nil {
			cohort = result.Cohort
		}
		e.tracker.RunFinished(run, cohort, err)
	}()

	e.tracker.Stage(run, "selection", "started")
	var cohort []model.BuildingRecord
	for _, sr := range stocks {
		selected, serr := SelectCohort(sr.records, sr.cfg, e.cfg.State, e.cfg.Upgrade, rng)
		if serr != nil {
			err = serr
			return nil, err
		}
		for i := range selected {
			selected[i].SourcePath = SourcePath(sr.cfg, selected[i])
		}
		cohort = append(cohort, selected...)
	}
	e.tracker.Stage(run, "selection", "completed")
	e.log.Infow("cohort selected", "run", run, "seed", seed, "buildings", len(cohort))

	e.tracker.Stage(run, "read", "started")
	frames, rerr := ReadCohort(ctx, cohort, e.cfg.Channels, e.cfg.Performance)
	if rerr != nil {
		err = rerr
		return nil, err
	}
	e.tracker.Stage(run, "read", "completed")

	e.tracker.Stage(run, "align", "started")
	aligned, aerr := Align(frames, period, ws)
	if aerr != nil {
		err = aerr
		return nil, err
	}
	e.tracker.Stage(run, "align", "completed")

	e.tracker.Stage(run, "aggregate", "started")
	profile := Aggregate(aligned, e.cfg)
	e.tracker.Stage(run, "aggregate", "completed")

	keys := make([]string, len(cohort))
	for i, rec := range cohort {
		keys[i] = rec.Key()
	}
	result = &model.RunResult{Run: run, Seed: seed, Cohort: keys, Profile: profile}
	return result, nil
}

package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"community-load-profiles/internal/model"
	"community-load-profiles/pkg/utils"
)

// ------------------- Timeseries Reading -------------------

var timestampAliases = []string{"timestamp", "time", "datetime", "date_time", "DATE"}

// ReadResult pairs a building with its validated frame. Attempts counts read
// attempts including the successful one, so callers can observe retries.
type ReadResult struct {
	Record   model.BuildingRecord
	Frame    *model.Frame
	Attempts int
}

// ReadFrame loads one building's timeseries for exactly the requested
// channels, normalizing column names and units. The returned frame is hourly:
// finer-grained input is resampled by sum. Reads are idempotent — same bytes
// in, same frame out.
func ReadFrame(ctx context.Context, rec model.BuildingRecord, channels []model.ChannelConfig, timeout time.Duration) (*model.Frame, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	file, err := os.Open(rec.SourcePath)
	if err != nil {
		return nil, &model.SourceMissingError{Path: rec.SourcePath, Err: err}
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.LazyQuotes = true
	header, err := r.Read()
	if err != nil {
		return nil, &model.SourceMissingError{Path: rec.SourcePath, Err: fmt.Errorf("read header: %w", err)}
	}

	tsCol := utils.FindColumn(header, timestampAliases)
	if tsCol < 0 {
		return nil, &model.SchemaError{Path: rec.SourcePath, Reason: "no timestamp column found"}
	}
	colIdx := make([]int, len(channels))
	for i, ch := range channels {
		aliases := ch.Aliases
		if len(aliases) == 0 {
			aliases = []string{ch.Name}
		}
		idx := utils.FindColumn(header, aliases)
		if idx < 0 {
			return nil, &model.SchemaError{Path: rec.SourcePath, Column: ch.Name, Reason: "no matching source column"}
		}
		colIdx[i] = idx
	}

	var index []time.Time
	values := make([][]float64, len(channels))
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &model.SourceMissingError{Path: rec.SourcePath, Err: ctx.Err()}
			}
			return nil, ctx.Err()
		default:
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &model.SchemaError{Path: rec.SourcePath, Reason: fmt.Sprintf("read row: %v", err)}
		}

		ts, err := utils.ParseTimestamp(row[tsCol])
		if err != nil {
			return nil, &model.SchemaError{Path: rec.SourcePath, Column: header[tsCol], Reason: err.Error()}
		}
		index = append(index, ts)
		for i, ch := range channels {
			v, err := strconv.ParseFloat(row[colIdx[i]], 64)
			if err != nil {
				return nil, &model.SchemaError{Path: rec.SourcePath, Column: ch.Name, Reason: fmt.Sprintf("non-numeric value %q at %s", row[colIdx[i]], ts.Format(time.RFC3339))}
			}
			values[i] = append(values[i], v*ch.ChannelScale())
		}
	}
	if len(index) == 0 {
		return nil, &model.SchemaError{Path: rec.SourcePath, Reason: "no data rows"}
	}

	frame := &model.Frame{Index: index, Values: make(map[string][]float64, len(channels))}
	for i, ch := range channels {
		frame.Columns = append(frame.Columns, ch.Name)
		frame.Values[ch.Name] = values[i]
	}

	step, err := validateIndex(rec.SourcePath, index)
	if err != nil {
		return nil, err
	}
	if step < time.Hour {
		return resampleToHourly(rec.SourcePath, frame, step)
	}
	return frame, nil
}

// validateIndex enforces the frame invariants: strictly increasing, no
// duplicates, no gaps, hourly or finer.
func validateIndex(path string, index []time.Time) (time.Duration, error) {
	if len(index) == 1 {
		return time.Hour, nil
	}
	step := index[1].Sub(index[0])
	if step <= 0 {
		reason := "duplicate timestamp"
		if step < 0 {
			reason = "out-of-order timestamp"
		}
		return 0, &model.IntegrityError{Path: path, At: index[1], Reason: reason}
	}
	if step > time.Hour {
		return 0, &model.IntegrityError{Path: path, At: index[0], Reason: fmt.Sprintf("granularity %s is coarser than hourly", step)}
	}
	if step < time.Hour && time.Hour%step != 0 {
		return 0, &model.IntegrityError{Path: path, At: index[0], Reason: fmt.Sprintf("step %s does not divide one hour", step)}
	}
	for i := 1; i < len(index); i++ {
		d := index[i].Sub(index[i-1])
		switch {
		case d == step:
		case d <= 0:
			reason := "duplicate timestamp"
			if d < 0 {
				reason = "out-of-order timestamp"
			}
			return 0, &model.IntegrityError{Path: path, At: index[i], Reason: reason}
		default:
			return 0, &model.IntegrityError{Path: path, At: index[i], Reason: fmt.Sprintf("gap of %s in index", d)}
		}
	}
	return step, nil
}

// resampleToHourly sums sub-hourly energy samples into hourly buckets.
// The sub-hourly index is contiguous, so each hour is either complete or the
// file's ragged edge; ragged edges are integrity errors.
func resampleToHourly(path string, f *model.Frame, step time.Duration) (*model.Frame, error) {
	per := int(time.Hour / step)
	if len(f.Index)%per != 0 || !f.Index[0].Equal(f.Index[0].Truncate(time.Hour)) {
		return nil, &model.IntegrityError{Path: path, At: f.Index[0], Reason: "sub-hourly data does not form whole hours"}
	}
	n := len(f.Index) / per
	out := &model.Frame{Columns: append([]string(nil), f.Columns...), Values: make(map[string][]float64, len(f.Columns))}
	out.Index = make([]time.Time, n)
	for i := 0; i < n; i++ {
		out.Index[i] = f.Index[i*per]
	}
	for _, c := range f.Columns {
		src := f.Values[c]
		dst := make([]float64, n)
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < per; j++ {
				s += src[i*per+j]
			}
			dst[i] = s
		}
		out.Values[c] = dst
	}
	return out, nil
}

// ------------------- Bounded Read Pool -------------------

// ReadCohort reads all selected buildings' frames across a bounded worker
// pool. Any single failure cancels the remaining reads and fails the whole
// cohort — a community aggregate never silently drops a building. Results
// come back in cohort order regardless of worker scheduling.
func ReadCohort(ctx context.Context, cohort []model.BuildingRecord, channels []model.ChannelConfig, perf model.PerformanceConfig) ([]ReadResult, error) {
	workers := perf.MaxWorkers
	if workers <= 0 {
		workers = 8
	}
	if workers > len(cohort) {
		workers = len(cohort)
	}
	timeout := utils.ParseDuration(perf.ReadTimeout, 30*time.Second)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan model.BuildingRecord)
	out := make(chan ReadResult, len(cohort))
	firstErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for rec := range jobs {
				frame, attempts, err := readWithRetry(ctx, rec, channels, timeout, perf.ReadRetries)
				if err != nil {
					select {
					case firstErr <- err:
					default:
					}
					cancel()
					return
				}
				out <- ReadResult{Record: rec, Frame: frame, Attempts: attempts}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rec := range cohort {
			select {
			case <-ctx.Done():
				return
			case jobs <- rec:
			}
		}
	}()

	wg.Wait()
	close(out)

	select {
	case err := <-firstErr:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byKey := make(map[string]ReadResult, len(cohort))
	for res := range out {
		byKey[res.Record.Key()] = res
	}
	results := make([]ReadResult, len(cohort))
	for i, rec := range cohort {
		results[i] = byKey[rec.Key()]
	}
	return results, nil
}

// readWithRetry retries transient source errors with doubling backoff.
// Schema and integrity errors are never retried: the bytes will not change.
func readWithRetry(ctx context.Context, rec model.BuildingRecord, channels []model.ChannelConfig, timeout time.Duration, retries int) (*model.Frame, int, error) {
	delay := 250 * time.Millisecond
	const maxDelay = 5 * time.Second

	var lastErr error
	attempts := 0
	for attempts <= retries {
		attempts++
		frame, err := ReadFrame(ctx, rec, channels, timeout)
		if err == nil {
			return frame, attempts, nil
		}
		lastErr = err

		var src *model.SourceMissingError
		if !errors.As(err, &src) {
			return nil, attempts, err
		}
		if attempts > retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, attempts, lastErr
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
	return nil, attempts, lastErr
}

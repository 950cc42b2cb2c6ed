package engine

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"community-load-profiles/internal/model"
)

// ------------------- Multi-Run Averaging -------------------

// AverageRuns combines RunResults into an AveragedProfile: the per-timestamp
// mean across runs at each resolution, plus an optional min/max or percentile
// band. Statistics are computed per timestamp across runs — never by
// concatenating runs and aggregating out of order. Single-cohort aggregates
// are noisy draws; the averaged profile with its spread is what the system
// reports as the community estimate.
func AverageRuns(runs []*model.RunResult, avg model.AveragingConfig) (*model.AveragedProfile, error) {
	if len(runs) == 0 {
		return nil, &model.RunMismatchError{Reason: "no runs to average"}
	}
	if err := checkCommensurable(runs); err != nil {
		return nil, err
	}

	ref := runs[0].Profile
	out := &model.AveragedProfile{
		Period:   ref.Period,
		Channels: ref.Channels,
		Runs:     len(runs),
		Spread:   avg.Spread,
	}
	if avg.Spread == model.SpreadPercentile {
		out.Band = avg.Band
	}

	out.Mean = emptyLike(ref)
	if avg.Spread != model.SpreadNone {
		out.Lower = emptyLike(ref)
		out.Upper = emptyLike(ref)
	}

	xs := make([]float64, len(runs))
	for _, res := range []model.Resolution{model.Hourly, model.Daily, model.Monthly} {
		refFrame := ref.At(res)
		for _, col := range refFrame.Columns {
			mean := out.Mean.At(res).Column(col)
			var lower, upper []float64
			if out.Lower != nil {
				lower = out.Lower.At(res).Column(col)
				upper = out.Upper.At(res).Column(col)
			}
			for t := 0; t < refFrame.Len(); t++ {
				for r, run := range runs {
					xs[r] = run.Profile.At(res).Values[col][t]
				}
				mean[t] = stat.Mean(xs, nil)
				switch avg.Spread {
				case model.SpreadMinMax:
					lower[t] = floats.Min(xs)
					upper[t] = floats.Max(xs)
				case model.SpreadPercentile:
					lo, hi := avg.BandQuantiles()
					sorted := append([]float64(nil), xs...)
					sort.Float64s(sorted)
					lower[t] = stat.Quantile(lo, stat.Empirical, sorted, nil)
					upper[t] = stat.Quantile(hi, stat.Empirical, sorted, nil)
				}
			}
		}
	}
	return out, nil
}

// checkCommensurable rejects run sets with differing periods or channel sets
// before any arithmetic happens.
func checkCommensurable(runs []*model.RunResult) error {
	ref := runs[0].Profile
	for _, run := range runs[1:] {
		p := run.Profile
		if !p.Period.Equal(ref.Period) {
			return &model.RunMismatchError{
				Reason: fmt.Sprintf("run %d period %s differs from run %d period %s", run.Run, p.Period, runs[0].Run, ref.Period),
			}
		}
		if !sameColumns(p.Channels, ref.Channels) || !sameColumns(p.Aux, ref.Aux) {
			return &model.RunMismatchError{
				Reason: fmt.Sprintf("run %d channel set %v differs from run %d channel set %v", run.Run, p.Channels, runs[0].Run, ref.Channels),
			}
		}
	}
	return nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// emptyLike allocates a profile with the same shape (index and columns) as
// ref at every resolution, with zeroed values.
func emptyLike(ref *model.AggregateProfile) *model.AggregateProfile {
	clone := func(f *model.Frame) *model.Frame {
		return model.NewFrame(f.Index, f.Columns)
	}
	return &model.AggregateProfile{
		Period:   ref.Period,
		Channels: ref.Channels,
		Aux:      ref.Aux,
		Hourly:   clone(ref.Hourly),
		DailyF:   clone(ref.DailyF),
		MonthlyF: clone(ref.MonthlyF),
	}
}

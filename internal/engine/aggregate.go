package engine

import (
	"time"

	"community-load-profiles/internal/model"
)

// ------------------- Aggregation -------------------

// Aggregate sums the aligned cohort into one community-level profile. Each
// load channel is a weight-scaled sum across buildings at every timestamp;
// weights default to 1.0 for unweighted cohorts. Summation uses pairwise
// accumulation over the key-ordered cohort, so the floating-point result does
// not depend on worker scheduling and its error stays bounded for large
// cohorts. Daily and monthly tables are derived strictly by resampling the
// hourly table: sum for load channels, mean for auxiliary columns.
func Aggregate(cohort *AlignedCohort, cfg model.ScenarioConfig) *model.AggregateProfile {
	index := cohort.Period.Index()
	channels := buildChannelColumns(cohort, cfg)

	hourly := model.NewFrame(index, channels.names)
	contrib := make([]float64, 0, len(cohort.Buildings))
	for ci, col := range channels.names {
		dst := hourly.Column(col)
		members := channels.members[ci]
		for t := range index {
			contrib = contrib[:0]
			for _, b := range members {
				contrib = append(contrib, b.Frame.Values[channels.source[ci]][t]*b.Record.Weight)
			}
			dst[t] = pairwiseSum(contrib)
		}
	}

	var aux []string
	if cohort.Weather != nil {
		for _, c := range cohort.Weather.Columns {
			hourly.AddColumn(c, append([]float64(nil), cohort.Weather.Values[c]...))
			aux = append(aux, c)
		}
	}

	profile := &model.AggregateProfile{
		Period:   cohort.Period,
		Channels: channels.names,
		Aux:      aux,
		Hourly:   hourly,
	}
	profile.DailyF = Resample(hourly, channels.names, aux, model.Daily)
	profile.MonthlyF = Resample(hourly, channels.names, aux, model.Monthly)
	return profile
}

// channelColumns expands the configured channels into output columns:
// one combined column per channel, plus per-stock breakdown columns when
// configured and more than one stock is present.
type channelColumns struct {
	names   []string
	source  []string           // the per-building frame column each output reads
	members [][]AlignedBuilding // the buildings contributing to each output
}

func buildChannelColumns(cohort *AlignedCohort, cfg model.ScenarioConfig) channelColumns {
	byStock := make(map[model.StockType][]AlignedBuilding)
	var stocks []model.StockType
	for _, b := range cohort.Buildings {
		if _, seen := byStock[b.Record.Stock]; !seen {
			stocks = append(stocks, b.Record.Stock)
		}
		byStock[b.Record.Stock] = append(byStock[b.Record.Stock], b)
	}

	var cols channelColumns
	for _, ch := range cfg.Channels {
		cols.names = append(cols.names, ch.Name)
		cols.source = append(cols.source, ch.Name)
		cols.members = append(cols.members, cohort.Buildings)

		if cfg.BreakdownByStock && len(stocks) > 1 {
			for _, stock := range []model.StockType{model.StockResidential, model.StockCommercial} {
				members, ok := byStock[stock]
				if !ok {
					continue
				}
				cols.names = append(cols.names, string(stock)+"_"+ch.Name)
				cols.source = append(cols.source, ch.Name)
				cols.members = append(cols.members, members)
			}
		}
	}
	return cols
}

// ------------------- Resampling -------------------

// Resample derives a daily or monthly table from an hourly frame. sumCols are
// summed per bucket (energy), meanCols averaged (temperature and other
// auxiliary series). Derived tables are never recomputed independently of the
// hourly base.
func Resample(hourly *model.Frame, sumCols, meanCols []string, res model.Resolution) *model.Frame {
	bucket := bucketFunc(res)

	var labels []time.Time
	var bounds []int // start row of each bucket
	var current time.Time
	for i, t := range hourly.Index {
		b := bucket(t)
		if len(labels) == 0 || !b.Equal(current) {
			labels = append(labels, b)
			bounds = append(bounds, i)
			current = b
		}
	}
	bounds = append(bounds, hourly.Len())

	cols := append(append([]string(nil), sumCols...), meanCols...)
	out := model.NewFrame(labels, cols)
	for _, c := range sumCols {
		src := hourly.Values[c]
		dst := out.Values[c]
		for i := range labels {
			dst[i] = pairwiseSum(src[bounds[i]:bounds[i+1]])
		}
	}
	for _, c := range meanCols {
		src := hourly.Values[c]
		dst := out.Values[c]
		for i := range labels {
			n := bounds[i+1] - bounds[i]
			dst[i] = pairwiseSum(src[bounds[i]:bounds[i+1]]) / float64(n)
		}
	}
	return out
}

func bucketFunc(res model.Resolution) func(time.Time) time.Time {
	if res == model.Monthly {
		return func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		}
	}
	return func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// ------------------- Order-stable summation -------------------

// pairwiseSum reduces a slice by recursive halving. Unlike a running sum, the
// rounding error grows with log(n) rather than n, and the result is a pure
// function of the input order.
func pairwiseSum(xs []float64) float64 {
	n := len(xs)
	if n <= 32 {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s
	}
	mid := n / 2
	return pairwiseSum(xs[:mid]) + pairwiseSum(xs[mid:])
}

package model

import (
	"fmt"
	"time"
)

// StockType identifies which building stock a record comes from.
type StockType string

const (
	StockResidential StockType = "residential"
	StockCommercial  StockType = "commercial"
)

// Resolution tags a profile table with its time granularity.
type Resolution string

const (
	Hourly  Resolution = "hourly"
	Daily   Resolution = "daily"
	Monthly Resolution = "monthly"
)

// BuildingRecord is one row of the characteristics workbook. It is immutable
// once loaded; the selector hands copies to each run.
type BuildingRecord struct {
	Stock        StockType `json:"stock"`
	ID           int64     `json:"id"`
	BuildingType string    `json:"buildingType"`
	State        string    `json:"state"`
	Upgrade      int       `json:"upgrade"`
	Weight       float64   `json:"weight"` // sampling weight, 1.0 when unweighted
	SourcePath   string    `json:"sourcePath"`
}

// Key returns the stable identifier used to order and de-duplicate cohorts.
func (b BuildingRecord) Key() string {
	return fmt.Sprintf("%s-%d", b.Stock, b.ID)
}

// Period is a half-open [Start, End) time span at a fixed step.
type Period struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Step  time.Duration `json:"step"`
}

// Length returns the number of timestamps in the period.
func (p Period) Length() int {
	if !p.End.After(p.Start) || p.Step <= 0 {
		return 0
	}
	return int(p.End.Sub(p.Start) / p.Step)
}

// Index materializes the period's timestamp index.
func (p Period) Index() []time.Time {
	n := p.Length()
	idx := make([]time.Time, n)
	for i := 0; i < n; i++ {
		idx[i] = p.Start.Add(time.Duration(i) * p.Step)
	}
	return idx
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Equal reports whether two periods describe the same span and step.
func (p Period) Equal(o Period) bool {
	return p.Start.Equal(o.Start) && p.End.Equal(o.End) && p.Step == o.Step
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s) @ %s", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339), p.Step)
}

// Frame is a timestamp-indexed table of float64 columns. The index must be
// strictly increasing with no duplicates; validation happens at read time.
type Frame struct {
	Index   []time.Time          `json:"index"`
	Columns []string             `json:"columns"` // column order
	Values  map[string][]float64 `json:"values"`
}

// NewFrame allocates a frame over the given index with zeroed columns.
func NewFrame(index []time.Time, columns []string) *Frame {
	f := &Frame{
		Index:   index,
		Columns: append([]string(nil), columns...),
		Values:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		f.Values[c] = make([]float64, len(index))
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Column returns the values of a named column, or nil if absent.
func (f *Frame) Column(name string) []float64 { return f.Values[name] }

// HasColumn reports whether the frame carries the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.Values[name]
	return ok
}

// AddColumn appends a column to the frame. The slice length must match the index.
func (f *Frame) AddColumn(name string, vals []float64) {
	f.Columns = append(f.Columns, name)
	f.Values[name] = vals
}

// Covers reports whether the frame's index fully spans the period at its step.
// Assumes the frame has already been validated as contiguous.
func (f *Frame) Covers(p Period) bool {
	if f.Len() == 0 {
		return false
	}
	last := p.End.Add(-p.Step)
	return !f.Index[0].After(p.Start) && !f.Index[f.Len()-1].Before(last)
}

// Slice returns the sub-frame covering exactly the period. Covers must hold.
func (f *Frame) Slice(p Period) *Frame {
	offset := int(p.Start.Sub(f.Index[0]) / p.Step)
	n := p.Length()
	out := &Frame{
		Index:   f.Index[offset : offset+n],
		Columns: append([]string(nil), f.Columns...),
		Values:  make(map[string][]float64, len(f.Columns)),
	}
	for _, c := range f.Columns {
		out.Values[c] = f.Values[c][offset : offset+n]
	}
	return out
}

// AggregateProfile is one community-level profile for one run. The hourly table
// is the base resolution; daily and monthly are derived strictly by resampling.
type AggregateProfile struct {
	Period   Period   `json:"period"`
	Channels []string `json:"channels"` // load channels (summed on resample)
	Aux      []string `json:"aux"`      // auxiliary columns, e.g. weather (meaned on resample)
	Hourly   *Frame   `json:"hourly"`
	DailyF   *Frame   `json:"daily"`
	MonthlyF *Frame   `json:"monthly"`
}

// At returns the frame at the requested resolution.
func (p *AggregateProfile) At(res Resolution) *Frame {
	switch res {
	case Daily:
		return p.DailyF
	case Monthly:
		return p.MonthlyF
	default:
		return p.Hourly
	}
}

// RunResult tags one run's AggregateProfile with its identity and cohort.
type RunResult struct {
	Run     int               `json:"run"`
	Seed    int64             `json:"seed"`
	Cohort  []string          `json:"cohort"` // ordered BuildingRecord keys
	Profile *AggregateProfile `json:"profile"`
}

// SpreadKind selects how run-to-run variability is reported.
type SpreadKind string

const (
	SpreadNone       SpreadKind = ""
	SpreadMinMax     SpreadKind = "minmax"
	SpreadPercentile SpreadKind = "percentile"
)

// AveragedProfile holds per-timestamp statistics over a set of RunResults.
// Lower/Upper are nil when no spread is configured.
type AveragedProfile struct {
	Period   Period            `json:"period"`
	Channels []string          `json:"channels"`
	Runs     int               `json:"runs"`
	Spread   SpreadKind        `json:"spread"`
	Band     float64           `json:"band,omitempty"` // central mass for percentile spread, e.g. 0.9
	Mean     *AggregateProfile `json:"mean"`
	Lower    *AggregateProfile `json:"lower,omitempty"`
	Upper    *AggregateProfile `json:"upper,omitempty"`
}

// TypicalDayProfile is one representative 24-hour profile for a calendar month.
type TypicalDayProfile struct {
	Month   time.Month  `json:"month"`
	Year    int         `json:"year"`
	Channel string      `json:"channel"`
	Method  string      `json:"method"`
	Day     time.Time   `json:"day,omitempty"` // selected calendar date; zero for the mean method
	Hours   [24]float64 `json:"hours"`
}

// Package weather reads external weather files and normalizes them to an
// hourly outdoor-air-temperature series. Input files vary in column naming
// and units, so detection is heuristic: find a datetime column, find a
// temperature column, convert units by a median check, resample to hourly
// mean.
package weather

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"community-load-profiles/internal/model"
	"community-load-profiles/pkg/utils"
)

// TemperatureColumn is the normalized auxiliary column name carried through
// aligned frames and aggregate profiles.
const TemperatureColumn = "outdoor_air_temperature"

var datetimeCandidates = []string{"DATE", "Date", "datetime", "timestamp", "time"}

var temperatureCandidates = []string{
	"HourlyDryBulbTemperature",
	"TEMP",
	"Temp",
	"temperature",
	"Temperature",
	"TAVG",
	"DryBulbCelsius",
	"DryBulbFahrenheit",
}

// Series is a normalized hourly weather series. Hours inside the span with no
// samples hold NaN; coverage is checked against the scenario period at merge
// time, not here.
type Series struct {
	Frame *model.Frame
	Label string
}

// ReadCSVAuto reads one weather CSV and normalizes it.
// preferredUnits is "C" (default) or "F"; a median-based heuristic converts
// values that look like the opposite unit system.
func ReadCSVAuto(path, preferredUnits, label string) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &model.SourceMissingError{Path: path, Err: err}
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &model.SchemaError{Path: path, Reason: fmt.Sprintf("read csv: %v", err)}
	}
	if len(rows) < 2 {
		return nil, &model.SchemaError{Path: path, Reason: "weather file has no data rows"}
	}

	header := rows[0]
	dtCol := utils.FindColumn(header, datetimeCandidates)
	if dtCol < 0 {
		return nil, &model.SchemaError{Path: path, Reason: "no datetime column found"}
	}
	tCol := utils.FindColumn(header, temperatureCandidates)
	if tCol < 0 {
		return nil, &model.SchemaError{Path: path, Reason: "no temperature column found"}
	}

	type sample struct {
		t time.Time
		v float64
	}
	samples := make([]sample, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if dtCol >= len(row) || tCol >= len(row) {
			continue
		}
		ts, err := utils.ParseTimestamp(row[dtCol])
		if err != nil {
			continue // unparseable rows are dropped, matching the source tolerance
		}
		v, err := strconv.ParseFloat(row[tCol], 64)
		if err != nil {
			continue
		}
		samples = append(samples, sample{ts, v})
	}
	if len(samples) == 0 {
		return nil, &model.SchemaError{Path: path, Reason: "no usable temperature samples"}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].t.Before(samples[j].t) })

	vals := make([]float64, len(samples))
	for i, s := range samples {
		vals[i] = s.v
	}
	convert, err := unitConversion(preferredUnits, median(vals))
	if err != nil {
		return nil, err
	}

	// Resample to hourly mean over the sampled span.
	start := samples[0].t.Truncate(time.Hour)
	end := samples[len(samples)-1].t.Truncate(time.Hour).Add(time.Hour)
	n := int(end.Sub(start) / time.Hour)
	sums := make([]float64, n)
	counts := make([]int, n)
	for _, s := range samples {
		i := int(s.t.Sub(start) / time.Hour)
		sums[i] += convert(s.v)
		counts[i]++
	}

	frame := model.NewFrame(makeHourlyIndex(start, n), []string{TemperatureColumn})
	col := frame.Column(TemperatureColumn)
	for i := range col {
		if counts[i] == 0 {
			col[i] = math.NaN()
		} else {
			col[i] = sums[i] / float64(counts[i])
		}
	}
	return &Series{Frame: frame, Label: label}, nil
}

// Merge combines multiple series by taking the first non-NaN value at each
// timestamp, in argument order. The result spans the union of the inputs.
func Merge(series ...*Series) *Series {
	var nonEmpty []*Series
	for _, s := range series {
		if s != nil && s.Frame.Len() > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}

	start := nonEmpty[0].Frame.Index[0]
	end := nonEmpty[0].Frame.Index[nonEmpty[0].Frame.Len()-1]
	for _, s := range nonEmpty[1:] {
		if s.Frame.Index[0].Before(start) {
			start = s.Frame.Index[0]
		}
		if s.Frame.Index[s.Frame.Len()-1].After(end) {
			end = s.Frame.Index[s.Frame.Len()-1]
		}
	}
	n := int(end.Sub(start)/time.Hour) + 1

	frame := model.NewFrame(makeHourlyIndex(start, n), []string{TemperatureColumn})
	col := frame.Column(TemperatureColumn)
	for i := range col {
		col[i] = math.NaN()
	}
	labels := ""
	for _, s := range nonEmpty {
		src := s.Frame.Column(TemperatureColumn)
		for i, t := range s.Frame.Index {
			j := int(t.Sub(start) / time.Hour)
			if math.IsNaN(col[j]) && !math.IsNaN(src[i]) {
				col[j] = src[i]
			}
		}
		if labels != "" {
			labels += "+"
		}
		labels += s.Label
	}
	return &Series{Frame: frame, Label: labels}
}

func makeHourlyIndex(start time.Time, n int) []time.Time {
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return idx
}

func unitConversion(preferred string, med float64) (func(float64) float64, error) {
	identity := func(v float64) float64 { return v }
	switch preferred {
	case "", "C":
		if med > 45 { // looks like Fahrenheit
			return func(v float64) float64 { return (v - 32.0) * 5.0 / 9.0 }, nil
		}
		return identity, nil
	case "F":
		if med < 35 { // looks like Celsius
			return func(v float64) float64 { return v*9.0/5.0 + 32.0 }, nil
		}
		return identity, nil
	default:
		return nil, fmt.Errorf("preferred units must be C or F, got %q", preferred)
	}
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 1 {
		return s[m]
	}
	return (s[m-1] + s[m]) / 2
}

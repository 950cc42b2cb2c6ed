package engine

import (
	"fmt"
	"math"
	"sort"

	"community-load-profiles/internal/model"
	"community-load-profiles/internal/weather"
)

// ------------------- Alignment & Weather Merge -------------------

// AlignedBuilding is one building's frame sliced to the shared period.
type AlignedBuilding struct {
	Record model.BuildingRecord
	Frame  *model.Frame
}

// AlignedCohort is the synchronization point between reading and aggregation:
// every building shares an identical timestamp index equal to the scenario
// period. Buildings are ordered by key so downstream summation order does not
// depend on worker scheduling.
type AlignedCohort struct {
	Period    model.Period
	Buildings []AlignedBuilding
	Weather   *model.Frame // auxiliary columns sliced to the period, nil when disabled
}

// Align verifies that every building's frame fully covers the scenario period
// and slices each to exactly that period. A frame that covers only part of
// the period is a fatal AlignmentError — there is no silent truncation, and
// no partial-cohort aggregation.
func Align(results []ReadResult, period model.Period, ws *weather.Series) (*AlignedCohort, error) {
	cohort := &AlignedCohort{Period: period, Buildings: make([]AlignedBuilding, 0, len(results))}

	for _, res := range results {
		f := res.Frame
		if !f.Covers(period) {
			return nil, &model.AlignmentError{
				Building: res.Record.Key(),
				Period:   period,
				Reason:   coverageReason(f),
			}
		}
		cohort.Buildings = append(cohort.Buildings, AlignedBuilding{Record: res.Record, Frame: f.Slice(period)})
	}

	sort.Slice(cohort.Buildings, func(i, j int) bool {
		return cohort.Buildings[i].Record.Key() < cohort.Buildings[j].Record.Key()
	})

	if ws != nil {
		aux, err := mergeWeather(ws, period)
		if err != nil {
			return nil, err
		}
		cohort.Weather = aux
	}
	return cohort, nil
}

func coverageReason(f *model.Frame) string {
	if f.Len() == 0 {
		return "frame is empty"
	}
	return fmt.Sprintf("frame spans %s to %s", f.Index[0], f.Index[f.Len()-1])
}

// mergeWeather slices the weather series to the period, failing on incomplete
// coverage. Weather values ride along as auxiliary columns; they are never
// blended into load magnitudes.
func mergeWeather(ws *weather.Series, period model.Period) (*model.Frame, error) {
	f := ws.Frame
	if !f.Covers(period) {
		return nil, &model.WeatherCoverageError{Period: period, Reason: coverageReason(f)}
	}
	sliced := f.Slice(period)
	for _, c := range sliced.Columns {
		for i, v := range sliced.Values[c] {
			if math.IsNaN(v) {
				return nil, &model.WeatherCoverageError{
					Period: period,
					Reason: fmt.Sprintf("no %s sample at %s", c, sliced.Index[i]),
				}
			}
		}
	}
	return sliced, nil
}

package engine

import (
	"errors"
	"time"

	"community-load-profiles/internal/model"
)

// ------------------- Typical-Day Extraction -------------------

// Typical-day selection methods.
const (
	MethodNearest = "nearest" // day minimizing squared distance to the month's mean-hour vector
	MethodMean    = "mean"    // the mean-hour vector itself
)

// Months need at least this many complete days to yield a typical day; a
// single day cannot represent a month.
const minTypicalDays = 2

// ExtractTypicalDays derives one representative 24-hour profile per calendar
// month per load channel from an hourly profile. This is pure post-processing:
// it reads the profile and feeds nothing back into aggregation.
//
// Months with too few complete days contribute an InsufficientDataError to
// the joined error instead of a fabricated profile; other months are
// unaffected.
func ExtractTypicalDays(profile *model.AggregateProfile, method string) ([]model.TypicalDayProfile, error) {
	if method == "" {
		method = MethodNearest
	}
	months := splitMonths(profile.Hourly)

	var out []model.TypicalDayProfile
	var errs []error
	for _, m := range months {
		for _, ch := range profile.Channels {
			tp, err := typicalDay(m, ch, method)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, tp)
		}
	}
	return out, errors.Join(errs...)
}

// monthDays groups one month's hourly data into complete days.
type monthDays struct {
	year  int
	month time.Month
	dates []time.Time // midnight of each complete day, ascending
	rows  []int       // row offset of each day's hour 0 in the source frame
	frame *model.Frame
}

// splitMonths walks the hourly index and collects complete (24-hour) days per
// month, in chronological order. Partial days at period edges are skipped.
func splitMonths(hourly *model.Frame) []*monthDays {
	var months []*monthDays
	byMonth := make(map[time.Time]*monthDays)

	i := 0
	for i < hourly.Len() {
		t := hourly.Index[i]
		if t.Hour() != 0 || i+24 > hourly.Len() {
			i++
			continue
		}
		mKey := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		m, ok := byMonth[mKey]
		if !ok {
			m = &monthDays{year: t.Year(), month: t.Month(), frame: hourly}
			byMonth[mKey] = m
			months = append(months, m)
		}
		m.dates = append(m.dates, t)
		m.rows = append(m.rows, i)
		i += 24
	}
	return months
}

func typicalDay(m *monthDays, channel, method string) (model.TypicalDayProfile, error) {
	if len(m.dates) < minTypicalDays {
		return model.TypicalDayProfile{}, &model.InsufficientDataError{Month: m.month, Year: m.year, Days: len(m.dates)}
	}
	src := m.frame.Values[channel]

	var meanHour [24]float64
	for d := range m.dates {
		row := m.rows[d]
		for h := 0; h < 24; h++ {
			meanHour[h] += src[row+h]
		}
	}
	for h := range meanHour {
		meanHour[h] /= float64(len(m.dates))
	}

	tp := model.TypicalDayProfile{Month: m.month, Year: m.year, Channel: channel, Method: method}
	if method == MethodMean {
		tp.Hours = meanHour
		return tp, nil
	}

	// Nearest day: minimal sum of squared hourly deviations from the mean-hour
	// vector. Strict comparison keeps the earliest date on ties.
	best := -1
	var bestDist float64
	for d := range m.dates {
		row := m.rows[d]
		var dist float64
		for h := 0; h < 24; h++ {
			dev := src[row+h] - meanHour[h]
			dist += dev * dev
		}
		if best < 0 || dist < bestDist {
			best = d
			bestDist = dist
		}
	}
	tp.Day = m.dates[best]
	row := m.rows[best]
	for h := 0; h < 24; h++ {
		tp.Hours[h] = src[row+h]
	}
	return tp, nil
}

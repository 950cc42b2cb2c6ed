package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-load-profiles/internal/model"
)

// dayProfile builds an hourly profile whose value each hour is dayValues[d]
// for day d.
func dayProfile(t *testing.T, start string, dayValues []float64) *model.AggregateProfile {
	t.Helper()
	period := hourlyPeriod(t, start, len(dayValues)*24)
	f := model.NewFrame(period.Index(), []string{"electricity"})
	vals := f.Column("electricity")
	for d, v := range dayValues {
		for h := 0; h < 24; h++ {
			vals[d*24+h] = v
		}
	}
	return &model.AggregateProfile{Period: period, Channels: []string{"electricity"}, Hourly: f}
}

func TestExtractTypicalDaysSingleDayMonth(t *testing.T) {
	profile := dayProfile(t, "2018-01-01", []float64{1.0})

	days, err := ExtractTypicalDays(profile, MethodNearest)
	assert.Empty(t, days)

	var insufficient *model.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, time.January, insufficient.Month)
	assert.Equal(t, 1, insufficient.Days)
}

func TestExtractTypicalDaysIdenticalDays(t *testing.T) {
	profile := dayProfile(t, "2018-01-01", []float64{2.5, 2.5, 2.5})

	days, err := ExtractTypicalDays(profile, MethodNearest)
	require.NoError(t, err)
	require.Len(t, days, 1)

	tp := days[0]
	assert.Equal(t, time.January, tp.Month)
	assert.Equal(t, "electricity", tp.Channel)
	// tie resolves to the earliest date
	assert.Equal(t, time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC), tp.Day)
	for h := 0; h < 24; h++ {
		assert.InDelta(t, 2.5, tp.Hours[h], 1e-12)
	}
}

func TestExtractTypicalDaysNearestPicksMedianDay(t *testing.T) {
	profile := dayProfile(t, "2018-01-01", []float64{1.0, 2.0, 3.0})

	days, err := ExtractTypicalDays(profile, MethodNearest)
	require.NoError(t, err)
	require.Len(t, days, 1)

	// mean-hour value is 2.0; day 2 matches it exactly
	assert.Equal(t, time.Date(2018, time.January, 2, 0, 0, 0, 0, time.UTC), days[0].Day)
	assert.InDelta(t, 2.0, days[0].Hours[0], 1e-12)
}

func TestExtractTypicalDaysMeanMethod(t *testing.T) {
	profile := dayProfile(t, "2018-01-01", []float64{1.0, 3.0})

	days, err := ExtractTypicalDays(profile, MethodMean)
	require.NoError(t, err)
	require.Len(t, days, 1)

	assert.True(t, days[0].Day.IsZero())
	assert.Equal(t, MethodMean, days[0].Method)
	for h := 0; h < 24; h++ {
		assert.InDelta(t, 2.0, days[0].Hours[h], 1e-12)
	}
}

func TestExtractTypicalDaysSpansMonths(t *testing.T) {
	// Jan 30 through Feb 2: two complete days in each month.
	profile := dayProfile(t, "2018-01-30", []float64{1.0, 2.0, 3.0, 4.0})

	days, err := ExtractTypicalDays(profile, MethodNearest)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, time.January, days[0].Month)
	assert.Equal(t, time.February, days[1].Month)
}

func TestExtractTypicalDaysSkipsPartialEdgeDays(t *testing.T) {
	// Start at noon: the first 12 hours never form a complete day.
	start := time.Date(2018, time.January, 1, 12, 0, 0, 0, time.UTC)
	period := model.Period{Start: start, End: start.Add(36 * time.Hour), Step: time.Hour}
	f := model.NewFrame(period.Index(), []string{"electricity"})
	profile := &model.AggregateProfile{Period: period, Channels: []string{"electricity"}, Hourly: f}

	days, err := ExtractTypicalDays(profile, MethodNearest)
	assert.Empty(t, days)
	var insufficient *model.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Days)
}

func TestExtractTypicalDaysPartialMonthReportsOthers(t *testing.T) {
	// January has one complete day, February has two: January errors,
	// February still yields a profile.
	profile := dayProfile(t, "2018-01-31", []float64{1.0, 2.0, 3.0})

	days, err := ExtractTypicalDays(profile, MethodNearest)
	require.Len(t, days, 1)
	assert.Equal(t, time.February, days[0].Month)

	var insufficient *model.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, time.January, insufficient.Month)
}

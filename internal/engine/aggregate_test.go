package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-load-profiles/internal/model"
	"community-load-profiles/internal/weather"
)

func alignedBuilding(stock model.StockType, id int64, weight float64, frame *model.Frame) AlignedBuilding {
	return AlignedBuilding{
		Record: model.BuildingRecord{Stock: stock, ID: id, Weight: weight},
		Frame:  frame,
	}
}

func scenarioWithChannels() model.ScenarioConfig {
	return model.ScenarioConfig{Channels: electricityChannels()}
}

func TestAggregateWeightedSum(t *testing.T) {
	period := hourlyPeriod(t, "2018-01-01", 48)
	cohort := &AlignedCohort{
		Period: period,
		Buildings: []AlignedBuilding{
			alignedBuilding(model.StockResidential, 1, 1.0, constFrame(period, "electricity", 1.0)),
			alignedBuilding(model.StockResidential, 2, 1.0, constFrame(period, "electricity", 1.0)),
			alignedBuilding(model.StockResidential, 3, 2.0, constFrame(period, "electricity", 1.0)),
		},
	}

	p := Aggregate(cohort, scenarioWithChannels())
	require.Equal(t, 48, p.Hourly.Len())
	for _, v := range p.Hourly.Column("electricity") {
		assert.InDelta(t, 4.0, v, 1e-12)
	}
	require.Equal(t, 2, p.DailyF.Len())
	assert.InDelta(t, 96.0, p.DailyF.Column("electricity")[0], 1e-9)
	require.Equal(t, 1, p.MonthlyF.Len())
	assert.InDelta(t, 192.0, p.MonthlyF.Column("electricity")[0], 1e-9)
}

func TestAggregateDerivedTablesResampleHourly(t *testing.T) {
	period := hourlyPeriod(t, "2018-01-01", 72)
	cohort := &AlignedCohort{
		Period:    period,
		Buildings: []AlignedBuilding{alignedBuilding(model.StockResidential, 1, 1.0, rampFrame(period, "electricity"))},
	}

	p := Aggregate(cohort, scenarioWithChannels())

	hourly := p.Hourly.Column("electricity")
	daily := p.DailyF.Column("electricity")
	require.Equal(t, 3, p.DailyF.Len())
	for d := 0; d < 3; d++ {
		var sum float64
		for h := 0; h < 24; h++ {
			sum += hourly[d*24+h]
		}
		assert.InDelta(t, sum, daily[d], 1e-9, "day %d", d)
	}

	var monthSum float64
	for _, v := range daily {
		monthSum += v
	}
	require.Equal(t, 1, p.MonthlyF.Len())
	assert.InDelta(t, monthSum, p.MonthlyF.Column("electricity")[0], 1e-9)
}

func TestAggregateBreakdownByStock(t *testing.T) {
	period := hourlyPeriod(t, "2018-01-01", 24)
	cohort := &AlignedCohort{
		Period: period,
		Buildings: []AlignedBuilding{
			alignedBuilding(model.StockResidential, 1, 1.0, constFrame(period, "electricity", 1.0)),
			alignedBuilding(model.StockCommercial, 1, 1.0, constFrame(period, "electricity", 5.0)),
		},
	}
	cfg := scenarioWithChannels()
	cfg.BreakdownByStock = true

	p := Aggregate(cohort, cfg)
	assert.Equal(t, []string{"electricity", "residential_electricity", "commercial_electricity"}, p.Channels)
	assert.InDelta(t, 6.0, p.Hourly.Column("electricity")[0], 1e-12)
	assert.InDelta(t, 1.0, p.Hourly.Column("residential_electricity")[0], 1e-12)
	assert.InDelta(t, 5.0, p.Hourly.Column("commercial_electricity")[0], 1e-12)
}

func TestAggregateSingleStockNoBreakdown(t *testing.T) {
	period := hourlyPeriod(t, "2018-01-01", 24)
	cohort := &AlignedCohort{
		Period:    period,
		Buildings: []AlignedBuilding{alignedBuilding(model.StockResidential, 1, 1.0, constFrame(period, "electricity", 1.0))},
	}
	cfg := scenarioWithChannels()
	cfg.BreakdownByStock = true

	p := Aggregate(cohort, cfg)
	assert.Equal(t, []string{"electricity"}, p.Channels)
}

func TestAggregateWeatherAuxMeanResample(t *testing.T) {
	period := hourlyPeriod(t, "2018-01-01", 48)
	cohort := &AlignedCohort{
		Period:    period,
		Buildings: []AlignedBuilding{alignedBuilding(model.StockResidential, 1, 1.0, constFrame(period, "electricity", 1.0))},
		Weather:   constFrame(period, weather.TemperatureColumn, 20.0),
	}

	p := Aggregate(cohort, scenarioWithChannels())
	assert.Equal(t, []string{weather.TemperatureColumn}, p.Aux)
	// temperature is averaged on resample, not summed
	assert.InDelta(t, 20.0, p.DailyF.Column(weather.TemperatureColumn)[0], 1e-9)
	assert.InDelta(t, 20.0, p.MonthlyF.Column(weather.TemperatureColumn)[0], 1e-9)
}

func TestPairwiseSumMatchesSequential(t *testing.T) {
	xs := make([]float64, 1000)
	var want float64
	for i := range xs {
		xs[i] = float64(i%13)*0.1 + 0.007
		want += xs[i]
	}

	got := pairwiseSum(xs)
	assert.InDelta(t, want, got, 1e-9)
	assert.Equal(t, got, pairwiseSum(xs))
}

package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() ScenarioConfig {
	return ScenarioConfig{
		State:    "CO",
		Runs:     2,
		Period:   PeriodConfig{Start: "2018-01-01", End: "2018-01-03"},
		Channels: []ChannelConfig{{Name: "electricity"}},
		Residential: &StockConfig{
			Characteristics: "chars.csv",
			TimeseriesDir:   "ts",
			Columns:         WorkbookColumns{ID: "bldg_id"},
			Count:           3,
		},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ScenarioConfig)
	}{
		{"zero runs", func(c *ScenarioConfig) { c.Runs = 0 }},
		{"no channels", func(c *ScenarioConfig) { c.Channels = nil }},
		{"unnamed channel", func(c *ScenarioConfig) { c.Channels = []ChannelConfig{{}} }},
		{"negative scale", func(c *ScenarioConfig) { c.Channels[0].Scale = -1 }},
		{"no stock", func(c *ScenarioConfig) { c.Residential = nil }},
		{"no characteristics", func(c *ScenarioConfig) { c.Residential.Characteristics = "" }},
		{"no timeseries dir", func(c *ScenarioConfig) { c.Residential.TimeseriesDir = "" }},
		{"no id column", func(c *ScenarioConfig) { c.Residential.Columns.ID = "" }},
		{"bad fraction", func(c *ScenarioConfig) { c.Residential.Fraction = 1.5 }},
		{"zero plan count", func(c *ScenarioConfig) { c.Residential.Plan = []PlanEntry{{BuildingType: "x"}} }},
		{"bad period", func(c *ScenarioConfig) { c.Period.End = "2017-01-01" }},
		{"unknown spread", func(c *ScenarioConfig) { c.Averaging.Spread = "stddev" }},
		{"percentile without band", func(c *ScenarioConfig) { c.Averaging.Spread = SpreadPercentile }},
		{"band out of range", func(c *ScenarioConfig) { c.Averaging.Spread = SpreadPercentile; c.Averaging.Band = 1.0 }},
		{"unknown method", func(c *ScenarioConfig) { c.Profiles.Method = "median" }},
		{"weather without files", func(c *ScenarioConfig) { c.Weather.Enabled = true }},
		{"bad units", func(c *ScenarioConfig) { c.Weather.PreferredUnits = "K" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestScenarioPeriod(t *testing.T) {
	p, err := validConfig().ScenarioPeriod()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, 48, p.Length())
	assert.Equal(t, time.Hour, p.Step)
}

func TestFingerprintStable(t *testing.T) {
	a := validConfig()
	b := validConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Residential.Count = 4
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestLoadConfigYAML(t *testing.T) {
	raw := `
state: CO
upgrade: 0
seed: 42
runs: 3
period:
  start: "2018-01-01"
  end: "2018-01-03"
channels:
  - name: electricity
    aliases: ["out.electricity.total.energy_consumption"]
    scale: 0.001
residential:
  characteristics: chars.csv
  timeseries_dir: ts
  file_template: "{id}-0.csv"
  columns:
    id: bldg_id
  count: 5
averaging:
  spread: minmax
  vary_runs: true
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "CO", cfg.State)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(42), *cfg.Seed)
	assert.Equal(t, 3, cfg.Runs)
	require.Len(t, cfg.Channels, 1)
	assert.InDelta(t, 0.001, cfg.Channels[0].Scale, 1e-12)
	require.NotNil(t, cfg.Residential)
	assert.Equal(t, 5, cfg.Residential.Count)
	assert.Equal(t, SpreadMinMax, cfg.Averaging.Spread)
	assert.True(t, cfg.Averaging.VaryRuns)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runs: 0\n"), 0644))
	_, err := LoadConfig(path)
	require.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestChannelScaleDefault(t *testing.T) {
	assert.InDelta(t, 1.0, ChannelConfig{Name: "x"}.ChannelScale(), 1e-12)
	assert.InDelta(t, 0.5, ChannelConfig{Name: "x", Scale: 0.5}.ChannelScale(), 1e-12)
}

func TestBandQuantiles(t *testing.T) {
	lo, hi := AveragingConfig{Band: 0.9}.BandQuantiles()
	assert.InDelta(t, 0.05, lo, 1e-12)
	assert.InDelta(t, 0.95, hi, 1e-12)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, RoundHalfUp(2.5))
	assert.Equal(t, 2, RoundHalfUp(2.4))
	assert.Equal(t, 0, RoundHalfUp(0.2))
	assert.Equal(t, 1, RoundHalfUp(0.5))
}

func TestProfilesConfigDefaults(t *testing.T) {
	var p ProfilesConfig
	assert.True(t, p.TypicalDayEnabled())
	assert.True(t, p.UseAveraged())

	off := false
	p.Enabled = &off
	p.AverageAcrossRuns = &off
	assert.False(t, p.TypicalDayEnabled())
	assert.False(t, p.UseAveraged())
}

package model

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ChannelConfig maps a load channel to its source columns. Aliases are tried
// in order against each building file's header; Scale converts source units
// into the channel's output unit (default 1.0).
type ChannelConfig struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases" json:"aliases"`
	Scale   float64  `yaml:"scale" json:"scale"`
}

// PlanEntry requests a number of buildings of one type, sampled without
// replacement from the matching workbook rows.
type PlanEntry struct {
	BuildingType string `yaml:"building_type" json:"buildingType"`
	Count        int    `yaml:"count" json:"count"`
}

// WorkbookColumns names the characteristics-workbook columns the loader reads.
// ID is required; the rest are optional and default to absent.
type WorkbookColumns struct {
	ID           string `yaml:"id" json:"id"`
	BuildingType string `yaml:"building_type" json:"buildingType"`
	State        string `yaml:"state" json:"state"`
	Upgrade      string `yaml:"upgrade" json:"upgrade"`
	Weight       string `yaml:"weight" json:"weight"`
	Units        string `yaml:"units" json:"units"`
}

// StockConfig describes one building stock's inputs and sampling rule.
// Exactly one of Plan, Count, or Fraction should drive the draw; when all are
// zero the whole filtered stock is taken.
type StockConfig struct {
	Characteristics string          `yaml:"characteristics" json:"characteristics"`
	TimeseriesDir   string          `yaml:"timeseries_dir" json:"timeseriesDir"`
	FileTemplate    string          `yaml:"file_template" json:"fileTemplate"` // e.g. "{id}-0.csv"
	Columns         WorkbookColumns `yaml:"columns" json:"columns"`
	Plan            []PlanEntry     `yaml:"plan,omitempty" json:"plan,omitempty"`
	Count           int             `yaml:"count,omitempty" json:"count,omitempty"`
	Fraction        float64         `yaml:"fraction,omitempty" json:"fraction,omitempty"`
	// UnitScaledTypes lists building types whose sampling weight is multiplied
	// by the workbook units column (multifamily extrapolation).
	UnitScaledTypes []string `yaml:"unit_scaled_types,omitempty" json:"unitScaledTypes,omitempty"`
}

// WeatherConfig controls the optional weather join.
type WeatherConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	Files          []string `yaml:"files,omitempty" json:"files,omitempty"`
	SourceLabels   []string `yaml:"source_labels,omitempty" json:"sourceLabels,omitempty"`
	PreferredUnits string   `yaml:"preferred_units,omitempty" json:"preferredUnits,omitempty"` // "C" or "F"
}

// ProfilesConfig controls typical-day extraction.
type ProfilesConfig struct {
	Enabled           *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"` // default true
	Method            string `yaml:"method,omitempty" json:"method,omitempty"`   // "nearest" (default) or "mean"
	AverageAcrossRuns *bool  `yaml:"average_across_runs,omitempty" json:"averageAcrossRuns,omitempty"`
}

// TypicalDayEnabled resolves the toggle's default.
func (p ProfilesConfig) TypicalDayEnabled() bool { return p.Enabled == nil || *p.Enabled }

// UseAveraged reports whether typical days derive from the averaged profile
// (default) or from the first run.
func (p ProfilesConfig) UseAveraged() bool { return p.AverageAcrossRuns == nil || *p.AverageAcrossRuns }

// AveragingConfig controls the multi-run averager.
type AveragingConfig struct {
	Spread SpreadKind `yaml:"spread,omitempty" json:"spread,omitempty"` // "", "minmax", "percentile"
	Band   float64    `yaml:"band,omitempty" json:"band,omitempty"`     // central mass for percentile spread
	// VaryRuns gives each run its own seed (seed + run index). When false every
	// run draws the identical cohort.
	VaryRuns bool `yaml:"vary_runs" json:"varyRuns"`
}

// OutputOptions controls which downstream files the writers emit.
type OutputOptions struct {
	Dir           string `yaml:"dir,omitempty" json:"dir,omitempty"`
	WriteCSV      bool   `yaml:"write_csv" json:"writeCSV"`
	WriteXLSX     bool   `yaml:"write_xlsx" json:"writeXLSX"`
	WritePlots    bool   `yaml:"write_plots" json:"writePlots"`
	WriteOverview bool   `yaml:"write_overview" json:"writeOverview"`
}

// PerformanceConfig bounds the reader worker pool.
type PerformanceConfig struct {
	MaxWorkers  int    `yaml:"max_workers,omitempty" json:"maxWorkers,omitempty"`
	ReadTimeout string `yaml:"read_timeout,omitempty" json:"readTimeout,omitempty"` // e.g. "30s"
	ReadRetries int    `yaml:"read_retries,omitempty" json:"readRetries,omitempty"`
}

// PeriodConfig declares the scenario period as dates; End is exclusive.
type PeriodConfig struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// ScenarioConfig is the immutable configuration value passed into every
// component call. Construct it once (LoadConfig or JSON decode + Validate);
// nothing mutates it afterwards.
type ScenarioConfig struct {
	State   string `yaml:"state" json:"state"`
	Upgrade int    `yaml:"upgrade" json:"upgrade"`
	// Seed drives cohort sampling. When nil a seed is derived from the
	// scenario fingerprint so a single invocation is still reproducible.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
	Runs int    `yaml:"runs" json:"runs"`

	Period   PeriodConfig    `yaml:"period" json:"period"`
	Channels []ChannelConfig `yaml:"channels" json:"channels"`

	Residential *StockConfig `yaml:"residential,omitempty" json:"residential,omitempty"`
	Commercial  *StockConfig `yaml:"commercial,omitempty" json:"commercial,omitempty"`

	// BreakdownByStock adds per-stock columns next to each combined channel.
	BreakdownByStock bool `yaml:"breakdown_by_stock" json:"breakdownByStock"`

	Weather     WeatherConfig     `yaml:"weather" json:"weather"`
	Profiles    ProfilesConfig    `yaml:"profiles" json:"profiles"`
	Averaging   AveragingConfig   `yaml:"averaging" json:"averaging"`
	Outputs     OutputOptions     `yaml:"outputs" json:"outputs"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
}

// Stocks returns the configured stocks in a fixed order.
func (c ScenarioConfig) Stocks() map[StockType]*StockConfig {
	out := make(map[StockType]*StockConfig, 2)
	if c.Residential != nil {
		out[StockResidential] = c.Residential
	}
	if c.Commercial != nil {
		out[StockCommercial] = c.Commercial
	}
	return out
}

// ChannelNames returns the configured channel names in order.
func (c ScenarioConfig) ChannelNames() []string {
	names := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		names[i] = ch.Name
	}
	return names
}

// ScenarioPeriod parses the configured period into an hourly Period.
func (c ScenarioConfig) ScenarioPeriod() (Period, error) {
	start, err := parseDate(c.Period.Start)
	if err != nil {
		return Period{}, fmt.Errorf("period start: %w", err)
	}
	end, err := parseDate(c.Period.End)
	if err != nil {
		return Period{}, fmt.Errorf("period end: %w", err)
	}
	p := Period{Start: start, End: end, Step: time.Hour}
	if p.Length() <= 0 {
		return Period{}, fmt.Errorf("period %s is empty", p)
	}
	return p, nil
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Validate checks the configuration before any I/O is attempted.
func (c ScenarioConfig) Validate() error {
	if c.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channel with empty name")
		}
		if ch.Scale < 0 {
			return fmt.Errorf("channel %s: negative scale", ch.Name)
		}
	}
	if c.Residential == nil && c.Commercial == nil {
		return fmt.Errorf("no building stock configured")
	}
	for stock, sc := range c.Stocks() {
		if sc.Characteristics == "" {
			return fmt.Errorf("%s: characteristics workbook path is required", stock)
		}
		if sc.TimeseriesDir == "" {
			return fmt.Errorf("%s: timeseries_dir is required", stock)
		}
		if sc.Columns.ID == "" {
			return fmt.Errorf("%s: columns.id is required", stock)
		}
		if sc.Fraction < 0 || sc.Fraction > 1 {
			return fmt.Errorf("%s: fraction must be within [0, 1], got %v", stock, sc.Fraction)
		}
		for _, p := range sc.Plan {
			if p.Count <= 0 {
				return fmt.Errorf("%s: plan entry %q must request a positive count", stock, p.BuildingType)
			}
		}
	}
	if _, err := c.ScenarioPeriod(); err != nil {
		return err
	}
	switch c.Averaging.Spread {
	case SpreadNone, SpreadMinMax:
	case SpreadPercentile:
		if c.Averaging.Band <= 0 || c.Averaging.Band >= 1 {
			return fmt.Errorf("averaging band must be within (0, 1), got %v", c.Averaging.Band)
		}
	default:
		return fmt.Errorf("unknown spread kind %q", c.Averaging.Spread)
	}
	switch c.Profiles.Method {
	case "", "nearest", "mean":
	default:
		return fmt.Errorf("unknown typical-day method %q", c.Profiles.Method)
	}
	if c.Weather.Enabled && len(c.Weather.Files) == 0 {
		return fmt.Errorf("weather enabled but no weather files configured")
	}
	switch c.Weather.PreferredUnits {
	case "", "C", "F":
	default:
		return fmt.Errorf("weather preferred_units must be C or F, got %q", c.Weather.PreferredUnits)
	}
	return nil
}

// Fingerprint summarizes the selection-relevant parts of the config. It seeds
// the sampler when no explicit seed is set.
func (c ScenarioConfig) Fingerprint() string {
	s := fmt.Sprintf("%s|%d|%d|%s|%s", c.State, c.Upgrade, c.Runs, c.Period.Start, c.Period.End)
	for _, sc := range []*StockConfig{c.Residential, c.Commercial} {
		if sc == nil {
			continue
		}
		s += fmt.Sprintf("|%d:%g", sc.Count, sc.Fraction)
		for _, p := range sc.Plan {
			s += fmt.Sprintf(":%s=%d", p.BuildingType, p.Count)
		}
	}
	return s
}

// ChannelScale returns a channel's unit factor, defaulting to 1.0.
func (ch ChannelConfig) ChannelScale() float64 {
	if ch.Scale == 0 {
		return 1.0
	}
	return ch.Scale
}

// BandQuantiles returns the lower/upper quantiles of a percentile spread.
func (a AveragingConfig) BandQuantiles() (float64, float64) {
	lo := (1 - a.Band) / 2
	return lo, 1 - lo
}

// LoadConfig reads and validates a YAML scenario configuration file.
func LoadConfig(path string) (ScenarioConfig, error) {
	var cfg ScenarioConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RoundHalfUp mirrors the original sampling arithmetic when converting a
// fraction of the stock into a building count.
func RoundHalfUp(x float64) int { return int(math.Floor(x + 0.5)) }

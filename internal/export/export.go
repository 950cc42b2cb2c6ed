// Package export writes the engine's output structures to files for
// downstream consumers: per-run and averaged CSVs, a compiled-runs table, an
// xlsx summary workbook, typical-day tables, plots, and a scenario overview.
// Writers consume profiles read-only.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"community-load-profiles/internal/engine"
	"community-load-profiles/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteFrameCSV writes a frame as timestamp-indexed CSV, creating parent
// directories as needed.
func WriteFrameCSV(f *model.Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append([]string{"timestamp"}, f.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, t := range f.Index {
		row[0] = t.Format(timestampLayout)
		for j, c := range f.Columns {
			row[j+1] = strconv.FormatFloat(f.Values[c][i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteRunOutputs writes one run's hourly/daily/monthly profiles into dir.
func WriteRunOutputs(dir string, rr *model.RunResult) error {
	files := map[string]*model.Frame{
		"community_load_profile_hourly.csv":  rr.Profile.Hourly,
		"community_load_profile_daily.csv":   rr.Profile.DailyF,
		"community_load_profile_monthly.csv": rr.Profile.MonthlyF,
	}
	for name, frame := range files {
		if err := WriteFrameCSV(frame, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// WriteAveragedOutputs writes the averaged profile (and its spread, when
// present) into dir.
func WriteAveragedOutputs(dir string, avg *model.AveragedProfile) error {
	profiles := map[string]*model.AggregateProfile{"averaged": avg.Mean}
	if avg.Lower != nil {
		profiles["lower"] = avg.Lower
		profiles["upper"] = avg.Upper
	}
	for label, p := range profiles {
		for res, frame := range map[string]*model.Frame{"hourly": p.Hourly, "daily": p.DailyF, "monthly": p.MonthlyF} {
			name := fmt.Sprintf("community_load_profile_%s_%s.csv", label, res)
			if err := WriteFrameCSV(frame, filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
		}
	}
	return nil
}

// WriteCompiledRuns writes every run's hourly channels side by side, one
// column per (run, channel), the way the averager sees them.
func WriteCompiledRuns(path string, runs []*model.RunResult) error {
	if len(runs) == 0 {
		return nil
	}
	base := runs[0].Profile.Hourly
	compiled := &model.Frame{Index: base.Index, Values: make(map[string][]float64)}
	for _, rr := range runs {
		for _, c := range rr.Profile.Channels {
			compiled.AddColumn(fmt.Sprintf("run%d_%s", rr.Run, c), rr.Profile.Hourly.Values[c])
		}
	}
	return WriteFrameCSV(compiled, path)
}

// WriteTypicalDays writes typical-day profiles in two shapes: a long-form
// table (month, hour, channel, value) and one pivot per channel (hour rows,
// month columns).
func WriteTypicalDays(dir string, days []model.TypicalDayProfile) error {
	if len(days) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	long, err := os.Create(filepath.Join(dir, "typical_day_monthly_long.csv"))
	if err != nil {
		return err
	}
	defer long.Close()
	w := csv.NewWriter(long)
	if err := w.Write([]string{"year", "month", "channel", "method", "day", "hour", "value"}); err != nil {
		return err
	}
	for _, tp := range days {
		day := ""
		if !tp.Day.IsZero() {
			day = tp.Day.Format("2006-01-02")
		}
		for h := 0; h < 24; h++ {
			rec := []string{
				strconv.Itoa(tp.Year),
				strconv.Itoa(int(tp.Month)),
				tp.Channel,
				tp.Method,
				day,
				strconv.Itoa(h),
				strconv.FormatFloat(tp.Hours[h], 'g', -1, 64),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	byChannel := make(map[string][]model.TypicalDayProfile)
	var channels []string
	for _, tp := range days {
		if _, seen := byChannel[tp.Channel]; !seen {
			channels = append(channels, tp.Channel)
		}
		byChannel[tp.Channel] = append(byChannel[tp.Channel], tp)
	}
	for _, ch := range channels {
		if err := writePivot(filepath.Join(dir, fmt.Sprintf("typical_day_monthly_%s_pivot.csv", ch)), byChannel[ch]); err != nil {
			return err
		}
	}
	return nil
}

func writePivot(path string, days []model.TypicalDayProfile) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"hour"}
	for _, tp := range days {
		header = append(header, fmt.Sprintf("%d-%02d", tp.Year, int(tp.Month)))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for h := 0; h < 24; h++ {
		row := []string{strconv.Itoa(h)}
		for _, tp := range days {
			row = append(row, strconv.FormatFloat(tp.Hours[h], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Sheet names one tab of the summary workbook.
type Sheet struct {
	Name  string
	Frame *model.Frame
}

// WriteXLSXSummary writes the sheets into one workbook.
func WriteXLSXSummary(path string, sheets []Sheet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	for si, sheet := range sheets {
		if si == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}

		header := make([]interface{}, 0, len(sheet.Frame.Columns)+1)
		header = append(header, "timestamp")
		for _, c := range sheet.Frame.Columns {
			header = append(header, c)
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			return err
		}
		for i, t := range sheet.Frame.Index {
			row := make([]interface{}, 0, len(header))
			row = append(row, t.Format(timestampLayout))
			for _, c := range sheet.Frame.Columns {
				row = append(row, sheet.Frame.Values[c][i])
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// WriteOverview writes the scenario overview text file.
func WriteOverview(path string, cfg model.ScenarioConfig, result *engine.ScenarioResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	seed := engine.BaseSeed(cfg)
	text := fmt.Sprintf(
		"Generated: %s\nState: %s\nUpgrade: %d\nSeed: %d\nRuns: %d\nPeriod: %s\nBuildings per run: %d\nElapsed: %s\n",
		time.Now().UTC().Format(time.RFC3339), cfg.State, cfg.Upgrade, seed, len(result.Runs),
		result.Period, len(result.Runs[0].Cohort), result.Elapsed,
	)
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteAll writes everything the configuration asks for under dir:
// per-run directories, averaged outputs, compiled runs, typical days, the
// xlsx summary, plots, and the overview.
func WriteAll(dir string, cfg model.ScenarioConfig, result *engine.ScenarioResult) error {
	if !cfg.Outputs.WriteCSV && !cfg.Outputs.WriteXLSX && !cfg.Outputs.WritePlots && !cfg.Outputs.WriteOverview {
		return nil
	}
	if cfg.Outputs.WriteCSV {
		for _, rr := range result.Runs {
			runDir := filepath.Join(dir, fmt.Sprintf("Run-%d", rr.Run))
			if err := WriteRunOutputs(runDir, rr); err != nil {
				return err
			}
		}
		if err := WriteCompiledRuns(filepath.Join(dir, "compiled_runs.csv"), result.Runs); err != nil {
			return err
		}
		if err := WriteAveragedOutputs(dir, result.Averaged); err != nil {
			return err
		}
		if err := WriteTypicalDays(filepath.Join(dir, "profiles"), result.TypicalDays); err != nil {
			return err
		}
	}
	if cfg.Outputs.WriteXLSX {
		sheets := []Sheet{
			{Name: "avg_hourly", Frame: result.Averaged.Mean.Hourly},
			{Name: "avg_daily", Frame: result.Averaged.Mean.DailyF},
			{Name: "avg_monthly", Frame: result.Averaged.Mean.MonthlyF},
		}
		if err := WriteXLSXSummary(filepath.Join(dir, "excel", "summary.xlsx"), sheets); err != nil {
			return err
		}
	}
	if cfg.Outputs.WritePlots {
		for _, ch := range result.Averaged.Channels {
			path := filepath.Join(dir, "plots", fmt.Sprintf("averaged_%s_hourly.html", ch))
			if err := PlotHourly(result.Averaged.Mean.Hourly, ch, fmt.Sprintf("Average Community Hourly Profile (%s)", ch), path); err != nil {
				return err
			}
		}
	}
	if cfg.Outputs.WriteOverview {
		if err := WriteOverview(filepath.Join(dir, "overview.txt"), cfg, result); err != nil {
			return err
		}
	}
	return nil
}

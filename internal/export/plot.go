package export

import (
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"community-load-profiles/internal/model"
)

// PlotHourly renders one channel of an hourly frame as a standalone HTML line
// chart.
func PlotHourly(f *model.Frame, channel, title, path string) error {
	if !f.HasColumn(channel) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: channel}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	labels := make([]string, f.Len())
	points := make([]opts.LineData, f.Len())
	values := f.Values[channel]
	for i, t := range f.Index {
		labels[i] = t.Format("2006-01-02 15:04")
		points[i] = opts.LineData{Value: values[i]}
	}
	line.SetXAxis(labels).AddSeries(channel, points)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return line.Render(out)
}

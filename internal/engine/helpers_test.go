package engine

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"community-load-profiles/internal/model"
)

func hourlyPeriod(t *testing.T, start string, hours int) model.Period {
	t.Helper()
	s, err := time.ParseInLocation("2006-01-02", start, time.UTC)
	require.NoError(t, err)
	return model.Period{Start: s, End: s.Add(time.Duration(hours) * time.Hour), Step: time.Hour}
}

func constFrame(p model.Period, col string, v float64) *model.Frame {
	f := model.NewFrame(p.Index(), []string{col})
	vals := f.Column(col)
	for i := range vals {
		vals[i] = v
	}
	return f
}

func rampFrame(p model.Period, col string) *model.Frame {
	f := model.NewFrame(p.Index(), []string{col})
	vals := f.Column(col)
	for i := range vals {
		vals[i] = float64(i%7) + 0.25
	}
	return f
}

func writeSeriesCSV(t *testing.T, path string, start time.Time, hours int, col string, v float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp," + col + "\n")
	for i := 0; i < hours; i++ {
		fmt.Fprintf(&b, "%s,%g\n", start.Add(time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"), v)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func makeRecords(n int, stock model.StockType) []model.BuildingRecord {
	recs := make([]model.BuildingRecord, n)
	for i := range recs {
		recs[i] = model.BuildingRecord{
			Stock:        stock,
			ID:           int64(i + 1),
			BuildingType: "single_family",
			State:        "CO",
			Weight:       1.0,
		}
	}
	return recs
}

func electricityChannels() []model.ChannelConfig {
	return []model.ChannelConfig{{Name: "electricity"}}
}

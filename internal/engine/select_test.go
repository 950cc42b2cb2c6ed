package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-load-profiles/internal/model"
)

func TestSelectCohortSameSeedSameDraw(t *testing.T) {
	recs := makeRecords(20, model.StockResidential)
	sc := &model.StockConfig{Count: 5}

	a, err := SelectCohort(recs, sc, "", 0, newRand(42))
	require.NoError(t, err)
	b, err := SelectCohort(recs, sc, "", 0, newRand(42))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 5)

	seen := make(map[string]bool)
	for _, rec := range a {
		assert.False(t, seen[rec.Key()], "duplicate building %s", rec.Key())
		seen[rec.Key()] = true
	}
}

func TestSelectCohortDifferentSeeds(t *testing.T) {
	recs := makeRecords(20, model.StockResidential)
	sc := &model.StockConfig{Count: 5}

	a, err := SelectCohort(recs, sc, "", 0, newRand(1))
	require.NoError(t, err)
	b, err := SelectCohort(recs, sc, "", 0, newRand(2))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSelectCohortCountTooLarge(t *testing.T) {
	recs := makeRecords(10, model.StockResidential)
	sc := &model.StockConfig{Count: 11}

	_, err := SelectCohort(recs, sc, "", 0, newRand(1))
	var selErr *model.SelectionError
	require.ErrorAs(t, err, &selErr)
}

func TestSelectCohortFraction(t *testing.T) {
	recs := makeRecords(20, model.StockResidential)

	got, err := SelectCohort(recs, &model.StockConfig{Fraction: 0.5}, "", 0, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, 10)

	// 0.25 of 10 rounds half-up to 3
	got, err = SelectCohort(recs[:10], &model.StockConfig{Fraction: 0.25}, "", 0, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = SelectCohort(recs, &model.StockConfig{Fraction: 0.01}, "", 0, newRand(1))
	var selErr *model.SelectionError
	require.ErrorAs(t, err, &selErr)
}

func TestSelectCohortWholeStockDefault(t *testing.T) {
	recs := makeRecords(7, model.StockCommercial)
	got, err := SelectCohort(recs, &model.StockConfig{}, "", 0, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, 7)
}

func TestSelectCohortStateFilter(t *testing.T) {
	recs := makeRecords(10, model.StockResidential)
	for i := 5; i < 10; i++ {
		recs[i].State = "NY"
	}

	// Filter applies only when the state column is mapped.
	sc := &model.StockConfig{Columns: model.WorkbookColumns{State: "state"}}
	got, err := SelectCohort(recs, sc, "co", 0, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, rec := range got {
		assert.Equal(t, "CO", rec.State)
	}

	got, err = SelectCohort(recs, &model.StockConfig{}, "co", 0, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestSelectCohortUpgradeFilter(t *testing.T) {
	recs := makeRecords(10, model.StockResidential)
	for i := 0; i < 4; i++ {
		recs[i].Upgrade = 2
	}

	sc := &model.StockConfig{Columns: model.WorkbookColumns{Upgrade: "upgrade"}}
	got, err := SelectCohort(recs, sc, "", 2, newRand(1))
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = SelectCohort(recs, sc, "", 9, newRand(1))
	var selErr *model.SelectionError
	require.ErrorAs(t, err, &selErr)
}

func TestSelectCohortPlan(t *testing.T) {
	recs := makeRecords(15, model.StockCommercial)
	for i := 10; i < 15; i++ {
		recs[i].BuildingType = "warehouse"
	}
	sc := &model.StockConfig{Plan: []model.PlanEntry{
		{BuildingType: "single_family", Count: 3},
		{BuildingType: "warehouse", Count: 2},
	}}

	got, err := SelectCohort(recs, sc, "", 0, newRand(9))
	require.NoError(t, err)
	require.Len(t, got, 5)

	counts := make(map[string]int)
	for _, rec := range got {
		counts[rec.BuildingType]++
	}
	assert.Equal(t, 3, counts["single_family"])
	assert.Equal(t, 2, counts["warehouse"])
}

func TestSelectCohortPlanMissingType(t *testing.T) {
	recs := makeRecords(5, model.StockCommercial)
	sc := &model.StockConfig{Plan: []model.PlanEntry{{BuildingType: "hospital", Count: 1}}}

	_, err := SelectCohort(recs, sc, "", 0, newRand(1))
	var selErr *model.SelectionError
	require.ErrorAs(t, err, &selErr)
}

func TestRunSeed(t *testing.T) {
	seed := int64(99)
	cfg := model.ScenarioConfig{Seed: &seed}

	assert.Equal(t, int64(99), RunSeed(cfg, 0))
	assert.Equal(t, int64(99), RunSeed(cfg, 3))

	cfg.Averaging.VaryRuns = true
	assert.Equal(t, int64(99), RunSeed(cfg, 0))
	assert.Equal(t, int64(102), RunSeed(cfg, 3))
}

func TestBaseSeedDerivedFromFingerprint(t *testing.T) {
	a := model.ScenarioConfig{State: "CO", Runs: 2}
	b := model.ScenarioConfig{State: "CO", Runs: 2}
	c := model.ScenarioConfig{State: "NY", Runs: 2}

	assert.Equal(t, BaseSeed(a), BaseSeed(b))
	assert.NotEqual(t, BaseSeed(a), BaseSeed(c))
}

func TestSourcePath(t *testing.T) {
	sc := &model.StockConfig{TimeseriesDir: "/data/ts", FileTemplate: "{id}-{upgrade}.csv"}
	rec := model.BuildingRecord{ID: 42, Upgrade: 3}
	assert.Equal(t, "/data/ts/42-3.csv", SourcePath(sc, rec))

	sc.FileTemplate = ""
	assert.Equal(t, "/data/ts/42.csv", SourcePath(sc, rec))
}

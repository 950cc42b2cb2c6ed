package engine

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"

	"community-load-profiles/internal/model"
)

// ------------------- Cohort Selection -------------------

// SelectCohort draws an ordered, duplicate-free set of buildings from one
// stock's workbook records. State and upgrade filters apply only when the
// corresponding workbook column is mapped. Sampling is without replacement
// and fully determined by rng.
func SelectCohort(records []model.BuildingRecord, sc *model.StockConfig, state string, upgrade int, rng *rand.Rand) ([]model.BuildingRecord, error) {
	candidates := filterRecords(records, sc, state, upgrade)
	if len(candidates) == 0 {
		return nil, &model.SelectionError{Reason: fmt.Sprintf("no buildings match state=%q upgrade=%d", state, upgrade)}
	}

	if len(sc.Plan) > 0 {
		return selectByPlan(candidates, sc.Plan, rng)
	}

	k := sc.Count
	switch {
	case k > 0:
	case sc.Fraction > 0:
		k = model.RoundHalfUp(sc.Fraction * float64(len(candidates)))
		if k < 1 {
			return nil, &model.SelectionError{Reason: fmt.Sprintf("fraction %g of %d buildings selects none", sc.Fraction, len(candidates))}
		}
	default:
		k = len(candidates)
	}
	if k > len(candidates) {
		return nil, &model.SelectionError{Reason: fmt.Sprintf("requested %d buildings but only %d match", k, len(candidates))}
	}

	return sample(candidates, k, rng), nil
}

func filterRecords(records []model.BuildingRecord, sc *model.StockConfig, state string, upgrade int) []model.BuildingRecord {
	filterState := state != "" && sc.Columns.State != ""
	filterUpgrade := sc.Columns.Upgrade != ""
	out := make([]model.BuildingRecord, 0, len(records))
	for _, rec := range records {
		if filterState && !strings.EqualFold(rec.State, state) {
			continue
		}
		if filterUpgrade && rec.Upgrade != upgrade {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func selectByPlan(candidates []model.BuildingRecord, plan []model.PlanEntry, rng *rand.Rand) ([]model.BuildingRecord, error) {
	var chosen []model.BuildingRecord
	for _, entry := range plan {
		var pool []model.BuildingRecord
		for _, rec := range candidates {
			if rec.BuildingType == entry.BuildingType {
				pool = append(pool, rec)
			}
		}
		if len(pool) == 0 {
			return nil, &model.SelectionError{Reason: fmt.Sprintf("no buildings of type %q", entry.BuildingType)}
		}
		if entry.Count > len(pool) {
			return nil, &model.SelectionError{Reason: fmt.Sprintf("requested %d buildings of type %q but only %d exist", entry.Count, entry.BuildingType, len(pool))}
		}
		chosen = append(chosen, sample(pool, entry.Count, rng)...)
	}
	return chosen, nil
}

// sample draws k records without replacement, in permutation order.
func sample(pool []model.BuildingRecord, k int, rng *rand.Rand) []model.BuildingRecord {
	perm := rng.Perm(len(pool))
	out := make([]model.BuildingRecord, k)
	for i := 0; i < k; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

// ------------------- Seeding -------------------

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// BaseSeed returns the configured seed, or one derived from the scenario
// fingerprint so an unseeded scenario is still reproducible within a run.
func BaseSeed(cfg model.ScenarioConfig) int64 {
	if cfg.Seed != nil {
		return *cfg.Seed
	}
	h := fnv.New64a()
	h.Write([]byte(cfg.Fingerprint()))
	return int64(h.Sum64())
}

// RunSeed derives the seed for one run. Runs draw distinct cohorts only when
// vary_runs is configured; otherwise every run repeats the identical draw.
func RunSeed(cfg model.ScenarioConfig, run int) int64 {
	base := BaseSeed(cfg)
	if cfg.Averaging.VaryRuns {
		return base + int64(run)
	}
	return base
}

// SourcePath resolves a building's timeseries file from the stock's template.
// "{id}" and "{upgrade}" placeholders are substituted; the default template
// is "{id}.csv".
func SourcePath(sc *model.StockConfig, rec model.BuildingRecord) string {
	tmpl := sc.FileTemplate
	if tmpl == "" {
		tmpl = "{id}.csv"
	}
	name := strings.ReplaceAll(tmpl, "{id}", strconv.FormatInt(rec.ID, 10))
	name = strings.ReplaceAll(name, "{upgrade}", strconv.Itoa(rec.Upgrade))
	return filepath.Join(sc.TimeseriesDir, name)
}

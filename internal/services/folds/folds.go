// Package folds cuts a resampled table into named, non-overlapping calendar folds.
package folds

import (
	"fmt"
	"sort"
	"time"

	"TFoldSV/internal/domain/models"
)

// FormFolds partitions table according to policy. Every row lands in at most one fold,
// chosen from its UTC calendar fields; rows keep their order. An empty table yields an
// empty set. Under the holdout policy, years past floor(0.8n)+floor(0.2n) are left out
// and listed in FoldSet.Excluded. The table must be time ordered; a calendar period
// that reappears after a later one is an ErrSchema.
func FormFolds(table models.Table, policy Policy) (models.FoldSet, error) {
	switch policy {
	case PolicyQuarter:
		return byCalendar(table, policy, quarterKey)
	case PolicySemester:
		return byCalendar(table, policy, semesterKey)
	case PolicyYear:
		return byCalendar(table, policy, yearKey)
	case PolicyHoldout:
		return holdout(table), nil
	default:
		return models.FoldSet{}, fmt.Errorf("%w: unsupported fold size %q", models.ErrConfig, policy)
	}
}

func quarterOf(t time.Time) int { return (int(t.Month())-1)/3 + 1 }

func quarterKey(t time.Time) string {
	return fmt.Sprintf("q_%02d_%d", quarterOf(t), t.Year())
}

func semesterKey(t time.Time) string {
	half := 1
	if quarterOf(t) > 2 {
		half = 2
	}
	return fmt.Sprintf("s_0%d_%d", half, t.Year())
}

func yearKey(t time.Time) string { return fmt.Sprintf("y_%d", t.Year()) }

// byCalendar groups consecutive rows sharing a key. In a time ordered table each key
// forms exactly one contiguous run and the runs come out chronologically.
func byCalendar(table models.Table, policy Policy, key func(time.Time) string) (models.FoldSet, error) {
	set := models.NewFoldSet(string(policy))
	start := 0
	for i := 1; i <= table.Len(); i++ {
		if i < table.Len() && key(table.Bars[i].Time.UTC()) == key(table.Bars[start].Time.UTC()) {
			continue
		}
		if i > start {
			k := key(table.Bars[start].Time.UTC())
			if _, dup := set.Tables[k]; dup {
				return models.FoldSet{}, fmt.Errorf("%w: rows of fold %s are not contiguous, table is out of time order",
					models.ErrSchema, k)
			}
			set.Keys = append(set.Keys, k)
			set.Tables[k] = table.Slice(start, i)
		}
		start = i
	}
	return set, nil
}

func holdout(table models.Table) models.FoldSet {
	set := models.NewFoldSet(string(PolicyHoldout))
	if table.Len() == 0 {
		return set
	}

	rowsByYear := map[int][]int{}
	for i, b := range table.Bars {
		y := b.Time.UTC().Year()
		rowsByYear[y] = append(rowsByYear[y], i)
	}
	years := make([]int, 0, len(rowsByYear))
	for y := range rowsByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	nTrain, nVal := HoldoutSizes(len(years))
	collect := func(ys []int) models.Table {
		out := models.Table{Bars: []models.Bar{}, HasVolume: table.HasVolume}
		for _, y := range ys {
			for _, i := range rowsByYear[y] {
				out.Bars = append(out.Bars, table.Bars[i])
			}
		}
		return out
	}

	set.Keys = append(set.Keys, HoldoutTrainKey, HoldoutValidationKey)
	set.Tables[HoldoutTrainKey] = collect(years[:nTrain])
	set.Tables[HoldoutValidationKey] = collect(years[nTrain : nTrain+nVal])
	set.Excluded = append(set.Excluded, years[nTrain+nVal:]...)
	return set
}

// Years returns the distinct calendar years present in table, ascending.
func Years(table models.Table) []int {
	var out []int
	for _, b := range table.Bars {
		y := b.Time.UTC().Year()
		if len(out) == 0 || out[len(out)-1] != y {
			out = append(out, y)
		}
	}
	return out
}

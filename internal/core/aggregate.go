// Package core holds the pure domain model and the aggregation engine.
// Nothing in this package does I/O; given the same entries the same
// aggregates come back, which is what makes analysis runs reproducible.
package core

import (
	"sort"
	"strings"
)

const dayLayout = "2006-01-02"

type (
	// TagGroup accumulates occurrences of one tag across entries. The
	// grouping key is the lower-cased tag; Tag keeps the first original
	// casing seen, for display.
	TagGroup struct {
		Tag   string  `json:"tag"`
		Count int     `json:"count"`
		Sum   float64 `json:"sum"`
	}

	// Aggregates is the structured output of one aggregation run.
	Aggregates struct {
		TotalCount int
		Sum        float64
		Average    float64
		ByDay      []DatasetPoint
		ByTag      []TagGroup
	}

	// Options parameterizes an aggregation run.
	//
	// MissingValue is what an entry with no recorded numeric value
	// counts as: the detailed analysis and the read-only aggregate use
	// 0, the basic analysis counts occurrences and uses 1. The two
	// defaults are deliberately distinct; do not unify them.
	//
	// TagLimit caps ByTag to the top N groups; 0 means uncapped.
	Options struct {
		MissingValue float64
		TagLimit     int
	}
)

// Aggregate computes grouped sums, the running total and the average over
// a set of entries. Input order does not matter. ByDay comes back sorted
// ascending by date label; ByTag descending by count, ties in first-seen
// order. An entry with several tags contributes its full value to each
// tag's sum, so tag sums are not a partition of the total.
func Aggregate(entries []Entry, opts Options) Aggregates {
	agg := Aggregates{
		TotalCount: len(entries),
		ByDay:      []DatasetPoint{},
		ByTag:      []TagGroup{},
	}

	type tagAcc struct {
		display string
		count   int
		sum     float64
		seen    int
	}
	dayTotals := make(map[string]float64)
	tagTotals := make(map[string]*tagAcc)

	for _, e := range entries {
		v := e.Value(opts.MissingValue)
		agg.Sum += v

		day := e.CreatedAt.UTC().Format(dayLayout)
		dayTotals[day] += v

		for _, tag := range e.Tags {
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			acc, ok := tagTotals[key]
			if !ok {
				acc = &tagAcc{display: tag, seen: len(tagTotals)}
				tagTotals[key] = acc
			}
			acc.count++
			acc.sum += v
		}
	}

	if agg.TotalCount > 0 {
		agg.Average = agg.Sum / float64(agg.TotalCount)
	}

	days := make([]string, 0, len(dayTotals))
	for d := range dayTotals {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		agg.ByDay = append(agg.ByDay, DatasetPoint{Label: d, Value: dayTotals[d]})
	}

	accs := make([]*tagAcc, 0, len(tagTotals))
	for _, acc := range tagTotals {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].seen < accs[j].seen })
	sort.SliceStable(accs, func(i, j int) bool { return accs[i].count > accs[j].count })
	if opts.TagLimit > 0 && len(accs) > opts.TagLimit {
		accs = accs[:opts.TagLimit]
	}
	for _, acc := range accs {
		agg.ByTag = append(agg.ByTag, TagGroup{Tag: acc.display, Count: acc.count, Sum: acc.sum})
	}

	return agg
}

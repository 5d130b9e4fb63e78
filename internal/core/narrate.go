package core

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumber renders a float the way the summaries expect: no trailing
// zeros, no exponent for ordinary magnitudes (80 -> "80", 80.5 -> "80.5").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Narrate composes the detailed narrative from an aggregation run. Output
// is byte-reproducible for identical input: fixed templates joined by
// single spaces, with the tag sentence and the span sentence present only
// when there is data behind them.
func Narrate(agg Aggregates) string {
	parts := []string{
		fmt.Sprintf("You have %d entries with total value %s and average %.2f.",
			agg.TotalCount, FormatNumber(agg.Sum), agg.Average),
	}
	if len(agg.ByTag) > 0 {
		tags := make([]string, len(agg.ByTag))
		for i, t := range agg.ByTag {
			tags[i] = fmt.Sprintf("%s (%d)", t.Tag, t.Count)
		}
		parts = append(parts, "Top tags: "+strings.Join(tags, ", "))
	}
	if len(agg.ByDay) > 0 {
		parts = append(parts, fmt.Sprintf("Data spans %s to %s.",
			agg.ByDay[0].Label, agg.ByDay[len(agg.ByDay)-1].Label))
	}
	return strings.Join(parts, " ")
}

// NarrateBasic is the simpler sibling used by the basic analysis mode: it
// reports only count and total.
func NarrateBasic(totalCount int, sum float64) string {
	return fmt.Sprintf("You have %d entries with total value %s.", totalCount, FormatNumber(sum))
}

package analytics

import (
	"fmt"
	"time"
)

// RollupWeekly re-buckets a daily breakdown into ISO weeks (Monday start,
// the convention used everywhere periods are computed here). Keys look
// like "2025-W51". Values are summed, never altered.
func RollupWeekly(daily map[string]DayStat) map[string]DayStat {
	out := map[string]DayStat{}
	for date, day := range daily {
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		year, week := t.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		agg := out[key]
		agg.Count += day.Count
		agg.Uniques += day.Uniques
		out[key] = agg
	}
	return out
}

// RollupMonthly re-buckets a daily breakdown into months, keyed "2025-12".
func RollupMonthly(daily map[string]DayStat) map[string]DayStat {
	out := map[string]DayStat{}
	for date, day := range daily {
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		key := date[:7]
		agg := out[key]
		agg.Count += day.Count
		agg.Uniques += day.Uniques
		out[key] = agg
	}
	return out
}

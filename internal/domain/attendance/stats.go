package attendance

import (
	"fmt"
	"time"
)

// Stats aggregates attendance for the admin dashboard.
type Stats struct {
	TotalCheckIns      int    `json:"total_check_ins"`
	CurrentlyCheckedIn int    `json:"currently_checked_in"`
	TodaysCheckIns     int    `json:"todays_check_ins"`
	AvgDuration        string `json:"avg_duration"`
}

// ComputeStats summarises records as of asOf. "Today" is asOf's calendar
// day in loc; a nil loc means UTC. The average covers closed records only.
// POST: never divides by zero; AvgDuration is "0h 0m" with no closed records
func ComputeStats(records []Record, asOf time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := asOf.In(loc).Date()

	stats := Stats{TotalCheckIns: len(records)}
	var total time.Duration
	closed := 0
	for i := range records {
		r := &records[i]
		if r.IsOpen() {
			stats.CurrentlyCheckedIn++
		} else if dur := r.CheckOutTime.Sub(r.CheckInTime); dur >= 0 {
			total += dur
			closed++
		}
		ry, rm, rd := r.CheckInTime.In(loc).Date()
		if ry == y && rm == m && rd == d {
			stats.TodaysCheckIns++
		}
	}

	var avg time.Duration
	if closed > 0 {
		avg = total / time.Duration(closed)
	}
	stats.AvgDuration = FormatDuration(avg)
	return stats
}

// FormatDuration renders d as "{h}h {m}m", truncating seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}

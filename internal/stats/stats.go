// Package stats summarizes stored sessions into lap and race reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/schneider/internal/console"
	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"
)

const sparkChars = " .:-=+*#%@"

const noTime = "-"

// MovingAverage computes a trailing mean over window values. Leading
// entries average over what is available.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders values as a single line of ASCII levels, lowest to
// highest.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lowest, highest := lo.Min(values), lo.Max(values)
	top := len(sparkChars) - 1
	if highest-lowest < 1e-9 {
		return strings.Repeat(string(sparkChars[top/2+1]), len(values))
	}
	return strings.Join(lo.Map(values, func(v float64, _ int) string {
		idx := int(math.Round((v - lowest) / (highest - lowest) * float64(top)))
		return string(sparkChars[lo.Clamp(idx, 0, top)])
	}), "")
}

// BestLap returns the fastest lap in laps.
func BestLap(laps []model.StoredLap) (time.Duration, bool) {
	if len(laps) == 0 {
		return 0, false
	}
	best := lo.MinBy(laps, func(a, b model.StoredLap) bool {
		return a.LapTime < b.LapTime
	})
	return best.LapTime, true
}

// AverageLap returns the mean lap time of laps, rounded to 10ms.
func AverageLap(laps []model.StoredLap) (time.Duration, bool) {
	if len(laps) == 0 {
		return 0, false
	}
	mean := lo.SumBy(laps, func(l model.StoredLap) time.Duration {
		return l.LapTime
	}) / time.Duration(len(laps))
	return mean.Round(10 * time.Millisecond), true
}

func formatOptional(d time.Duration, ok bool) string {
	if !ok {
		return noTime
	}
	return console.FormatDuration(d)
}

func writeLines(w io.Writer, title string, lines []string) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSummary prints per-course totals of the report.
func RenderSummary(w io.Writer, report Report) error {
	if len(report.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}

	byCourse := lo.GroupBy(report.Sessions, func(s model.SessionAggregate) course.Variant {
		return s.Variant
	})
	headers := []string{"Course", "Sessions", "Laps", "Best Lap", "Avg Lap", "Best Race", "Finished", "Failures"}
	var rows [][]string
	for _, v := range course.Variants {
		sessions, ok := byCourse[v]
		if !ok {
			continue
		}
		laps := lo.FlatMap(sessions, func(s model.SessionAggregate, _ int) []model.StoredLap {
			return report.Laps[s.SessionID]
		})
		finished := lo.Filter(sessions, func(s model.SessionAggregate, _ int) bool {
			return s.Finished
		})
		failures := lo.CountBy(sessions, func(s model.SessionAggregate) bool {
			return s.EngineFailed
		})

		bestLap, hasLap := BestLap(laps)
		avgLap, hasAvg := AverageLap(laps)
		var bestRace time.Duration
		if len(finished) > 0 {
			bestRace = lo.MinBy(finished, func(a, b model.SessionAggregate) bool {
				return a.RaceTime < b.RaceTime
			}).RaceTime
		}

		rows = append(rows, []string{
			v.String(),
			strconv.Itoa(len(sessions)),
			strconv.Itoa(len(laps)),
			formatOptional(bestLap, hasLap),
			formatOptional(avgLap, hasAvg),
			formatOptional(bestRace, len(finished) > 0),
			strconv.Itoa(len(finished)),
			strconv.Itoa(failures),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	return writeLines(w, "Summary", formatTable(headers, rows, rightAlign))
}

// RenderLapTable prints one row per session in the report window with its
// lap times as a sparkline.
func RenderLapTable(w io.Writer, report Report) error {
	if len(report.WindowSessionIDs) == 0 {
		return nil
	}
	byID := lo.KeyBy(report.Sessions, func(s model.SessionAggregate) int64 {
		return s.SessionID
	})

	headers := []string{"Ended", "Course", "Mode", "Laps", "Best Lap", "Race Time", "Status", "Trend"}
	rows := make([][]string, 0, len(report.WindowSessionIDs))
	for _, id := range report.WindowSessionIDs {
		s := byID[id]
		laps := report.Laps[id]
		bestLap, hasLap := BestLap(laps)
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			s.Variant.String(),
			mode(s),
			strconv.Itoa(s.Laps),
			formatOptional(bestLap, hasLap),
			formatOptional(s.RaceTime, s.Finished),
			status(s),
			Sparkline(lapSeconds(laps)),
		})
	}
	return writeLines(w, "Sessions", formatTable(headers, rows, map[int]bool{3: true, 4: true, 5: true}))
}

// RenderTrend prints the moving average of each session's best lap, per
// course, oldest first.
func RenderTrend(w io.Writer, report Report) error {
	var lines []string
	for _, v := range course.Variants {
		var best []float64
		for _, s := range report.Sessions {
			if s.Variant != v {
				continue
			}
			if d, ok := BestLap(report.Laps[s.SessionID]); ok {
				best = append(best, d.Seconds())
			}
		}
		if len(best) == 0 {
			continue
		}
		avg := MovingAverage(best, report.Window)
		lines = append(lines, fmt.Sprintf("%-6s %s  last %s", v, Sparkline(avg),
			console.FormatDuration(time.Duration(avg[len(avg)-1]*float64(time.Second)))))
	}
	if len(lines) == 0 {
		return nil
	}
	return writeLines(w, "Best Lap Trend", lines)
}

// RenderRecords prints the best times of every course.
func RenderRecords(w io.Writer, times records.BestTimes) error {
	headers := []string{"Course", "Fastest Lap", "Fastest Race"}
	rows := lo.Map(course.Variants, func(v course.Variant, _ int) []string {
		lap, hasLap := times.Get(v, records.Lap)
		race, hasRace := times.Get(v, records.Race)
		return []string{v.String(), formatOptional(lap, hasLap), formatOptional(race, hasRace)}
	})
	return writeLines(w, "", formatTable(headers, rows, map[int]bool{1: true, 2: true}))
}

func lapSeconds(laps []model.StoredLap) []float64 {
	return lo.Map(laps, func(l model.StoredLap, _ int) float64 {
		return l.LapTime.Seconds()
	})
}

func mode(s model.SessionAggregate) string {
	if s.Practice {
		return "practice"
	}
	return "race"
}

func status(s model.SessionAggregate) string {
	switch {
	case s.EngineFailed:
		return "engine failure"
	case s.Finished:
		return "finished"
	default:
		return ""
	}
}

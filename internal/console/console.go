// Package console prints session events for the pilot.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	lapStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E")).Bold(true)
	recordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
)

// Printer writes human readable session output.
type Printer struct {
	w     io.Writer
	color bool
	sound bool
}

// NewPrinter returns a Printer for w. Colors are used when w is a terminal
// and NO_COLOR is unset, or when force is true.
func NewPrinter(w io.Writer, force bool) *Printer {
	return &Printer{w: w, color: useColor(w, force)}
}

// WithSound makes the printer ring the terminal bell on checkpoints and at
// the end of a race.
func (p *Printer) WithSound(on bool) *Printer {
	p.sound = on
	return p
}

func (p *Printer) bell(n int) {
	if p.sound {
		_, _ = io.WriteString(p.w, strings.Repeat("\a", n))
	}
}

func useColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *Printer) println(style lipgloss.Style, format string, args ...any) {
	_, _ = fmt.Fprintln(p.w, p.render(style, fmt.Sprintf(format, args...)))
}

// Banner announces a new session with its course and lap target.
func (p *Printer) Banner(cfg model.SessionConfig, layout course.Layout) {
	if cfg.Practice {
		p.println(titleStyle, "Practice started! Press Ctrl+C to exit..")
	} else {
		p.println(titleStyle, "Race started! Press Ctrl+C to exit..")
	}
	_, _ = fmt.Fprintln(p.w)
	p.println(passStyle, "Course Layout [%s]: %s", layout.Variant, strings.Join(layout.Names(), " | "))
	if !cfg.Practice {
		p.println(passStyle, "Race laps: %d", cfg.RaceLaps)
	}
	_, _ = fmt.Fprintln(p.w)
}

// Event prints one session event.
func (p *Printer) Event(e model.Event) {
	switch e.Kind {
	case model.EventCheckpointPassed:
		p.bell(checkpointBells(e))
		p.println(passStyle, "Passed: %s", e.Checkpoint.Name)
	case model.EventLapCompleted:
		p.println(lapStyle, "Lap: %d %s", e.Lap, FormatDuration(e.Duration))
		if e.Record {
			p.println(recordStyle, "New Lap Record!")
		}
	case model.EventRaceFinished:
		p.println(lapStyle, "Race finished! %s", FormatDuration(e.Duration))
		if e.Record {
			p.println(recordStyle, "New Race Record!")
		}
		p.bell(1)
	case model.EventEngineFailure:
		p.EngineFailure()
	}
}

// checkpointBells returns how often the bell rings for a passage. Later
// start passages of a race stay silent.
func checkpointBells(e model.Event) int {
	switch {
	case e.Checkpoint.Kind != course.Start:
		return 1
	case e.FirstStart:
		return 2
	case e.Practice:
		return 1
	default:
		return 0
	}
}

// EngineFailure announces a failed engine.
func (p *Printer) EngineFailure() {
	p.println(failureStyle, "Engine Failure!")
}

// Records prints the best times of every course. Missing records show as
// zero.
func (p *Printer) Records(times records.BestTimes) {
	for i, v := range course.Variants {
		if i > 0 {
			_, _ = fmt.Fprintln(p.w)
		}
		p.println(titleStyle, "%s Course Records", titleCase(v.String()))
		lap, _ := times.Get(v, records.Lap)
		race, _ := times.Get(v, records.Race)
		p.println(passStyle, "Fastest Lap Time: %s", FormatDuration(lap))
		p.println(passStyle, "Fastest Race Time: %s", FormatDuration(race))
	}
}

// Notice prints a muted informational line.
func (p *Printer) Notice(format string, args ...any) {
	p.println(mutedStyle, format, args...)
}

// FormatDuration renders d as hh:mm:ss.ff, truncating to hundredths.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hundredths := int64(d / (10 * time.Millisecond))
	h := hundredths / 360000
	m := hundredths / 6000 % 60
	s := hundredths / 100 % 60
	f := hundredths % 100
	return fmt.Sprintf("%02d:%02d:%02d.%02d", h, m, s, f)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

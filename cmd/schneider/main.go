// Package main provides the CLI entrypoint for schneider.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/schneider/internal/actuator"
	"github.com/verte-zerg/schneider/internal/config"
	"github.com/verte-zerg/schneider/internal/console"
	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/engine"
	"github.com/verte-zerg/schneider/internal/log"
	"github.com/verte-zerg/schneider/internal/metrics"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"
	"github.com/verte-zerg/schneider/internal/session"
	"github.com/verte-zerg/schneider/internal/stats"
	"github.com/verte-zerg/schneider/internal/store"
	"github.com/verte-zerg/schneider/internal/telemetry"
)

const (
	defaultCourse        = "full"
	defaultLogLevel      = "warn"
	defaultLogFormat     = log.FormatConsole
	defaultHistoryWindow = 20
)

var (
	configPath string
	logLevel   string
	logFormat  string

	runCourse         string
	runRace           bool
	runLaps           int
	runSeed           int64
	runFollow         bool
	runSound          bool
	runMetricsFile    string
	runBackend        string
	runStorePath      string
	runFailureCommand string

	recordsFormat string

	historyCourse string
	historySince  string
	historyLast   int
	historyWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "schneider",
		Short:         "Schneider Trophy race timing for seaplane telemetry",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", defaultLogFormat, "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&runBackend, "store", config.BackendSQLite, "record store backend (sqlite, toml)")
	rootCmd.PersistentFlags().StringVar(&runStorePath, "db", "", "record store path (default under XDG data home)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRecordsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCoursesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [telemetry.csv]",
		Short: "Run a practice or race session over telemetry",
		Long: "Run a session over a telemetry CSV. Without a file, samples are read from stdin.\n" +
			"With --follow the file is tailed as the simulator bridge appends to it.",
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}
	cmd.Flags().StringVar(&runCourse, "course", defaultCourse, "course layout (short, medium, full)")
	cmd.Flags().BoolVar(&runRace, "race", false, "race instead of practice")
	cmd.Flags().IntVar(&runLaps, "laps", session.DefaultRaceLaps, "race lap target")
	cmd.Flags().Int64Var(&runSeed, "seed", 0, "seed for the engine failure threshold (0: random)")
	cmd.Flags().BoolVar(&runFollow, "follow", false, "keep reading as the telemetry file grows")
	cmd.Flags().BoolVar(&runSound, "sound", false, "ring the terminal bell on checkpoints and engine failure")
	cmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	cmd.Flags().StringVar(&runFailureCommand, "failure-command", "", "shell command run when the engine fails")
	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "course", &runCourse, fileCfg.Session.Course)
	applyIntConfig(cmd, "laps", &runLaps, fileCfg.Session.Laps)
	applyInt64Config(cmd, "seed", &runSeed, fileCfg.Session.Seed)
	applyStringConfig(cmd, "failure-command", &runFailureCommand, fileCfg.Engine.FailureCommand)
	if fileCfg.Session.Practice != nil && !cmd.Flags().Changed("race") {
		runRace = !*fileCfg.Session.Practice
	}

	variant, err := course.ParseVariant(runCourse)
	if err != nil {
		return fmt.Errorf("invalid --course: %w", err)
	}
	if runFollow && len(args) == 0 {
		return fmt.Errorf("--follow needs a telemetry file")
	}

	logger, err := log.New(logLevel, logFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	recStore, history, closeStore, err := openRecordStore()
	if err != nil {
		return err
	}
	defer closeStore()

	tracker := records.NewTracker(ctx, recStore,
		records.WithLogger(logger.Named("records")),
		records.WithMetrics(m),
	)

	out := cmd.OutOrStdout()
	printer := console.NewPrinter(out, false).WithSound(runSound)
	acts, err := buildActuator(out, logger)
	if err != nil {
		return err
	}

	sess := session.New(tracker,
		session.WithLogger(logger.Named("session")),
		session.WithActuator(acts),
		session.WithMetrics(m),
	)
	cfg := model.SessionConfig{
		Variant:  variant,
		Practice: !runRace,
		RaceLaps: runLaps,
		Seed:     runSeed,
	}
	if err := sess.Reset(cfg); err != nil {
		return err
	}
	printer.Banner(cfg, sess.Layout())

	handle := func(s model.TelemetrySample) error {
		for _, e := range sess.Process(ctx, s) {
			printer.Event(e)
		}
		return nil
	}
	runErr := feedTelemetry(ctx, args, handle)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	summary := sess.Summary()
	printer.Notice("Session ended: %d laps flown", len(summary.Laps))
	if history != nil {
		if _, err := history.InsertSession(context.WithoutCancel(ctx), summary); err != nil {
			logErrf("failed to save session history: %v\n", err)
		}
	}
	if runMetricsFile != "" {
		if err := m.WriteTextfile(runMetricsFile); err != nil {
			logErrf("failed to write metrics: %v\n", err)
		}
	}
	return runErr
}

func feedTelemetry(ctx context.Context, args []string, fn func(model.TelemetrySample) error) error {
	if runFollow {
		return telemetry.Follow(ctx, args[0], fn)
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open telemetry: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logErrf("failed to close telemetry: %v\n", cerr)
			}
		}()
		in = f
	}

	r, err := telemetry.NewReader(in)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(sample); err != nil {
			return err
		}
	}
}

func buildActuator(out io.Writer, logger *zap.Logger) (engine.Actuator, error) {
	var acts actuator.Multi
	if runSound {
		acts = append(acts, actuator.NewBell(out))
	}
	if strings.TrimSpace(runFailureCommand) != "" {
		c, err := actuator.NewCommand(runFailureCommand, logger.Named("actuator"))
		if err != nil {
			return nil, err
		}
		acts = append(acts, c)
	}
	return acts, nil
}

// openRecordStore opens the configured backend. History is only kept by
// the sqlite backend and is nil otherwise.
func openRecordStore() (records.Store, *store.Store, func(), error) {
	switch runBackend {
	case config.BackendTOML:
		path := runStorePath
		if path == "" {
			path = config.DefaultRecordsPath()
		}
		return store.NewFileStore(path), nil, func() {}, nil
	case config.BackendSQLite:
		path := runStorePath
		if path == "" {
			path = config.DefaultDBPath()
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open db: %w", err)
		}
		closeFn := func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}
		return st, st, closeFn, nil
	default:
		return nil, nil, nil, fmt.Errorf("--store must be %s or %s", config.BackendSQLite, config.BackendTOML)
	}
}

func loadConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	applyStringConfig(cmd, "store", &runBackend, fileCfg.Store.Backend)
	applyStringConfig(cmd, "db", &runStorePath, fileCfg.Store.Path)
	return fileCfg, nil
}

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show best lap and race times per course",
		Args:  cobra.NoArgs,
		RunE:  runRecordsCmd,
	}
	cmd.Flags().StringVar(&recordsFormat, "format", "table", "output format (table, plain, yaml)")
	return cmd
}

type recordEntry struct {
	Course string  `yaml:"course"`
	Lap    *string `yaml:"lap"`
	Race   *string `yaml:"race"`
}

func runRecordsCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	logger, err := log.New(logLevel, logFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	recStore, _, closeStore, err := openRecordStore()
	if err != nil {
		return err
	}
	defer closeStore()

	times := records.NewTracker(cmd.Context(), recStore, records.WithLogger(logger.Named("records"))).Snapshot()
	out := cmd.OutOrStdout()
	switch recordsFormat {
	case "table":
		return stats.RenderRecords(out, times)
	case "plain":
		console.NewPrinter(out, false).Records(times)
		return nil
	case "yaml":
		entries := make([]recordEntry, 0, len(course.Variants))
		for _, v := range course.Variants {
			entry := recordEntry{Course: strings.ToLower(v.String())}
			if d, ok := times.Get(v, records.Lap); ok {
				s := console.FormatDuration(d)
				entry.Lap = &s
			}
			if d, ok := times.Get(v, records.Race); ok {
				s := console.FormatDuration(d)
				entry.Race = &s
			}
			entries = append(entries, entry)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode records: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("--format must be table, plain or yaml")
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show session history and lap trends",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyCourse, "course", "", "course filter (short, medium, full)")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultHistoryWindow, "sessions listed and moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	if runBackend != config.BackendSQLite {
		return fmt.Errorf("history needs the %s store", config.BackendSQLite)
	}

	filter := model.HistoryFilter{Last: historyLast, Window: historyWindow}
	if historyCourse != "" {
		v, err := course.ParseVariant(historyCourse)
		if err != nil {
			return fmt.Errorf("invalid --course: %w", err)
		}
		filter.Variant = v
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}

	_, st, closeStore, err := openRecordStore()
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := stats.BuildReport(cmd.Context(), st, filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report); err != nil {
		return err
	}
	if err := stats.RenderLapTable(out, report); err != nil {
		return err
	}
	return stats.RenderTrend(out, report)
}

func newCoursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List course layouts and their checkpoints",
		Args:  cobra.NoArgs,
		RunE:  runCoursesCmd,
	}
}

func runCoursesCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	for i, v := range course.Variants {
		layout, err := course.BuildLayout(v)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if _, err := fmt.Fprintf(out, "%s (%d checkpoints)\n", v, layout.Len()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		for n, cp := range layout.Checkpoints {
			if _, err := fmt.Fprintf(out, "  %d. %-34s %-6s %.6f,%.6f r=%.6f bearing %g..%g\n",
				n+1, cp.Name, cp.Kind, cp.X, cp.Y, cp.Radius, cp.AngleMin, cp.AngleMax); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# schneider configuration
# Uncomment a value to enable it. CLI flags override config values,
# SCHNEIDER_<SECTION>_<KEY> environment variables override this file.

[session]
# course = %q            # short, medium or full
# laps = %d                 # Race lap target
# practice = true          # Practice instead of race by default
# seed = 0                 # Engine failure threshold seed (0: random)

[store]
# backend = %q         # sqlite (records and history) or toml (records only)
# path = ""                # Defaults under $XDG_DATA_HOME/schneider

[engine]
# failure-command = ""     # Shell command run when the engine fails

[log]
# level = %q             # debug, info, warn, error
# format = %q        # console or json
`,
		defaultCourse,
		session.DefaultRaceLaps,
		config.BackendSQLite,
		defaultLogLevel,
		defaultLogFormat,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

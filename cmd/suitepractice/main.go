// Package main provides the CLI entrypoint for suitepractice.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/suitepractice/internal/config"
	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/notify"
	"github.com/verte-zerg/suitepractice/internal/report"
	"github.com/verte-zerg/suitepractice/internal/store"
	"github.com/verte-zerg/suitepractice/internal/suite"
	"github.com/verte-zerg/suitepractice/internal/surface"
)

const (
	defaultType        = suite.DefaultRecordType
	defaultMaxRecords  = store.DefaultMaxRecords
	defaultLogLevel    = "info"
	defaultPartTimeout = "0"
	metadataSource     = "cli"
)

var (
	runCategories  []string
	runType        string
	runPartTimeout string
	runSurfaceCmd  string
	runDBPath      string
	runMaxRecords  int
	runLogLevel    string
	runBaseExamID  string

	recordsLast   int
	recordsSuites bool
	recordsDetail string
	recordsTrend  int
	recordsDBPath string

	indexDBPath string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "suitepractice",
		Short:         "Multi-part exam suite orchestrator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRecordsCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a suite practice session",
		Long: `Run a suite practice session.

Each part is loaded into the configured surface command. While the suite
runs, type "retry" to reopen a part that failed to load or to retry a failed
save, "status" to show progress, or "abandon" to stop early.`,
		Args: cobra.NoArgs,
		RunE: runSuiteCmd,
	}
	cmd.Flags().StringSliceVar(&runCategories, "categories", suite.DefaultCategories, "part categories in order")
	cmd.Flags().StringVar(&runType, "type", defaultType, "exam type to draw parts from")
	cmd.Flags().StringVar(&runPartTimeout, "part-timeout", defaultPartTimeout, "abandon when a part takes longer (0 disables)")
	cmd.Flags().StringVar(&runSurfaceCmd, "surface-cmd", "", "command that hosts a part")
	cmd.Flags().StringVar(&runDBPath, "db", "", "database path")
	cmd.Flags().IntVar(&runMaxRecords, "max-records", defaultMaxRecords, "maximum stored practice records")
	cmd.Flags().StringVar(&runLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&runBaseExamID, "base-exam-id", "", "exam id of the aggregated record")
	return cmd
}

func runSuiteCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringSliceConfig(cmd, "categories", &runCategories, fileCfg.Suite.Categories)
	applyStringConfig(cmd, "type", &runType, fileCfg.Suite.Type)
	applyStringConfig(cmd, "part-timeout", &runPartTimeout, fileCfg.Suite.PartTimeout)
	applyStringConfig(cmd, "base-exam-id", &runBaseExamID, fileCfg.Suite.BaseExamID)
	applyStringConfig(cmd, "db", &runDBPath, fileCfg.Store.Path)
	applyIntConfig(cmd, "max-records", &runMaxRecords, fileCfg.Store.MaxRecords)
	applyStringConfig(cmd, "log-level", &runLogLevel, fileCfg.Log.Level)

	timeout, err := config.ParsePartTimeout(runPartTimeout)
	if err != nil {
		return err
	}
	cfg := model.Config{
		Categories:     runCategories,
		Type:           runType,
		PartTimeout:    timeout,
		SurfaceCmd:     surfaceCommand(fileCfg.Surface.Command, runSurfaceCmd, cmd.Flags().Changed("surface-cmd")),
		StorePath:      resolveDBPath(runDBPath),
		MaxRecords:     runMaxRecords,
		LogLevel:       runLogLevel,
		BaseExamID:     runBaseExamID,
		MetadataSource: metadataSource,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, err := store.LoadExamIndex(ctx, st)
	if err != nil {
		return err
	}
	if len(index) == 0 {
		return fmt.Errorf("exam index is empty; import one with: suitepractice index import <file.json>")
	}
	sequence, err := suite.BuildSequence(index, cfg.Categories, cfg.Type, nil)
	if err != nil {
		return fmt.Errorf("failed to build suite: %w", err)
	}

	inbox := make(chan surface.Envelope, 16)
	opener, err := surface.NewProcessOpener(cfg.SurfaceCmd, inbox, logger)
	if err != nil {
		return err
	}
	coord := suite.New(opener, store.NewRecords(st, cfg.MaxRecords), notify.NewTerminal(os.Stderr),
		suite.WithLogger(logger),
		suite.WithPartTimeout(cfg.PartTimeout),
		suite.WithRecordType(cfg.Type),
	)

	if _, err := coord.Start(ctx, sequence, suite.Metadata{
		Source:     cfg.MetadataSource,
		Type:       cfg.Type,
		BaseExamID: cfg.BaseExamID,
	}); err != nil {
		return err
	}
	for i, part := range sequence {
		logErrf("  %d. %s %s\n", i+1, part.Label, part.Title)
	}

	go readControl(ctx, os.Stdin, coord, logger)

	err = coord.Serve(ctx, inbox)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		// Serve's ctx is done; the teardown needs a live one.
		if aerr := coord.Abandon(context.Background(), "interrupted"); aerr != nil && !errors.Is(aerr, suite.ErrNoSession) {
			return fmt.Errorf("failed to save interrupted suite: %w", aerr)
		}
		return nil
	default:
		return err
	}
}

// readControl handles commands typed while a suite runs.
func readControl(ctx context.Context, r io.Reader, coord *suite.Coordinator, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := handleControl(ctx, strings.TrimSpace(scanner.Text()), coord); err != nil {
			logger.Warn("control command failed", "err", err)
		}
	}
}

func handleControl(ctx context.Context, line string, coord *suite.Coordinator) error {
	switch strings.ToLower(line) {
	case "":
		return nil
	case "retry":
		s, ok := coord.Current()
		if !ok {
			return suite.ErrNoSession
		}
		if s.Status == suite.StatusCompleting {
			return coord.Finalize(ctx)
		}
		_, err := coord.RetryLaunch(ctx)
		return err
	case "status":
		s, ok := coord.Current()
		if !ok {
			logErrln("no suite running")
			return nil
		}
		part := s.ActivePart()
		logErrf("part %d/%d: %s %s (%s, %d accepted)\n",
			s.ActiveIndex+1, len(s.Sequence), part.Label, part.Title, s.Status, len(s.Entries))
		return nil
	case "abandon", "quit", "q":
		return coord.Abandon(ctx, "stopped by user")
	default:
		return fmt.Errorf("unknown command %q (retry, status, abandon)", line)
	}
}

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List practice records",
		Args:  cobra.NoArgs,
		RunE:  runRecordsCmd,
	}
	cmd.Flags().IntVar(&recordsLast, "last", 0, "limit to last N records")
	cmd.Flags().BoolVar(&recordsSuites, "suites", false, "only show suite records")
	cmd.Flags().StringVar(&recordsDetail, "detail", "", "show the part breakdown of a suite record id ('latest' for the newest)")
	cmd.Flags().IntVar(&recordsTrend, "trend", 0, "plot suite accuracy with a moving average over N suites")
	cmd.Flags().StringVar(&recordsDBPath, "db", "", "database path")
	return cmd
}

func runRecordsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &recordsDBPath, fileCfg.Store.Path)

	st, err := store.Open(resolveDBPath(recordsDBPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	all, err := store.NewRecords(st, 0).List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if recordsDetail != "" {
		rec, ok := findSuiteRecord(all, recordsDetail)
		if !ok {
			return fmt.Errorf("suite record %q not found", recordsDetail)
		}
		return report.RenderSuite(cmd.OutOrStdout(), rec)
	}
	filtered := report.Filter(all, report.Options{Last: recordsLast, SuitesOnly: recordsSuites})
	if err := report.RenderRecords(cmd.OutOrStdout(), filtered); err != nil {
		return err
	}
	if recordsTrend <= 0 {
		return nil
	}
	values := report.MovingAverage(report.SuitePercentages(filtered), recordsTrend)
	if len(values) == 0 {
		logErrln("no suite records to plot")
		return nil
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	title := fmt.Sprintf("Suite accuracy (moving average of %d)", recordsTrend)
	return report.PlotTrend(cmd.OutOrStdout(), title, values, 0, 0)
}

func findSuiteRecord(records []model.PracticeRecord, id string) (model.PracticeRecord, bool) {
	for _, rec := range records {
		if !rec.MultiSuite {
			continue
		}
		if id == "latest" || rec.ID == id {
			return rec, true
		}
	}
	return model.PracticeRecord{}, false
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the exam index",
	}
	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace the exam index with a JSON array of exams",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexImportCmd,
	}
	importCmd.Flags().StringVar(&indexDBPath, "db", "", "database path")
	cmd.AddCommand(importCmd)
	return cmd
}

func runIndexImportCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &indexDBPath, fileCfg.Store.Path)

	entries, err := readExamIndex(args[0])
	if err != nil {
		return err
	}

	st, err := store.Open(resolveDBPath(indexDBPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if err := store.SaveExamIndex(cmd.Context(), st, entries); err != nil {
		return fmt.Errorf("failed to save exam index: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %d exams\n", len(entries)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func readExamIndex(path string) ([]model.ExamIndexEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exam index: %w", err)
	}
	var entries []model.ExamIndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode exam index: %w", err)
	}
	valid := entries[:0]
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			continue
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("exam index %s has no exams", path)
	}
	return valid, nil
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
	path := config.DefaultConfigPath()
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
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if len(value) == 0 {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

// surfaceCommand prefers the config's argument list unless the flag was set.
func surfaceCommand(fromFile []string, flag string, flagChanged bool) []string {
	if len(fromFile) > 0 && !flagChanged {
		return append([]string(nil), fromFile...)
	}
	return strings.Fields(flag)
}

func resolveDBPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return config.DefaultDBPath()
	}
	return path
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# suitepractice configuration
# Uncomment a value to enable it. CLI flags override config values.

[suite]
# categories = ["P1", "P2", "P3"]  # Part categories in order
# type = %q                  # Exam type to draw parts from
# part-timeout = %q                # Abandon when a part takes longer, e.g. "45m" (0 disables)
# base-exam-id = ""                 # Exam id of the aggregated record

[surface]
# command = ["exam-runner", "--stdio"]  # Command that hosts a part

[store]
# path = ""            # Database path (default %s)
# max-records = %d   # Maximum stored practice records

[log]
# level = %q  # debug, info, warn, error
`,
		defaultType,
		defaultPartTimeout,
		config.DefaultDBPath(),
		defaultMaxRecords,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("--categories must not be empty")
	}
	for _, cat := range cfg.Categories {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("--categories must not contain empty values")
		}
	}
	if strings.TrimSpace(cfg.Type) == "" {
		return fmt.Errorf("--type must not be empty")
	}
	if len(cfg.SurfaceCmd) == 0 {
		return fmt.Errorf("surface command is not configured; set [surface] command or --surface-cmd")
	}
	if cfg.MaxRecords <= 0 {
		return fmt.Errorf("--max-records must be > 0")
	}
	if cfg.PartTimeout < 0 {
		return fmt.Errorf("--part-timeout must be >= 0")
	}
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

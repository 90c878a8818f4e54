// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shieldeye/shieldeye-go/internal/alert"
	"github.com/shieldeye/shieldeye-go/internal/config"
	"github.com/shieldeye/shieldeye-go/internal/ingest"
	"github.com/shieldeye/shieldeye-go/internal/keymgr"
	"github.com/shieldeye/shieldeye-go/internal/logging"
	"github.com/shieldeye/shieldeye-go/internal/repo"
	"github.com/shieldeye/shieldeye-go/internal/scheduler"
	"github.com/shieldeye/shieldeye-go/internal/store"
	"github.com/shieldeye/shieldeye-go/internal/task"
	"github.com/shieldeye/shieldeye-go/internal/update"
	"github.com/shieldeye/shieldeye-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ShieldEye - log analyzer\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [args]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Commands:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ingest <file>          Import a JSON event-log file and derive alerts\n")
		_, _ = fmt.Fprintf(os.Stderr, "  logs                   List stored event logs\n")
		_, _ = fmt.Fprintf(os.Stderr, "  summary                Show level counts, date range, and alert totals\n")
		_, _ = fmt.Fprintf(os.Stderr, "  alerts                 List alerts\n")
		_, _ = fmt.Fprintf(os.Stderr, "  alerts read <id|all>   Mark one or all alerts as read\n")
		_, _ = fmt.Fprintf(os.Stderr, "  alerts delete <id|all> Delete one or all alerts\n")
		_, _ = fmt.Fprintf(os.Stderr, "  prefs                  Show the alert preference policy\n")
		_, _ = fmt.Fprintf(os.Stderr, "  prefs set [levels...]  Save the policy, e.g. prefs set warn critical\n")
		_, _ = fmt.Fprintf(os.Stderr, "  check-update           Check the release manifest for a newer version\n")
		_, _ = fmt.Fprintf(os.Stderr, "  download-update        Download and verify the latest release\n")
		_, _ = fmt.Fprintf(os.Stderr, "  watch                  Run in the background with a daily update check\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHIELDEYE_DATA_DIR      Database directory (default: user config dir)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHIELDEYE_MANIFEST_URL  Update manifest URL\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHIELDEYE_LOG_LEVEL     Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SHIELDEYE_WORKERS       Background worker count (default: 3)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		info := version.Info{
			Version:   version.App(),
			GitCommit: appGitCommit,
			BuildTime: appBuildTime,
		}
		_, _ = fmt.Printf("shieldeye %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildTime)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Args()); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired application components shared by all commands.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	repo   *repo.Repository
	logger *slog.Logger
}

func run(args []string) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// The database passphrase lives in the operating-system credential
	// store, generated on first run. Without it the encrypted database is
	// unreadable, so failure here is fatal.
	keys := keymgr.New(cfg.KeyringService, cfg.KeyringAccount)
	passphrase, err := keys.Obtain()
	if err != nil {
		return fmt.Errorf("obtaining database key: %w", err)
	}

	if warning := store.CheckEngineVersion(); warning != "" {
		slog.Warn(warning)
	}

	slog.Info("initializing database", "path", cfg.DBPath())
	db, err := store.Open(cfg.DBPath(), passphrase)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the audit trail.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewActivityHandler(textHandler, db))
	slog.SetDefault(logger)

	a := &app{
		cfg:    cfg,
		db:     db,
		repo:   repo.New(db, logger),
		logger: logger,
	}

	ctx := context.Background()
	switch args[0] {
	case "ingest":
		if len(args) < 2 {
			return errors.New("usage: ingest <file>")
		}
		return a.ingest(ctx, args[1])
	case "logs":
		return a.listLogs(ctx)
	case "summary":
		return a.summary(ctx)
	case "alerts":
		return a.alerts(ctx, args[1:])
	case "prefs":
		return a.prefs(ctx, args[1:])
	case "check-update":
		return a.checkUpdate(ctx)
	case "download-update":
		return a.downloadUpdate(ctx)
	case "watch":
		return a.watch(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// ingest imports a JSON event-log file on the worker pool, appends the
// entries, and derives alerts from the active preference policy.
func (a *app) ingest(ctx context.Context, path string) error {
	pool := task.NewPool(a.logger, task.Config{Workers: a.cfg.Workers})
	pool.Start(ctx)
	defer pool.Stop()

	out, ok := pool.Submit(func(ctx context.Context) (any, error) {
		records, err := ingest.ParseFile(path)
		if err != nil {
			return nil, err
		}
		logs, err := ingest.ToEventLogs(records)
		if err != nil {
			return nil, err
		}
		if err := a.repo.AppendLogs(ctx, logs); err != nil {
			return nil, err
		}

		policy, ok, err := a.repo.Preferences(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			// No policy saved yet: logs are stored, no alerts derived.
			return len(logs), nil
		}
		drafts, err := alert.Scan(records, policy)
		if err != nil {
			return nil, err
		}
		if len(drafts) > 0 {
			if err := a.repo.CreateAlerts(ctx, drafts); err != nil {
				return nil, err
			}
		}
		fmt.Printf("Derived %d alert(s)\n", len(drafts))
		return len(logs), nil
	})
	if !ok {
		return errors.New("worker pool rejected ingest task")
	}

	res := <-out
	if res.Err != nil {
		return fmt.Errorf("ingesting %s: %w", path, res.Err)
	}
	fmt.Printf("Imported %d event log(s) from %s\n", res.Value, path)
	return nil
}

func (a *app) listLogs(ctx context.Context) error {
	logs, err := a.repo.Logs(ctx)
	if err != nil {
		return fmt.Errorf("listing logs: %w", err)
	}
	for _, l := range logs {
		fmt.Printf("%s  %-8s  %-12s  %s  %s\n", l.Timestamp, l.Level, l.Category, l.ID, l.Message)
	}
	fmt.Printf("%d event log(s)\n", len(logs))
	return nil
}

func (a *app) summary(ctx context.Context) error {
	first, last, err := a.repo.DateRange(ctx)
	if err != nil {
		return fmt.Errorf("reading date range: %w", err)
	}
	levels, err := a.repo.LevelCounts(ctx)
	if err != nil {
		return fmt.Errorf("counting levels: %w", err)
	}
	categories, err := a.repo.CategoryCount(ctx)
	if err != nil {
		return fmt.Errorf("counting categories: %w", err)
	}
	alertCounts, err := a.repo.AlertCounts(ctx)
	if err != nil {
		return fmt.Errorf("counting alerts: %w", err)
	}

	if first == "" {
		fmt.Println("No event logs stored.")
	} else {
		fmt.Printf("Logs from %s to %s\n", first, last)
	}
	fmt.Printf("Total: %d  info: %d  warning: %d  error: %d  critical: %d\n",
		levels.Total(), levels.Info, levels.Warn, levels.Error, levels.Critical)
	fmt.Printf("Categories: %d\n", categories)
	fmt.Printf("Alerts: %d (%d unread)\n", alertCounts.Read+alertCounts.Unread, alertCounts.Unread)
	return nil
}

func (a *app) alerts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		alerts, err := a.repo.Alerts(ctx)
		if err != nil {
			return fmt.Errorf("listing alerts: %w", err)
		}
		for _, al := range alerts {
			fmt.Printf("%s  %-8s  %-6s  %s  %s\n", al.Timestamp, al.Level, al.Status, al.ID, al.Message)
		}
		fmt.Printf("%d alert(s)\n", len(alerts))
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: alerts %s <id|all>", args[0])
	}
	switch args[0] {
	case "read":
		if args[1] == "all" {
			return a.repo.MarkAllAlertsRead(ctx)
		}
		return a.repo.MarkAlertRead(ctx, args[1])
	case "delete":
		if args[1] == "all" {
			return a.repo.DeleteAllAlerts(ctx)
		}
		return a.repo.DeleteAlert(ctx, args[1])
	default:
		return fmt.Errorf("unknown alerts action %q", args[0])
	}
}

func (a *app) prefs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		policy, ok, err := a.repo.Preferences(ctx)
		if err != nil {
			return fmt.Errorf("reading preferences: %w", err)
		}
		if !ok {
			fmt.Println("No preference policy saved.")
			return nil
		}
		fmt.Printf("Updated:  %s\n", policy.UpdatedAt)
		fmt.Printf("warning:  %s\n", strconv.FormatBool(policy.Warn != ""))
		fmt.Printf("error:    %s\n", strconv.FormatBool(policy.Error != ""))
		fmt.Printf("critical: %s\n", strconv.FormatBool(policy.Critical != ""))
		return nil
	}

	if args[0] != "set" {
		return fmt.Errorf("unknown prefs action %q", args[0])
	}
	var warn, errLevel, critical bool
	for _, level := range args[1:] {
		switch level {
		case "warn", "warning":
			warn = true
		case "error":
			errLevel = true
		case "critical":
			critical = true
		default:
			return fmt.Errorf("unknown alert level %q", level)
		}
	}
	if err := a.repo.SavePreferences(ctx, warn, errLevel, critical); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	fmt.Println("Preference policy saved.")
	return nil
}

func (a *app) checkUpdate(ctx context.Context) error {
	checker := update.NewChecker(a.cfg.ManifestURL, a.repo)
	info, err := checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("checking for update: %w", err)
	}

	current := version.App()
	if !info.IsNewerThan(current) {
		fmt.Printf("You are using the latest version (%s).\n", current)
		return nil
	}
	fmt.Printf("Update available: %s (released %s)\n", info.Version, info.ReleaseDate)
	fmt.Printf("Download: %s\n", info.DownloadURL)
	return nil
}

// downloadUpdate fetches the manifest, downloads the platform artifact on
// the worker pool, and verifies its digest before the install handoff.
// Ctrl-C cancels the download and removes the partial file.
func (a *app) downloadUpdate(ctx context.Context) error {
	checker := update.NewChecker(a.cfg.ManifestURL, a.repo)
	info, err := checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("checking for update: %w", err)
	}

	current := version.App()
	if !info.IsNewerThan(current) {
		fmt.Printf("You are using the latest version (%s).\n", current)
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := task.NewPool(a.logger, task.Config{Workers: a.cfg.Workers})
	pool.Start(ctx)
	defer pool.Stop()

	downloader := update.NewDownloader(a.repo)
	out, ok := pool.Submit(func(ctx context.Context) (any, error) {
		return downloader.Download(ctx, info.DownloadURL, info.Hash, func(percent int) {
			if percent == update.ProgressUnknown {
				fmt.Println("Downloading (size unknown)...")
				return
			}
			fmt.Printf("\rDownloading... %3d%%", percent)
		})
	})
	if !ok {
		return errors.New("worker pool rejected download task")
	}

	res := <-out
	fmt.Println()
	if errors.Is(res.Err, update.ErrCancelled) {
		fmt.Println("Download cancelled.")
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("downloading update: %w", res.Err)
	}

	msg, err := update.Handoff(res.Value.(string))
	if err != nil {
		return fmt.Errorf("preparing install: %w", err)
	}
	fmt.Println(msg)
	return nil
}

// watch keeps the process alive with the daily update check running until
// interrupted.
func (a *app) watch(ctx context.Context) error {
	checker := update.NewChecker(a.cfg.ManifestURL, a.repo)
	sched := scheduler.New(checker, func(info update.Info) {
		fmt.Printf("Update available: %s - %s\n", info.Version, info.DownloadURL)
	}, a.logger)

	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	fmt.Println("Shutting down.")
	return nil
}

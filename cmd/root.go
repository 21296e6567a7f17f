// Package cmd wires the CLI commands to the extraction engine.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/griffgriff5000/Spotlight-on-Outlook/config"
	"github.com/griffgriff5000/Spotlight-on-Outlook/engine"
	"github.com/griffgriff5000/Spotlight-on-Outlook/export"
	"github.com/griffgriff5000/Spotlight-on-Outlook/progress"
	"github.com/griffgriff5000/Spotlight-on-Outlook/runner"
	"github.com/griffgriff5000/Spotlight-on-Outlook/stats"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store/imapstore"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store/mboxstore"
)

var rootCmd = &cobra.Command{
	Use:   "spotlight",
	Short: "Scan a mailbox, filter messages and export the matches as a CSV workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		slog.SetDefault(logger)
		logger.Info("starting scan", "backend", cfg.Backend, "store", cfg.Store, "folder", cfg.Folder, "recurse", cfg.Recurse)

		return runScan(cmd.Context(), cfg, logger)
	},
}

func init() {
	config.RegisterFlags(rootCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runScan(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	opts, err := cfg.FilterOptions()
	if err != nil {
		return err
	}

	backend := buildStore(cfg, logger)
	session, err := backend.Connect(ctx, opts.RequireRunning)
	if err != nil {
		return fmt.Errorf("connect %s store: %w", cfg.Backend, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing session failed", "err", err)
		}
	}()

	r := runner.New(ctx, logger)
	if cfg.LogLevel == "info" {
		progress.NewReporter(r, progress.New(cfg.LogLevel), logger)
	} else {
		stats.NewReporter(r, logger)
	}

	eng := engine.New(opts, session, logger, r.EmitEvent)
	var result *engine.Result
	r.AddStage("scan", func(ctx context.Context) error {
		res, err := eng.Run(ctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	if err := r.Start(); err != nil {
		return err
	}

	if len(result.Rows) == 0 {
		logger.Info("no messages matched the filters")
		return nil
	}

	writer := &export.Writer{Dir: cfg.ResultsDir()}
	files, err := writer.Write(result, opts)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	logger.Info("export complete",
		"emails", len(result.Rows),
		"attachmentRows", len(result.Attachments),
		"foldersScanned", result.FoldersScanned,
		"dir", cfg.ResultsDir(),
		"files", len(files))
	return nil
}

func buildStore(cfg config.Config, logger *slog.Logger) store.Store {
	if cfg.Backend == "imap" {
		return &imapstore.Store{
			Opts: imapstore.Options{
				Host:               cfg.IMAPHost,
				Port:               cfg.IMAPPort,
				Username:           cfg.IMAPUser,
				Password:           cfg.IMAPPass,
				UseTLS:             cfg.UseTLS,
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
			Logger: logger,
		}
	}
	return &mboxstore.Store{Root: cfg.MboxRoot, Logger: logger}
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, cleanup, err
		}
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		logger := slog.New(handler)
		logger.Debug("logging to file", "path", cfg.LogFile, "at", time.Now().Format(time.RFC3339))
		return logger, cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/reports"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	sheetsmem "fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(os.Stdout, "info", log.ComponentWorker).Error("Configuration validation failed",
			log.FieldOperation, log.OpValidate,
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting fintrack-worker", log.FieldBackend, cfg.DataBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	res, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	exporter, err := newExporter(ctx, logger, cfg)
	if err != nil {
		return err
	}

	var source worker.ChangeSource
	if client := cli.NewNotifier(logger, cfg); client != nil {
		defer client.Close()
		source = client
	} else {
		logger.Info("Skipping change consumption - relying on periodic export", "interval", cfg.ExportInterval)
	}

	engine := reports.NewEngine(res.Store, res.Store)
	return worker.NewExportWorker(engine, exporter, cfg.ExportInterval).Run(ctx, source)
}

// newExporter connects to Google Sheets when a spreadsheet is configured
// and otherwise keeps exports in memory.
func newExporter(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.ReportExporter, error) {
	logger = logger.WithComponent(log.ComponentSheets)
	if !cfg.ExportEnabled() {
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exports stay in memory")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		SheetPrefix:        cfg.GoogleSheetPrefix,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

var _ worker.ChangeSource = (*amqp.Client)(nil)

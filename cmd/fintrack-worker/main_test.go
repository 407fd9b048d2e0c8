package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	sheetsmem "fintrack/internal/sheets/memory"
)

func TestNewExporter_FallsBackToMemory(t *testing.T) {
	logger := cli.SetupLogger(&bytes.Buffer{}, "info", log.ComponentWorker)

	exporter, err := newExporter(context.Background(), logger, &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &sheetsmem.Exporter{}, exporter)
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger := cli.SetupLogger(&bytes.Buffer{}, "info", log.ComponentWorker)
	cfg := &config.Config{DataBackend: "memory", SeedDir: t.TempDir(), ExportInterval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, logger, cfg) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

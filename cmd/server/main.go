// Command server runs the portfolio optimization HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gahoccode/frontier/internal/config"
	"github.com/gahoccode/frontier/internal/modules/charts"
	"github.com/gahoccode/frontier/internal/modules/marketdata"
	"github.com/gahoccode/frontier/internal/modules/optimization"
	optimizationhandlers "github.com/gahoccode/frontier/internal/modules/optimization/handlers"
	"github.com/gahoccode/frontier/internal/server"
	"github.com/gahoccode/frontier/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	historyDB, err := marketdata.OpenHistoryDB(cfg.HistoryDBPath(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	quoteClient := marketdata.NewClient(cfg.QuoteAPIURL, log)
	priceService := marketdata.NewService(quoteClient, historyDB, log)

	engine := optimization.NewEngine(optimization.DefaultTolerances(), log)
	chartService := charts.NewService(cfg.ChartWidth, cfg.ChartHeight, log)

	optimizerHandler := optimizationhandlers.NewHandler(priceService, engine, chartService, log)

	srv := server.New(server.Config{
		Log:              log,
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		OptimizerHandler: optimizerHandler,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"signalcore/config"
	"signalcore/internal/analyzer"
	"signalcore/internal/detector"
	"signalcore/internal/facade"
	"signalcore/internal/ingest"
	"signalcore/internal/quotestore"
	"signalcore/internal/schedule"
	"signalcore/internal/validator"
	"signalcore/logger"
	"signalcore/pkg/eastmoney"
	"signalcore/pkg/storage/postgres"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load("")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// postgres
	pg, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
	if err != nil {
		log.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	// market data gateway
	gateway := eastmoney.NewClient(
		cfg.Gateway.REST.BaseURL,
		cfg.Gateway.REST.Timeout,
		cfg.Gateway.REST.RequestsPerSec,
	)

	quotes := quotestore.New()
	if cfg.Gateway.WS.URL != "" {
		startQuoteStream(cfg, gateway, quotes, log)
	}

	det := detector.New(cfg.Scan, gateway, cfg.Gateway.REST.Timeout, log)
	syncer := ingest.NewSyncer(gateway, pg, cfg.Gateway.REST, log)
	an := analyzer.New(cfg.Fundamental, pg, log)
	val := validator.New(cfg.Consistency, quotes, pg, pg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := schedule.New(cfg.Scan, det, syncer, log)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("scheduler start failed", zap.Error(err))
	}

	srv := facade.NewServer(cfg.Facade, det, an, val, pg, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("facade server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("facade shutdown", zap.Error(err))
	}
}

// startQuoteStream subscribes to realtime pushes for the board universe and
// routes ticks into the in-memory quote store.
func startQuoteStream(cfg *config.Config, gateway *eastmoney.Client, quotes *quotestore.Store, log *zap.Logger) {
	listCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.REST.Timeout)
	boards, err := gateway.ListBoards(listCtx)
	cancel()
	if err != nil {
		log.Warn("quote stream disabled, board list unavailable", zap.Error(err))
		return
	}

	symbols := make([]string, 0, len(boards))
	for _, b := range boards {
		symbols = append(symbols, b.Code)
	}

	stream := eastmoney.NewQuoteStream(cfg.Gateway.WS.URL, symbols, log)
	stream.SetTickHandler(quotes.Put)
	if err := stream.Connect(); err != nil {
		log.Warn("quote stream disabled, connect failed", zap.Error(err))
		return
	}
	go stream.Listen()
}

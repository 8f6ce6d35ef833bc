package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/poisonednumber/Scanner-map-sub004/internal/api"
	"github.com/poisonednumber/Scanner-map-sub004/internal/audio"
	"github.com/poisonednumber/Scanner-map-sub004/internal/config"
	"github.com/poisonednumber/Scanner-map-sub004/internal/control"
	"github.com/poisonednumber/Scanner-map-sub004/internal/engine"
	"github.com/poisonednumber/Scanner-map-sub004/internal/mapview"
)

type options struct {
	Port     string `long:"port" description:"control API port (overrides PORT)"`
	Server   string `long:"server" description:"dispatch server base URL (overrides SERVER_URL)"`
	Hours    int    `long:"hours" description:"initial rolling window in hours (overrides WINDOW_HOURS)"`
	NoAudio  bool   `long:"no-audio" description:"disable the audio output device"`
	LogLevel string `long:"log-level" description:"log level (overrides LOG_LEVEL)"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if opts.Server != "" {
		cfg.ServerURL = opts.Server
	}
	if opts.Hours > 0 {
		cfg.WindowHours = opts.Hours
	}
	if opts.NoAudio {
		cfg.AudioEnabled = false
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "livemap").Logger()

	client := api.NewClient(cfg.ServerURL)

	var backend audio.Backend
	if cfg.AudioEnabled {
		backend = audio.NewOtoBackend()
	} else {
		backend = audio.NewMockBackend()
		logger.Info().Msg("audio output disabled")
	}
	orch := audio.NewOrchestrator(backend, client.Audio, logger)
	bcast := audio.NewBroadcast(backend, client.Audio, logger)

	view := mapview.NewHeadlessView(logger)
	eng := engine.New(engine.Options{
		View:         view,
		Audio:        orch,
		Broadcast:    bcast,
		Notifier:     engine.LogNotifier{Log: logger},
		Logger:       logger,
		WindowHours:  cfg.WindowHours,
		OverviewZoom: cfg.OverviewZoom,
		DetailZoom:   cfg.DetailZoom,
		MaxPulsing:   cfg.MaxPulsing,
		FeedMax:      cfg.FeedMax,
		FeedTTL:      cfg.FeedTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	incidents, err := client.Incidents(loadCtx, cfg.WindowHours)
	loadCancel()
	if err != nil {
		// Transient: the push channel and window refreshes fill the gap.
		logger.Warn().Err(err).Msg("initial bulk load failed")
	} else {
		eng.Load(incidents)
		logger.Info().Int("count", len(incidents)).Int("visible", eng.VisibleCount()).Msg("bulk load complete")
	}

	stream := &api.Stream{
		URL:          wsURL(cfg.ServerURL, cfg.WSPath),
		Handler:      eng,
		Log:          logger,
		PingInterval: cfg.PingInterval,
	}
	go stream.Run(ctx)
	go eng.RunPruning(ctx, cfg.PruneInterval)

	router, ctl := control.Router(cfg, eng, client, orch, bcast, logger)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("control API started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("control API error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	ctxShutdown, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(ctxShutdown)
	ctl.CloseHistoryView()
	bcast.Stop()
	orch.Close()
	logger.Info().Msg("stopped")
}

func wsURL(serverURL, wsPath string) string {
	switch {
	case len(serverURL) > 8 && serverURL[:8] == "https://":
		return "wss://" + serverURL[8:] + wsPath
	case len(serverURL) > 7 && serverURL[:7] == "http://":
		return "ws://" + serverURL[7:] + wsPath
	default:
		return serverURL + wsPath
	}
}

// Command logowatchd runs the monitoring daemon without the CLI surface.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"logowatch/internal/config"
	"logowatch/internal/daemon"
	"logowatch/internal/detect"
	"logowatch/internal/logging"
	"logowatch/internal/monitor"
	"logowatch/internal/notifications"
	"logowatch/internal/report"
	"logowatch/internal/store"
	"logowatch/internal/twitch"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("open detection store: %v", err)
	}
	defer st.Close()
	if quarantined := st.RecoveredFrom(); quarantined != "" {
		logger.Warn("corrupt database quarantined; starting with empty history", logging.String("moved_to", quarantined))
	}

	client, err := twitch.NewClient(cfg)
	if err != nil {
		log.Fatalf("twitch client: %v", err)
	}
	reference, err := detect.LoadReference(cfg.Detection.LogoPath)
	if err != nil {
		log.Fatalf("load reference logo: %v", err)
	}
	matcher, err := detect.NewMatcher(reference, detect.Options{
		Threshold:  cfg.Detection.Threshold,
		MultiScale: cfg.Detection.MultiScale,
		ScaleMin:   cfg.Detection.ScaleMin,
		ScaleMax:   cfg.Detection.ScaleMax,
		ScaleSteps: cfg.Detection.ScaleSteps,
	})
	if err != nil {
		log.Fatalf("build matcher: %v", err)
	}

	mon := monitor.New(client, matcher, st, cfg, logger)
	reporter, err := report.New(st, cfg, logger)
	if err != nil {
		log.Fatalf("build reporter: %v", err)
	}

	d, err := daemon.New(cfg, st, mon, reporter, notifications.NewService(cfg), logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	server := daemon.NewServer(cfg, d, logger)
	if server != nil {
		if err := server.Start(ctx); err != nil {
			log.Fatalf("start dashboard server: %v", err)
		}
		defer server.Stop()
	}

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("logowatchd shutting down")
}

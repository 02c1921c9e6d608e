package main

import (
	"context"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"marvin/internal/app"
	"marvin/internal/bus"
	"marvin/internal/config"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "marvin.yaml", "YAML config path")
	url := cli.StringP("url", "u", "", "Url of hub (default $BUS_URL or ws://localhost:8092/ws)")
	name := cli.StringP("name", "n", "marvin", "Shard name on the bus")
	reconn := cli.DurationP("reconn", "r", 3*time.Second, "Delay between reconnect attempts")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for cloud APIs")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	metricsAddr := cli.StringP("metrics", "m", "", "Serve Prometheus metrics on this address")
	cli.Parse()

	app.SetupLogger(*logLevel)
	log.Info("Starting Marvin shard")

	cfg, err := config.Load(*envFile, *configPath)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	wsURL := *url
	if wsURL == "" {
		wsURL = os.Getenv("BUS_URL")
	}
	if wsURL == "" {
		wsURL = "ws://localhost:8092/ws"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{Proxy: *proxyAddr, Transcription: true})
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if *metricsAddr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, *metricsAddr); err != nil {
				log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	conn, err := bus.Dial(ctx, wsURL, *reconn)
	if err != nil {
		log.Error("Failed to connect to bus", "err", err)
		a.Close()
		os.Exit(1)
	}
	log.Info("Connected to bus", "url", wsURL)

	if err := bus.NewShard(*name, conn, a.Assistant, a.Transcriber).Run(ctx); err != nil {
		log.Error("Shard stopped", "err", err)
	}
}

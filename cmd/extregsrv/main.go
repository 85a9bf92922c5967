package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/registry/apis"
	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/regcommon"
	"github.com/extreg/extreg/internal/registry/search"
	"github.com/extreg/extreg/internal/registry/server"
	"github.com/extreg/extreg/internal/registry/service"
	"github.com/extreg/extreg/internal/registry/session"
)

func init() {
	regcommon.InitLogger()
}

type cmdoptions struct {
	configFile string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}

	db.Init()

	cfg := config.Config()
	index := search.NewIndex()
	localRegistry := service.NewLocalRegistry(cfg.ServerURL, index)

	registries := []service.ExtensionRegistry{localRegistry}
	if cfg.Upstream.URL != "" {
		slog.Info().Str("upstream", cfg.Upstream.URL).Msg("upstream registry enabled")
		registries = append(registries, service.NewUpstreamRegistry(
			cfg.Upstream.URL,
			cfg.Upstream.GetConnectTimeoutOrDefault(),
			cfg.Upstream.GetReadTimeoutOrDefault(),
		))
	}

	sessions := session.NewManager(cfg)
	apis.Init(localRegistry, service.NewMultiRegistry(registries...), sessions)

	if cfg.InitSearchIndex {
		if err := rebuildSearchIndex(ctx, index); err != nil {
			return fmt.Errorf("rebuilding search index: %w", err)
		}
	}

	go session.NewReaper(cfg).Run(log.Logger.WithContext(ctx))

	serverErrors, shutdownServer, err := createRegistryServer(ctx)
	if err != nil {
		return fmt.Errorf("creating registry server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

// rebuildSearchIndex rebuilds the search projection from the entity store on
// its own connection, before the server starts taking requests.
func rebuildSearchIndex(ctx context.Context, index search.Index) error {
	connCtx, err := db.ConnCtx(log.Logger.WithContext(ctx))
	if err != nil {
		return err
	}
	defer func() {
		if conn := db.DB(connCtx); conn != nil {
			conn.Close(context.Background())
		}
	}()

	return index.Rebuild(connCtx)
}

func createRegistryServer(ctx context.Context) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer()
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info().Str("port", config.Config().ServerPort).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}

const DefaultConfigFile = "/etc/extreg/extregsrv.conf"

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", DefaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shoalstore/shoal/pkg/config"
	"github.com/shoalstore/shoal/pkg/events"
	"github.com/shoalstore/shoal/pkg/executor"
	"github.com/shoalstore/shoal/pkg/group"
	"github.com/shoalstore/shoal/pkg/log"
	"github.com/shoalstore/shoal/pkg/metrics"
	"github.com/shoalstore/shoal/pkg/pool"
	"github.com/shoalstore/shoal/pkg/rpc"
	"github.com/shoalstore/shoal/pkg/storage"
	"github.com/shoalstore/shoal/pkg/target"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pool target service",
	Long: `Start the node: one execution stream per local shard, the pool cache
and handle table on top of them, and the request server in front.

Configuration comes from a YAML file; every field has a default, so the
node runs without one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return serve(configPath)
	},
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "Path to config file")
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})
	logger := log.WithComponent("shoal")
	logger.Info().
		Str("version", Version).
		Str("data_dir", cfg.DataDir).
		Int("streams", cfg.Streams).
		Msg("starting")

	metrics.Init()

	ser, err := rpc.NewSerializer(cfg.Serializer)
	if err != nil {
		return err
	}

	resolver, err := storage.NewLocalResolver(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to prepare data directory: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	exec := executor.New(cfg.Streams)
	exec.Start()

	cache := pool.NewCache(pool.CacheConfig{
		Executor: exec,
		Engine:   storage.NewBoltEngine(),
		Paths:    resolver,
		Groups:   group.NewLocalService(),
		Broker:   broker,
	})
	table := pool.NewHandleTable(cache)
	svc := target.NewService(cache, table, broker)

	srv := rpc.NewServer(ser)
	target.Register(srv, svc, ser)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Listen(cfg.ListenAddr); err != nil {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint up")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("shutting down")
	}

	// Stop taking requests, drop all handles (which releases their pool
	// references), evict what remains, then stop the streams.
	srv.Stop()
	table.Teardown()
	cache.Close()
	exec.Stop()

	logger.Info().Msg("shutdown complete")
	return nil
}

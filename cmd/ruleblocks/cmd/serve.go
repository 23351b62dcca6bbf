package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/ruleblocks/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC validation service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Server.Port = port
	}

	reg, err := defaultRegistry(cfg)
	if err != nil {
		return err
	}

	opts := []server.ServiceOption{
		server.WithMaxBatchSize(cfg.Server.MaxBatchSize),
		server.WithWorkers(cfg.Engine.Workers),
		server.WithLogger(logger),
	}
	store, closer, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer closer.Close()
		opts = append(opts, server.WithRecorder(store))
	} else {
		logger.Warn("no database configured, runs will not be recorded")
	}

	service, err := server.NewValidationService(reg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(cfg.Server, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting ruleblocks validation service",
		"version", Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"rule_sets", len(reg.List()),
	)
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(ctx)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	buildhook "github.com/goliatone/go-buildhook"
	"github.com/goliatone/go-buildhook/adapters/gocommand"
	"github.com/goliatone/go-buildhook/adapters/gologger"
	"github.com/goliatone/go-buildhook/command"
	"github.com/goliatone/go-buildhook/core"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	port       int
	logLevel   string
	logFormat  string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Start the webhook HTTP listener",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (.yaml, .yml or .cue)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Listen port, overrides config and PORT")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", gologger.FormatJSON, "Log format: json, console or pretty")
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := gologger.New(gologger.Options{Name: "buildhookd", Level: opts.logLevel, Format: opts.logFormat})

	cfg, err := loadConfig(ctx, opts.configPath, buildhook.Config{HTTP: httpOverride(opts.port)})
	if err != nil {
		return err
	}
	logger.WithFields(cfg.Redacted()).Info("configuration loaded")

	documentSink, closeSink, err := openSink(ctx, cfg.Sink)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Warn("sink close failed", "error", err.Error())
		}
	}()

	pipeline, err := buildhook.New(cfg,
		buildhook.WithSink(documentSink),
		buildhook.WithLoggerProvider(logger),
		buildhook.WithExecutor(gocommand.DispatchIngest),
	)
	if err != nil {
		return err
	}

	commands, err := wireCommands(cfg.Commands, pipeline, logger)
	if err != nil {
		return err
	}
	defer commands.subscription.Unsubscribe()

	server := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.HTTP.Port)),
		Handler:           pipeline.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr, "path", cfg.HTTP.Path, "sink", cfg.Sink.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func httpOverride(port int) buildhook.HTTPConfig {
	if port <= 0 {
		return buildhook.HTTPConfig{}
	}
	return buildhook.HTTPConfig{Port: port}
}

type commandWiring struct {
	subscription  commanddispatcher.Subscription
	queueRegistry *jobqueuecommand.Registry
}

// wireCommands subscribes the ingest command to the dispatcher used by
// gocommand.DispatchIngest and, when enabled, mirrors it into a go-job queue
// registry.
func wireCommands(cfg core.CommandsConfig, pipeline *buildhook.Pipeline, provider glog.LoggerProvider) (commandWiring, error) {
	_, logger, _, jobLogger := gologger.ResolveForJob("buildhookd.commands", provider, nil)

	registry := gocommand.NewRegistryAdapter(nil)
	var queueRegistry *jobqueuecommand.Registry
	if cfg.QueueMirror {
		mirrored, err := registry.MirrorToQueue()
		if err != nil {
			return commandWiring{}, fmt.Errorf("mirror commands to queue: %w", err)
		}
		queueRegistry = mirrored
	}

	subscription, err := gocommand.RegisterAndSubscribe[command.IngestBuildMessage](
		registry,
		pipeline.Command(),
		gocommand.RunnerOptions(logger)...,
	)
	if err != nil {
		return commandWiring{}, fmt.Errorf("register ingest command: %w", err)
	}
	if err := registry.Initialize(); err != nil {
		subscription.Unsubscribe()
		return commandWiring{}, fmt.Errorf("initialize command registry: %w", err)
	}

	for _, entry := range queueRegistry.List() {
		jobLogger.Info("command mirrored to queue registry", "command_id", entry.ID)
	}
	return commandWiring{subscription: subscription, queueRegistry: queueRegistry}, nil
}

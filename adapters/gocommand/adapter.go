// Package gocommand registers the ingest command with a go-command registry
// and dispatches webhook deliveries through the go-command dispatcher.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	buildcommand "github.com/goliatone/go-buildhook/command"
	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
)

// QueueResolverKey names the resolver that mirrors commands into a go-job
// queue registry.
const QueueResolverKey = "queue"

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so deliveries can be replayed from a job queue.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

// MirrorToQueue attaches a new go-job queue registry under QueueResolverKey.
// Commands registered before Initialize are mirrored into it.
func (a *RegistryAdapter) MirrorToQueue() (*jobqueuecommand.Registry, error) {
	queueRegistry := jobqueuecommand.NewRegistry()
	if err := a.AddQueueResolver(QueueResolverKey, queueRegistry); err != nil {
		return nil, err
	}
	return queueRegistry, nil
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// RunnerOptions routes runner errors to logger instead of the runner's
// default stdlib log output. Rejections are already logged by the pipeline,
// so they are reported at debug level.
func RunnerOptions(logger glog.Logger) []runner.Option {
	logger = glog.Ensure(logger)
	return []runner.Option{
		runner.WithLogger(logger),
		runner.WithErrorHandler(func(err error) {
			envelope := core.ErrorEnvelope(err)
			if envelope == nil {
				return
			}
			logger.Debug("command handler failed", "error_code", envelope.TextCode, "category", string(envelope.Category))
		}),
		runner.WithDoneHandler(func(*runner.Handler) {}),
	}
}

// DispatchIngest sends one delivery through the dispatcher and reads back
// the ingest result and pipeline error stored by the subscribed ingest
// command. The dispatcher wraps handler errors in its own envelope, so the
// stored error is returned in its place.
func DispatchIngest(ctx context.Context, req core.InboundRequest) (core.IngestResult, error) {
	msg := buildcommand.IngestBuildMessage{Request: req}
	if err := ValidateMessageContract(msg); err != nil {
		return core.IngestResult{}, err
	}
	collector := command.NewResult[core.IngestResult]()
	err := Dispatch(command.ContextWithResult(ctx, collector), msg)
	result, stored := collector.Load()
	if stored {
		return result, collector.Error()
	}
	if err != nil {
		return core.IngestResult{}, core.WrapInternal(err, "ingest dispatch failed")
	}
	return core.IngestResult{}, core.InternalError("ingest dispatch returned no result")
}

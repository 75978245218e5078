package buildhook

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-buildhook/command"
	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-buildhook/inbound"
	"github.com/goliatone/go-buildhook/normalize"
	"github.com/goliatone/go-buildhook/schema"
	"github.com/goliatone/go-buildhook/security"
	"github.com/goliatone/go-buildhook/sink"
	"github.com/goliatone/go-buildhook/webhooks"
	glog "github.com/goliatone/go-logger/glog"
)

// Pipeline wires the default stage implementations behind one HTTP handler.
type Pipeline struct {
	config  Config
	service *core.Service
	command *command.IngestBuildCommand
	handler *inbound.Handler
	sink    core.Sink
}

type Option func(*pipelineOptions)

type pipelineOptions struct {
	sink           core.Sink
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	now            func() time.Time
	executor       inbound.Executor
}

// WithSink replaces the sink selected by sink.driver.
func WithSink(s core.Sink) Option {
	return func(o *pipelineOptions) {
		o.sink = s
	}
}

func WithLogger(logger core.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *pipelineOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *pipelineOptions) {
		o.metrics = recorder
	}
}

// WithClock sets the clock used for freshness checks and durations.
func WithClock(now func() time.Time) Option {
	return func(o *pipelineOptions) {
		o.now = now
	}
}

// WithExecutor routes HTTP deliveries through executor instead of running
// the ingest command directly.
func WithExecutor(executor inbound.Executor) Option {
	return func(o *pipelineOptions) {
		o.executor = executor
	}
}

func New(cfg Config, opts ...Option) (*Pipeline, error) {
	options := pipelineOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateSecrets(); err != nil {
		return nil, err
	}

	_, logger := glog.Resolve("buildhook", options.loggerProvider, options.logger)

	authenticator, err := security.NewTimestampAuthenticator(security.TimestampAuthConfig{
		Key:    []byte(cfg.Auth.SecretKey),
		IV:     []byte(cfg.Auth.IV),
		Window: cfg.Auth.FreshnessWindow(),
		Now:    options.now,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("buildhook: authenticator: %w", err)
	}

	documentSink := options.sink
	if documentSink == nil {
		documentSink, err = DefaultSink(cfg.Sink)
		if err != nil {
			return nil, err
		}
	}

	serviceOpts := []core.Option{
		core.WithAuthenticator(authenticator),
		core.WithIntegrityVerifier(webhooks.NewChecksumVerifier()),
		core.WithNormalizer(normalize.NewNormalizer()),
		core.WithValidator(schema.NewValidator()),
		core.WithSink(documentSink),
	}
	if options.logger != nil {
		serviceOpts = append(serviceOpts, core.WithLogger(options.logger))
	}
	if options.loggerProvider != nil {
		serviceOpts = append(serviceOpts, core.WithLoggerProvider(options.loggerProvider))
	}
	if options.metrics != nil {
		serviceOpts = append(serviceOpts, core.WithMetricsRecorder(options.metrics))
	}
	if options.now != nil {
		serviceOpts = append(serviceOpts, core.WithClock(options.now))
	}
	service, err := core.NewService(cfg, serviceOpts...)
	if err != nil {
		return nil, err
	}

	ingest := command.NewIngestBuildCommand(service)
	executor := options.executor
	if executor == nil {
		executor = inbound.CommandExecutor(ingest)
	}
	handler, err := inbound.NewHandler(cfg.HTTP, executor, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:  cfg,
		service: service,
		command: ingest,
		handler: handler,
		sink:    documentSink,
	}, nil
}

// DefaultSink builds the in-process sinks. The sql driver needs a database
// client and must be supplied with WithSink.
func DefaultSink(cfg core.SinkConfig) (core.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", core.SinkDriverMemory:
		return sink.NewMemorySink(), nil
	case core.SinkDriverKafka:
		return sink.NewKafkaSink(cfg.Brokers)
	case core.SinkDriverElasticsearch:
		return sink.NewElasticsearchSink(cfg.Addresses, nil)
	case core.SinkDriverSQL:
		return nil, fmt.Errorf("buildhook: the sql sink must be provided with WithSink")
	default:
		return nil, fmt.Errorf("buildhook: unsupported sink driver %q", cfg.Driver)
	}
}

func (p *Pipeline) Config() Config {
	return p.config
}

func (p *Pipeline) Service() *core.Service {
	return p.service
}

func (p *Pipeline) Command() *command.IngestBuildCommand {
	return p.command
}

func (p *Pipeline) Handler() http.Handler {
	return p.handler
}

func (p *Pipeline) Sink() core.Sink {
	return p.sink
}

func (p *Pipeline) Ingest(ctx context.Context, req InboundRequest) (IngestResult, error) {
	return p.service.Ingest(ctx, req)
}

// Close releases the sink when it holds a connection.
func (p *Pipeline) Close() error {
	if p == nil || p.sink == nil {
		return nil
	}
	if closer, ok := p.sink.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	authenticator   Authenticator
	verifier        IntegrityVerifier
	normalizer      Normalizer
	validator       RecordValidator
	sink            Sink
	now             func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithAuthenticator(authenticator Authenticator) Option {
	return func(b *serviceBuilder) {
		b.authenticator = authenticator
	}
}

func WithIntegrityVerifier(verifier IntegrityVerifier) Option {
	return func(b *serviceBuilder) {
		b.verifier = verifier
	}
}

func WithNormalizer(normalizer Normalizer) Option {
	return func(b *serviceBuilder) {
		b.normalizer = normalizer
	}
}

func WithValidator(validator RecordValidator) Option {
	return func(b *serviceBuilder) {
		b.validator = validator
	}
}

func WithSink(sink Sink) Option {
	return func(b *serviceBuilder) {
		b.sink = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(cfg Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("buildhook", nil, nil)
	return serviceBuilder{
		config:          cfg,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw config map.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded config < runtime overrides.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig reads raw config through cfgx and applies runtime overrides on
// top of it.
func LoadConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	httpLayer := map[string]any{}
	if includeZero || cfg.HTTP.Port != 0 {
		httpLayer["port"] = cfg.HTTP.Port
	}
	if includeZero || strings.TrimSpace(cfg.HTTP.Path) != "" {
		httpLayer["path"] = cfg.HTTP.Path
	}
	if includeZero || cfg.HTTP.MaxBodyBytes != 0 {
		httpLayer["max_body_bytes"] = cfg.HTTP.MaxBodyBytes
	}
	if len(httpLayer) > 0 {
		layer["http"] = httpLayer
	}

	authLayer := map[string]any{}
	if includeZero || cfg.Auth.SecretKey != "" {
		authLayer["secret_key"] = cfg.Auth.SecretKey
	}
	if includeZero || cfg.Auth.IV != "" {
		authLayer["iv"] = cfg.Auth.IV
	}
	if includeZero || cfg.Auth.FreshnessWindowMillis != 0 {
		authLayer["freshness_window_ms"] = cfg.Auth.FreshnessWindowMillis
	}
	if len(authLayer) > 0 {
		layer["auth"] = authLayer
	}

	sinkLayer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Sink.Driver) != "" {
		sinkLayer["driver"] = cfg.Sink.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Sink.Index) != "" {
		sinkLayer["index"] = cfg.Sink.Index
	}
	if includeZero || strings.TrimSpace(cfg.Sink.DSN) != "" {
		sinkLayer["dsn"] = cfg.Sink.DSN
	}
	if includeZero || strings.TrimSpace(cfg.Sink.Dialect) != "" {
		sinkLayer["dialect"] = cfg.Sink.Dialect
	}
	if includeZero || len(cfg.Sink.Brokers) > 0 {
		sinkLayer["brokers"] = append([]string(nil), cfg.Sink.Brokers...)
	}
	if includeZero || len(cfg.Sink.Addresses) > 0 {
		sinkLayer["addresses"] = append([]string(nil), cfg.Sink.Addresses...)
	}
	if includeZero || cfg.Sink.PublishTimeoutMs != 0 {
		sinkLayer["publish_timeout_ms"] = cfg.Sink.PublishTimeoutMs
	}
	if len(sinkLayer) > 0 {
		layer["sink"] = sinkLayer
	}

	if includeZero || cfg.Commands.QueueMirror {
		layer["commands"] = map[string]any{"queue_mirror": cfg.Commands.QueueMirror}
	}
	return layer
}

package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	SinkDriverMemory = "memory"
	SinkDriverSQL    = "sql"
	SinkDriverKafka  = "kafka"

	SinkDriverElasticsearch = "elasticsearch"
)

const (
	DefaultFreshnessWindowMillis = int64(600000)
	DefaultWebhookPath           = "/webhook"
	DefaultIndex                 = "metadata"
	DefaultMaxBodyBytes          = int64(10 << 20)
)

type HTTPConfig struct {
	Port         int    `koanf:"port" mapstructure:"port"`
	Path         string `koanf:"path" mapstructure:"path"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// AuthConfig holds the shared secret material. Never log it directly; use
// Config.Redacted.
type AuthConfig struct {
	SecretKey             string `koanf:"secret_key" mapstructure:"secret_key"`
	IV                    string `koanf:"iv" mapstructure:"iv"`
	FreshnessWindowMillis int64  `koanf:"freshness_window_ms" mapstructure:"freshness_window_ms"`
}

func (c AuthConfig) FreshnessWindow() time.Duration {
	if c.FreshnessWindowMillis <= 0 {
		return time.Duration(DefaultFreshnessWindowMillis) * time.Millisecond
	}
	return time.Duration(c.FreshnessWindowMillis) * time.Millisecond
}

type SinkConfig struct {
	Driver           string   `koanf:"driver" mapstructure:"driver"`
	Index            string   `koanf:"index" mapstructure:"index"`
	DSN              string   `koanf:"dsn" mapstructure:"dsn"`
	Dialect          string   `koanf:"dialect" mapstructure:"dialect"`
	Brokers          []string `koanf:"brokers" mapstructure:"brokers"`
	Addresses        []string `koanf:"addresses" mapstructure:"addresses"`
	PublishTimeoutMs int64    `koanf:"publish_timeout_ms" mapstructure:"publish_timeout_ms"`
}

func (c SinkConfig) PublishTimeout() time.Duration {
	if c.PublishTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.PublishTimeoutMs) * time.Millisecond
}

// CommandsConfig controls how the ingest command is registered.
// QueueMirror also registers it in a go-job queue registry.
type CommandsConfig struct {
	QueueMirror bool `koanf:"queue_mirror" mapstructure:"queue_mirror"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	HTTP        HTTPConfig     `koanf:"http" mapstructure:"http"`
	Auth        AuthConfig     `koanf:"auth" mapstructure:"auth"`
	Sink        SinkConfig     `koanf:"sink" mapstructure:"sink"`
	Commands    CommandsConfig `koanf:"commands" mapstructure:"commands"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "buildhook",
		HTTP: HTTPConfig{
			Port:         8080,
			Path:         DefaultWebhookPath,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Auth: AuthConfig{
			FreshnessWindowMillis: DefaultFreshnessWindowMillis,
		},
		Sink: SinkConfig{
			Driver: SinkDriverMemory,
			Index:  DefaultIndex,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("core: http.port %d is out of range", c.HTTP.Port)
	}
	if path := strings.TrimSpace(c.HTTP.Path); path != "" && !strings.HasPrefix(path, "/") {
		return fmt.Errorf("core: http.path must start with /")
	}
	if c.Auth.FreshnessWindowMillis < 0 {
		return fmt.Errorf("core: auth.freshness_window_ms must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Sink.Driver)) {
	case "", SinkDriverMemory:
	case SinkDriverSQL:
		if strings.TrimSpace(c.Sink.DSN) == "" {
			return fmt.Errorf("core: sink.dsn is required for the sql driver")
		}
	case SinkDriverKafka:
		if len(c.Sink.Brokers) == 0 {
			return fmt.Errorf("core: sink.brokers is required for the kafka driver")
		}
	case SinkDriverElasticsearch:
		if len(c.Sink.Addresses) == 0 {
			return fmt.Errorf("core: sink.addresses is required for the elasticsearch driver")
		}
	default:
		return fmt.Errorf("core: unsupported sink driver %q", c.Sink.Driver)
	}
	return nil
}

// ValidateSecrets checks the key material shape required by AES-256-CBC.
// It is separate from Validate so tooling that never authenticates can load
// a config without secrets.
func (c Config) ValidateSecrets() error {
	if len(c.Auth.SecretKey) != 32 {
		return fmt.Errorf("core: auth.secret_key must be 32 bytes, got %d", len(c.Auth.SecretKey))
	}
	if len(c.Auth.IV) != 16 {
		return fmt.Errorf("core: auth.iv must be 16 bytes, got %d", len(c.Auth.IV))
	}
	return nil
}

// Redacted returns a loggable view of the config with secrets masked.
func (c Config) Redacted() map[string]any {
	return RedactSensitiveMap(map[string]any{
		"service_name": c.ServiceName,
		"http": map[string]any{
			"port":           c.HTTP.Port,
			"path":           c.HTTP.Path,
			"max_body_bytes": c.HTTP.MaxBodyBytes,
		},
		"auth": map[string]any{
			"secret_key":          c.Auth.SecretKey,
			"iv":                  c.Auth.IV,
			"freshness_window_ms": c.Auth.FreshnessWindowMillis,
		},
		"sink": map[string]any{
			"driver":             c.Sink.Driver,
			"index":              c.Sink.Index,
			"dsn":                c.Sink.DSN,
			"dialect":            c.Sink.Dialect,
			"brokers":            append([]string(nil), c.Sink.Brokers...),
			"addresses":          append([]string(nil), c.Sink.Addresses...),
			"publish_timeout_ms": c.Sink.PublishTimeoutMs,
		},
		"commands": map[string]any{
			"queue_mirror": c.Commands.QueueMirror,
		},
	})
}

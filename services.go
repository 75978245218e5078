package buildhook

import (
	"context"

	"github.com/goliatone/go-buildhook/core"
)

type Config = core.Config

type HTTPConfig = core.HTTPConfig

type Service = core.Service

type InboundRequest = core.InboundRequest

type IngestResult = core.IngestResult

type BuildRecord = core.BuildRecord

type Document = core.Document

type Ack = core.Ack

type Sink = core.Sink

type RawConfigLoader = core.RawConfigLoader

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig layers defaults, the raw config from loader and runtime
// overrides.
func LoadConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	return core.LoadConfig(ctx, loader, runtime)
}

package config

import (
	"context"
	"fmt"

	"github.com/goliatone/go-buildhook/core"
	opts "github.com/goliatone/go-options"
)

// Chain layers the maps of several loaders on a go-options stack. Later
// loaders win; nested maps are merged key by key.
type Chain []core.RawConfigLoader

func (c Chain) LoadRaw(ctx context.Context) (map[string]any, error) {
	layers := make([]opts.Layer[map[string]any], 0, len(c))
	for i, loader := range c {
		if loader == nil {
			continue
		}
		raw, err := loader.LoadRaw(ctx)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			raw = map[string]any{}
		}
		name := fmt.Sprintf("source-%d", i)
		layers = append(layers, opts.NewLayer(
			opts.NewScope(name, i+1),
			raw,
			opts.WithSnapshotID[map[string]any](name),
		))
	}
	if len(layers) == 0 {
		return map[string]any{}, nil
	}
	stack, err := opts.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("config: source stack: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, fmt.Errorf("config: merge sources: %w", err)
	}
	if merged.Value == nil {
		return map[string]any{}, nil
	}
	return merged.Value, nil
}

// Sources returns the file loader for path (when set) followed by the
// environment.
func Sources(path string) Chain {
	chain := Chain{}
	if path != "" {
		chain = append(chain, FileLoader{Path: path})
	}
	return append(chain, EnvLoader{})
}

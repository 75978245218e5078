package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-buildhook/core"
	"gopkg.in/yaml.v3"
)

// FileLoader reads a YAML (.yaml, .yml) or CUE (.cue) file, chosen by
// extension.
type FileLoader struct {
	Path string
}

var _ core.RawConfigLoader = FileLoader{}

func (l FileLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	switch ext := strings.ToLower(filepath.Ext(l.Path)); ext {
	case ".yaml", ".yml":
		return YAMLLoader{Path: l.Path}.LoadRaw(ctx)
	case ".cue":
		return CUELoader{Path: l.Path}.LoadRaw(ctx)
	default:
		return nil, fmt.Errorf("config: unsupported config format %q: expected .yaml, .yml or .cue", ext)
	}
}

type YAMLLoader struct {
	Path string
}

func (l YAMLLoader) LoadRaw(context.Context) (map[string]any, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", l.Path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML document into a raw config map. An empty
// document yields an empty map.
func ParseYAML(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("config: invalid yaml: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

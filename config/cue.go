package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// configSchema constrains CUE config files before they reach cfgx.
const configSchema = `
#Config: {
	service_name?: string & !=""
	http?: {
		port?:           int & >=0 & <=65535
		path?:           string
		max_body_bytes?: int & >=0
	}
	auth?: {
		secret_key?:          string
		iv?:                  string
		freshness_window_ms?: int & >=0
	}
	sink?: {
		driver?:             "memory" | "sql" | "kafka" | "elasticsearch"
		index?:              string
		dsn?:                string
		dialect?:            string
		brokers?:            [...string]
		addresses?:          [...string]
		publish_timeout_ms?: int & >=0
	}
	commands?: {
		queue_mirror?: bool
	}
}
`

type CUELoader struct {
	Path string
}

func (l CUELoader) LoadRaw(context.Context) (map[string]any, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", l.Path, err)
	}
	return ParseCUE(data)
}

// ParseCUE compiles a CUE document, checks it against the config schema and
// exports it as a raw config map.
func ParseCUE(data []byte) (map[string]any, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config: invalid schema: %v", err)
	}
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("config: invalid cue: %v", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("config: invalid config: %v", err)
	}

	encoded, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("config: export cue: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("config: decode cue export: %w", err)
	}
	return out, nil
}

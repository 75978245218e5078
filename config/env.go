package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvSecretKey   = "SECRET_KEY"
	EnvIV          = "IV"
	EnvPort        = "PORT"
	EnvSinkDriver  = "SINK_DRIVER"
	EnvSinkIndex   = "SINK_INDEX"
	EnvSinkDSN     = "SINK_DSN"
	EnvSinkDialect = "SINK_DIALECT"
	EnvSinkBrokers = "SINK_BROKERS"

	EnvSinkAddresses = "SINK_ADDRESSES"
	EnvQueueMirror   = "COMMANDS_QUEUE_MIRROR"
)

// EnvLoader maps the process environment onto the raw config layout. Unset
// or blank variables are left out.
type EnvLoader struct {
	Lookup func(key string) (string, bool)
}

func (l EnvLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	out := map[string]any{}
	auth := map[string]any{}
	if value, ok := lookup(EnvSecretKey); ok && value != "" {
		auth["secret_key"] = value
	}
	if value, ok := lookup(EnvIV); ok && value != "" {
		auth["iv"] = value
	}
	if len(auth) > 0 {
		out["auth"] = auth
	}

	if value, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("config: %s must be an integer: %w", EnvPort, err)
		}
		out["http"] = map[string]any{"port": port}
	}

	sink := map[string]any{}
	for env, key := range map[string]string{
		EnvSinkDriver:  "driver",
		EnvSinkIndex:   "index",
		EnvSinkDSN:     "dsn",
		EnvSinkDialect: "dialect",
	} {
		if value, ok := get(env); ok {
			sink[key] = value
		}
	}
	if value, ok := get(EnvSinkBrokers); ok {
		sink["brokers"] = splitList(value)
	}
	if value, ok := get(EnvSinkAddresses); ok {
		sink["addresses"] = splitList(value)
	}
	if len(sink) > 0 {
		out["sink"] = sink
	}

	if value, ok := get(EnvQueueMirror); ok {
		mirror, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("config: %s must be a boolean: %w", EnvQueueMirror, err)
		}
		out["commands"] = map[string]any{"queue_mirror": mirror}
	}
	return out, nil
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

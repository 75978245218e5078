// Package gologger builds the daemon logger on go-logger and bridges it to
// the go-job logger contracts.
package gologger

import (
	"io"
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	FormatJSON    = glog.LoggerTypeJSON
	FormatConsole = glog.LoggerTypeConsole
	FormatPretty  = glog.LoggerTypePretty
)

type Options struct {
	Name   string
	Level  string
	Format string
	Writer io.Writer
	Exit   func(int)
}

// New returns a go-logger base logger. It serves as logger, fields logger
// and provider of named children.
func New(opts Options) *glog.BaseLogger {
	options := []glog.Option{
		glog.WithLevel(ParseLevel(opts.Level)),
		glog.WithLoggerType(ParseFormat(opts.Format)),
		glog.WithWriter(opts.Writer),
		glog.WithExitFunc(opts.Exit),
	}
	if name := strings.TrimSpace(opts.Name); name != "" {
		options = append(options, glog.WithName(name))
	}
	return glog.NewLogger(options...)
}

// ParseLevel maps a level name to a go-logger level. Unknown names are info.
func ParseLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	case "fatal":
		return glog.Fatal
	default:
		return glog.Info
	}
}

// ParseFormat maps a format name to a go-logger type. "text" is an alias of
// console; unknown names are json.
func ParseFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", FormatConsole:
		return FormatConsole
	case FormatPretty:
		return FormatPretty
	default:
		return FormatJSON
	}
}

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves glog logger/provider then returns equivalent go-job adapters.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

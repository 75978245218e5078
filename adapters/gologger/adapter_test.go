package gologger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   glog.Trace,
		"DEBUG":   glog.Debug,
		"warning": glog.Warn,
		"error":   glog.Error,
		"fatal":   glog.Fatal,
		"verbose": glog.Info,
		"":        glog.Info,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]string{
		"json":    FormatJSON,
		"text":    FormatConsole,
		"console": FormatConsole,
		"pretty":  FormatPretty,
		"":        FormatJSON,
	}
	for input, want := range cases {
		if got := ParseFormat(input); got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNew_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Writer: &buf})

	child := logger.WithFields(map[string]any{"stage": "validate", "event_type": "ingest"})
	child.Info("ingest failed", "error_code", "BUILDHOOK_SCHEMA_VIOLATION")
	logger.Trace("hidden")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line above trace level, got %d", len(lines))
	}
	entry := lines[0]
	if entry["msg"] != "ingest failed" || entry["stage"] != "validate" || entry["error_code"] != "BUILDHOOK_SCHEMA_VIOLATION" {
		t.Fatalf("unexpected entry %#v", entry)
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Format: "text", Writer: &buf}).Warn("stale request", "skew_ms", 700000)
	if !strings.Contains(buf.String(), "stale request") || !strings.Contains(buf.String(), "skew_ms=700000") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestNew_FatalUsesExitFunc(t *testing.T) {
	var buf bytes.Buffer
	code := 0
	logger := New(Options{Writer: &buf, Exit: func(c int) { code = c }})

	logger.WithContext(context.Background()).Fatal("listen failed")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "listen failed") {
		t.Fatalf("expected fatal line, got %q", buf.String())
	}
}

func TestNew_ProviderNamesChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	var provider glog.LoggerProvider = New(Options{Writer: &buf})
	provider.GetLogger("buildhook").Info("ready")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["logger"] != "buildhook" {
		t.Fatalf("expected named logger entry, got %#v", lines)
	}
}

func TestResolveDeterministicFallback(t *testing.T) {
	var providerBuf, loggerBuf bytes.Buffer
	provider := New(Options{Writer: &providerBuf})
	direct := New(Options{Writer: &loggerBuf})

	_, resolved := Resolve("buildhook", provider, direct)
	resolved.Info("from provider")
	if providerBuf.Len() == 0 || loggerBuf.Len() != 0 {
		t.Fatalf("expected provider logger precedence")
	}

	resolvedProvider, resolved := Resolve("buildhook", nil, direct)
	resolved.Info("from logger")
	if loggerBuf.Len() == 0 {
		t.Fatalf("expected direct logger when provider is nil")
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("buildhook", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestGoJobBridge(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Writer: &buf})

	_, _, jobProvider, jobLogger := ResolveForJob("buildhook.queue", base, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job bridges")
	}
	jobLogger.Info("command mirrored", "command_id", "buildhook.command.ingest")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one bridged line, got %d", len(lines))
	}
	if lines[0]["msg"] != "command mirrored" || lines[0]["command_id"] != "buildhook.command.ingest" {
		t.Fatalf("unexpected bridged entry %#v", lines[0])
	}
	if lines[0]["logger"] != "buildhook.queue" {
		t.Fatalf("expected provider-named logger, got %#v", lines[0]["logger"])
	}

	if ToJobProvider(nil) != nil || ToJobLogger(nil) != nil {
		t.Fatalf("expected nil bridges for nil inputs")
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	buildhook "github.com/goliatone/go-buildhook"
	"github.com/goliatone/go-buildhook/adapters/gologger"
	"github.com/goliatone/go-buildhook/command"
	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-buildhook/migrations"
	"github.com/goliatone/go-buildhook/security"
	sqlstore "github.com/goliatone/go-buildhook/store/sql"
	"github.com/goliatone/go-buildhook/webhooks"
)

const (
	testKey = "0123456789abcdef0123456789abcdef"
	testIV  = "abcdef9876543210"
)

const validPayload = `{
  "actions": [],
  "building": false,
  "displayName": "#3",
  "fullDisplayName": "app #3",
  "id": "3",
  "number": 3,
  "queueId": 17,
  "result": "SUCCESS",
  "timestamp": 1712345678901,
  "url": "https://ci.example/job/app/3/",
  "node_stage_data": []
}`

func writeTemp(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck_ValidPayload(t *testing.T) {
	out, err := run(t, "check", "--payload", writeTemp(t, "build.json", validPayload))
	if err != nil {
		t.Fatalf("check: %v (%s)", err, out)
	}
	var report checkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report %q: %v", out, err)
	}
	if !report.Valid || len(report.Violations) != 0 {
		t.Fatalf("expected valid report, got %+v", report)
	}
}

func TestCheck_ViolationsExitNonZero(t *testing.T) {
	payload := strings.Replace(validPayload, `"result": "SUCCESS"`, `"result": "PASSED"`, 1)
	out, err := run(t, "check", "--payload", writeTemp(t, "build.json", payload))
	if err == nil {
		t.Fatalf("expected violations error")
	}
	coder, ok := err.(exitCoder)
	if !ok || coder.ExitCode() != exitViolations {
		t.Fatalf("expected exit code %d, got %v", exitViolations, err)
	}
	var report checkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report %q: %v", out, err)
	}
	if report.Valid || len(report.Violations) == 0 || report.Violations[0].Path != "/result" {
		t.Fatalf("expected /result violation, got %+v", report)
	}
}

func TestCheck_MalformedPayload(t *testing.T) {
	out, err := run(t, "check", "--payload", writeTemp(t, "build.json", `[1,2]`))
	if err == nil {
		t.Fatalf("expected malformed payload error")
	}
	if !strings.Contains(out, `"error"`) {
		t.Fatalf("expected error in report, got %s", out)
	}
}

func TestSign_PrintsVerifiableHeaders(t *testing.T) {
	cfgPath := writeTemp(t, "buildhook.yaml", "auth:\n  secret_key: \""+testKey+"\"\n  iv: \""+testIV+"\"\n")
	payloadPath := writeTemp(t, "build.json", validPayload)

	out, err := run(t, "sign", "--config", cfgPath, "--payload", payloadPath, "--at", "2024-04-05T19:34:38Z")
	if err != nil {
		t.Fatalf("sign: %v (%s)", err, out)
	}
	headers := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			t.Fatalf("unexpected line %q", line)
		}
		headers[name] = value
	}
	if headers[core.HeaderChecksum] != webhooks.Digest([]byte(validPayload)) {
		t.Fatalf("unexpected checksum %q", headers[core.HeaderChecksum])
	}
	millis, err := security.DecryptTimestamp([]byte(testKey), []byte(testIV), headers[core.HeaderEncryptedTimestamp])
	if err != nil {
		t.Fatalf("decrypt signed token: %v", err)
	}
	want := time.Date(2024, 4, 5, 19, 34, 38, 0, time.UTC).UnixMilli()
	if millis != want {
		t.Fatalf("expected %d, got %d", want, millis)
	}
}

func TestSign_DualPayloadHeaders(t *testing.T) {
	cfgPath := writeTemp(t, "buildhook.yaml", "auth:\n  secret_key: \""+testKey+"\"\n  iv: \""+testIV+"\"\n")
	out, err := run(t, "sign", "--config", cfgPath,
		"--payload", writeTemp(t, "build.json", validPayload),
		"--stage-data", writeTemp(t, "stages.json", `[]`))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.Contains(out, core.HeaderChecksumBuild+": ") || !strings.Contains(out, core.HeaderChecksumStage+": "+webhooks.Digest([]byte(`[]`))) {
		t.Fatalf("expected dual checksum headers, got %s", out)
	}
	if strings.Contains(out, core.HeaderChecksum+": ") {
		t.Fatalf("expected no single body checksum, got %s", out)
	}
}

func TestSign_RequiresSecrets(t *testing.T) {
	cfgPath := writeTemp(t, "buildhook.yaml", "auth:\n  secret_key: short\n")
	if _, err := run(t, "sign", "--config", cfgPath, "--payload", writeTemp(t, "build.json", validPayload)); err == nil {
		t.Fatalf("expected invalid secret error")
	}
	if _, err := run(t, "sign"); err == nil {
		t.Fatalf("expected missing payload flag error")
	}
}

func TestOpenSink_SQLiteStoresDocuments(t *testing.T) {
	ctx := context.Background()
	dsn := "file:buildhookd-test-" + time.Now().Format("150405.000000000") + "?mode=memory&cache=shared"
	documentSink, closeSink, err := openSink(ctx, core.SinkConfig{Driver: core.SinkDriverSQL, DSN: dsn})
	if err != nil {
		t.Fatalf("open sql sink: %v", err)
	}
	defer func() { _ = closeSink() }()

	store, ok := documentSink.(*sqlstore.DocumentStore)
	if !ok {
		t.Fatalf("expected sql document store, got %T", documentSink)
	}
	result := core.ResultSuccess
	ack, err := store.Publish(ctx, core.Document{
		Index: "metadata",
		Record: core.BuildRecord{
			ID:     "3",
			Number: json.Number("3"),
			URL:    "https://ci.example/job/app/3/",
			Result: &result,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ack.Backend != sqlstore.BackendSQL {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestOpenSink_MemoryAndErrors(t *testing.T) {
	s, closeSink, err := openSink(context.Background(), core.SinkConfig{})
	if err != nil || s == nil {
		t.Fatalf("expected memory sink, got %v", err)
	}
	if err := closeSink(); err != nil {
		t.Fatalf("close memory sink: %v", err)
	}
	if _, _, err := openSink(context.Background(), core.SinkConfig{Driver: core.SinkDriverSQL, Dialect: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported dialect error")
	}
}

func TestDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db/builds":  migrations.DialectPostgres,
		"host=db user=ci dbname=ci": migrations.DialectPostgres,
		"file:builds.db":            migrations.DialectSQLite,
	}
	for dsn, want := range cases {
		if got := dialectFromDSN(dsn); got != want {
			t.Fatalf("dialectFromDSN(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func newTestPipeline(t *testing.T) *buildhook.Pipeline {
	t.Helper()
	cfg := buildhook.DefaultConfig()
	cfg.Auth.SecretKey = testKey
	cfg.Auth.IV = testIV
	pipeline, err := buildhook.New(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline
}

func TestWireCommands_QueueMirror(t *testing.T) {
	var logs bytes.Buffer
	logger := gologger.New(gologger.Options{Writer: &logs})

	wiring, err := wireCommands(core.CommandsConfig{QueueMirror: true}, newTestPipeline(t), logger)
	if err != nil {
		t.Fatalf("wire commands: %v", err)
	}
	defer wiring.subscription.Unsubscribe()

	if wiring.queueRegistry == nil {
		t.Fatalf("expected queue registry")
	}
	if _, ok := wiring.queueRegistry.Get(command.TypeIngestBuild); !ok {
		t.Fatalf("expected ingest command mirrored into queue registry")
	}
	if !strings.Contains(logs.String(), "command mirrored to queue registry") {
		t.Fatalf("expected mirror log line, got %q", logs.String())
	}
}

func TestWireCommands_WithoutQueueMirror(t *testing.T) {
	wiring, err := wireCommands(core.CommandsConfig{}, newTestPipeline(t), gologger.New(gologger.Options{Writer: &bytes.Buffer{}}))
	if err != nil {
		t.Fatalf("wire commands: %v", err)
	}
	defer wiring.subscription.Unsubscribe()
	if wiring.queueRegistry != nil {
		t.Fatalf("expected no queue registry")
	}
}

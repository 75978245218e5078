package command

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-buildhook/core"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type stubIngester struct {
	result core.IngestResult
	err    error
	calls  int
	last   core.InboundRequest
}

func (s *stubIngester) Ingest(_ context.Context, req core.InboundRequest) (core.IngestResult, error) {
	s.calls++
	s.last = req
	return s.result, s.err
}

func TestIngestBuildCommand_StoresResult(t *testing.T) {
	service := &stubIngester{result: core.IngestResult{Accepted: true, StatusCode: http.StatusOK, Published: true}}
	cmd := NewIngestBuildCommand(service)

	collector := gocmd.NewResult[core.IngestResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	msg := IngestBuildMessage{Request: core.InboundRequest{
		Headers: map[string]string{"X-Checksum": "ab"},
		Body:    []byte(`{"id":"1"}`),
	}}
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.calls != 1 || string(service.last.Body) != `{"id":"1"}` {
		t.Fatalf("expected request forwarded unchanged")
	}
	result, ok := collector.Load()
	if !ok || !result.Accepted || result.StatusCode != http.StatusOK {
		t.Fatalf("expected stored accepted result, got %+v (ok=%v)", result, ok)
	}
	if collector.Error() != nil {
		t.Fatalf("expected no stored error, got %v", collector.Error())
	}
}

func TestIngestBuildCommand_StoresRejectedResultWithError(t *testing.T) {
	rejection := core.InvalidCredentialError()
	service := &stubIngester{
		result: core.IngestResult{StatusCode: http.StatusBadRequest},
		err:    rejection,
	}
	cmd := NewIngestBuildCommand(service)

	collector := gocmd.NewResult[core.IngestResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := cmd.Execute(ctx, IngestBuildMessage{Request: core.InboundRequest{Headers: map[string]string{}}})
	if !core.HasTextCode(err, core.ErrorInvalidCredential) {
		t.Fatalf("expected credential error, got %v", err)
	}
	result, ok := collector.Load()
	if !ok || result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected rejected result to be stored, got %+v", result)
	}
	if collector.Error() != rejection {
		t.Fatalf("expected pipeline error to be stored unchanged, got %v", collector.Error())
	}
}

func TestIngestBuildCommand_WithoutCollector(t *testing.T) {
	service := &stubIngester{result: core.IngestResult{Accepted: true}}
	if err := NewIngestBuildCommand(service).Execute(context.Background(), IngestBuildMessage{
		Request: core.InboundRequest{Headers: map[string]string{}},
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestIngestBuildMessage_ValidateReturnsRichError(t *testing.T) {
	err := (IngestBuildMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorMalformedSource {
		t.Fatalf("expected %q text code, got %q", core.ErrorMalformedSource, rich.TextCode)
	}
	if (IngestBuildMessage{}).Type() != TypeIngestBuild {
		t.Fatalf("unexpected message type")
	}
}

func TestIngestBuildCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *IngestBuildCommand
	err := cmd.Execute(context.Background(), IngestBuildMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}

package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-buildhook/command"
	"github.com/goliatone/go-buildhook/core"
	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	HeaderRequestID = "X-Request-Id"
	AcceptedBody    = "Webhook Received!"
)

// Executor runs one delivery and returns the ingest result. Rejected
// deliveries return both a result with its status code and the error.
type Executor func(ctx context.Context, req core.InboundRequest) (core.IngestResult, error)

// CommandExecutor runs the ingest command directly, reading the result from
// a go-command result collector.
func CommandExecutor(cmd gocmd.Commander[command.IngestBuildMessage]) Executor {
	return func(ctx context.Context, req core.InboundRequest) (core.IngestResult, error) {
		if cmd == nil {
			return core.IngestResult{}, core.InternalError("inbound: ingest command is required")
		}
		collector := gocmd.NewResult[core.IngestResult]()
		err := cmd.Execute(gocmd.ContextWithResult(ctx, collector), command.IngestBuildMessage{Request: req})
		result, _ := collector.Load()
		return result, err
	}
}

type Handler struct {
	path         string
	maxBodyBytes int64
	execute      Executor
	logger       glog.Logger
	mux          *http.ServeMux
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(cfg core.HTTPConfig, execute Executor, logger glog.Logger) (*Handler, error) {
	if execute == nil {
		return nil, fmt.Errorf("inbound: executor is required")
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = core.DefaultWebhookPath
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("inbound: path %q must start with /", path)
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = core.DefaultMaxBodyBytes
	}
	h := &Handler{
		path:         path,
		maxBodyBytes: maxBody,
		execute:      execute,
		logger:       glog.Ensure(logger),
		mux:          http.NewServeMux(),
	}
	h.mux.HandleFunc("POST "+path, h.serveWebhook)
	return h, nil
}

func (h *Handler) Path() string {
	return h.path
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) serveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, bodyTooLargeError(h.maxBodyBytes), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, bodyReadError(err), http.StatusBadRequest)
		return
	}

	req := core.InboundRequest{
		Headers:  core.FlattenHeaders(r.Header),
		Body:     body,
		Metadata: requestMetadata(r),
	}
	result, err := h.execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err, result.StatusCode)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, AcceptedBody)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code       string           `json:"code"`
	Message    string           `json:"message"`
	Violations []core.Violation `json:"violations,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error, status int) {
	envelope := core.ErrorEnvelope(err)
	if status == 0 {
		status = envelope.Code
	}

	detail := errorDetail{
		Code:       envelope.TextCode,
		Message:    envelope.Message,
		Violations: core.ViolationsFromError(err),
	}
	if status >= http.StatusInternalServerError {
		status = http.StatusInternalServerError
		detail = errorDetail{Code: core.ErrorInternal, Message: "internal error"}
		h.logger.Error("webhook request failed", "error_code", envelope.TextCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: detail})
}

func requestMetadata(r *http.Request) map[string]any {
	metadata := map[string]any{
		"remote_addr": r.RemoteAddr,
		"path":        r.URL.Path,
	}
	if requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID)); requestID != "" {
		metadata["request_id"] = requestID
	}
	return metadata
}

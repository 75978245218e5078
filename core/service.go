package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	StageAuthenticate = "authenticate"
	StageIntegrity    = "verify_integrity"
	StageNormalize    = "normalize"
	StageValidate     = "validate"
	StagePublish      = "publish"
)

// Service runs one webhook request through authentication, integrity
// verification, normalization, schema validation and publishing. It keeps no
// per-request state and is safe for concurrent use.
type Service struct {
	config          Config
	logger          Logger
	metricsRecorder MetricsRecorder
	authenticator   Authenticator
	verifier        IntegrityVerifier
	normalizer      Normalizer
	validator       RecordValidator
	sink            Sink
	now             func() time.Time
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("buildhook", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("buildhook"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	missing := make([]string, 0, 5)
	if builder.authenticator == nil {
		missing = append(missing, "authenticator")
	}
	if builder.verifier == nil {
		missing = append(missing, "integrity verifier")
	}
	if builder.normalizer == nil {
		missing = append(missing, "normalizer")
	}
	if builder.validator == nil {
		missing = append(missing, "validator")
	}
	if builder.sink == nil {
		missing = append(missing, "sink")
	}
	if len(missing) > 0 {
		return nil, InternalError(fmt.Sprintf("core: service requires %s", strings.Join(missing, ", ")))
	}

	return &Service{
		config:          builder.config,
		logger:          logger,
		metricsRecorder: builder.metricsRecorder,
		authenticator:   builder.authenticator,
		verifier:        builder.verifier,
		normalizer:      builder.normalizer,
		validator:       builder.validator,
		sink:            builder.sink,
		now:             builder.now,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Ingest runs the pipeline. Stages before publishing are fail-fast and their
// error is returned with a 4xx/5xx result. A publish failure is logged and
// counted but the request is still accepted.
func (s *Service) Ingest(ctx context.Context, req InboundRequest) (IngestResult, error) {
	if s == nil {
		return IngestResult{}, InternalError("core: service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := s.now()
	fields := map[string]any{}
	if requestID, ok := req.Metadata["request_id"]; ok {
		fields["request_id"] = requestID
	}

	if err := s.authenticator.Authenticate(ctx, req); err != nil {
		return s.reject(ctx, startedAt, StageAuthenticate, err, fields)
	}

	payload, err := s.verifier.Verify(ctx, req)
	if err != nil {
		return s.reject(ctx, startedAt, StageIntegrity, err, fields)
	}
	fields["dual_payload"] = payload.Dual()

	record, err := s.normalizer.Normalize(ctx, payload)
	if err != nil {
		return s.reject(ctx, startedAt, StageNormalize, err, fields)
	}
	fields["build_id"] = record.ID
	fields["build_number"] = record.Number.String()
	fields["build_url"] = record.URL
	fields["stage_count"] = len(record.Stages)

	violations, err := s.validator.Validate(ctx, record)
	if err != nil {
		return s.reject(ctx, startedAt, StageValidate, WrapInternal(err, "core: schema validation could not run"), fields)
	}
	if len(violations) > 0 {
		fields["violation_count"] = len(violations)
		return s.reject(ctx, startedAt, StageValidate, SchemaViolationError(violations), fields)
	}

	index := s.index()
	fields["index"] = index
	ack, publishErr := s.publish(ctx, index, record, fields)

	result := IngestResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Published:  publishErr == nil,
		Ack:        ack,
		Record:     record,
		Metadata: map[string]any{
			"build_id":  record.ID,
			"index":     index,
			"published": publishErr == nil,
		},
	}
	fields["published"] = publishErr == nil
	s.observeOperation(ctx, startedAt, "ingest", nil, fields)
	return result, nil
}

func (s *Service) publish(ctx context.Context, index string, record BuildRecord, fields map[string]any) (Ack, error) {
	startedAt := s.now()
	publishCtx := ctx
	if timeout := s.config.Sink.PublishTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ack, err := s.sink.Publish(publishCtx, Document{Index: index, Record: record})
	if err != nil {
		wrapped := PublishError(err, map[string]any{"index": index})
		s.observeOperation(ctx, startedAt, StagePublish, wrapped, withStage(fields, StagePublish, ErrorPublishFailed))
		return Ack{}, wrapped
	}
	publishFields := cloneFields(fields)
	publishFields["backend"] = ack.Backend
	publishFields["document_id"] = ack.DocumentID
	s.observeOperation(ctx, startedAt, StagePublish, nil, publishFields)
	return ack, nil
}

func (s *Service) reject(
	ctx context.Context,
	startedAt time.Time,
	stage string,
	err error,
	fields map[string]any,
) (IngestResult, error) {
	envelope := ErrorEnvelope(err)
	logFields := withStage(fields, stage, envelope.TextCode)
	for key, value := range envelope.Metadata {
		if _, exists := logFields[key]; !exists {
			logFields[key] = value
		}
	}
	s.observeOperation(ctx, startedAt, "ingest", envelope, logFields)
	return IngestResult{
		Accepted:   false,
		StatusCode: envelope.Code,
		Metadata: map[string]any{
			"stage":      stage,
			"error_code": envelope.TextCode,
		},
	}, envelope
}

func (s *Service) index() string {
	if index := strings.TrimSpace(s.config.Sink.Index); index != "" {
		return index
	}
	return DefaultIndex
}

func withStage(fields map[string]any, stage string, textCode string) map[string]any {
	out := cloneFields(fields)
	out["stage"] = stage
	if textCode != "" {
		out["error_code"] = textCode
	}
	return out
}

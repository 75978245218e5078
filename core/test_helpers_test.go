package core

import (
	"context"
	"encoding/json"
	"sync"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level || item.msg != message {
			continue
		}
		if item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}

type stubAuthenticator struct {
	err   error
	calls int
}

func (s *stubAuthenticator) Authenticate(context.Context, InboundRequest) error {
	s.calls++
	return s.err
}

type stubVerifier struct {
	payload SourcePayload
	err     error
	calls   int
}

func (s *stubVerifier) Verify(_ context.Context, req InboundRequest) (SourcePayload, error) {
	s.calls++
	if s.err != nil {
		return SourcePayload{}, s.err
	}
	if s.payload.Build == nil {
		return SourcePayload{Build: req.Body}, nil
	}
	return s.payload, nil
}

type stubNormalizer struct {
	record BuildRecord
	err    error
	calls  int
}

func (s *stubNormalizer) Normalize(context.Context, SourcePayload) (BuildRecord, error) {
	s.calls++
	return s.record, s.err
}

type stubValidator struct {
	violations []Violation
	err        error
	calls      int
}

func (s *stubValidator) Validate(context.Context, BuildRecord) ([]Violation, error) {
	s.calls++
	return s.violations, s.err
}

type recordingSink struct {
	mu    sync.Mutex
	docs  []Document
	err   error
	block bool
}

func (s *recordingSink) Publish(ctx context.Context, doc Document) (Ack, error) {
	if s.block {
		<-ctx.Done()
		return Ack{}, ctx.Err()
	}
	if s.err != nil {
		return Ack{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return Ack{Backend: "recording", Index: doc.Index, DocumentID: doc.Record.DocumentKey()}, nil
}

func (s *recordingSink) published() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

type pipelineStubs struct {
	auth       *stubAuthenticator
	verifier   *stubVerifier
	normalizer *stubNormalizer
	validator  *stubValidator
	sink       *recordingSink
}

func newPipelineStubs() *pipelineStubs {
	result := ResultSuccess
	return &pipelineStubs{
		auth:     &stubAuthenticator{},
		verifier: &stubVerifier{},
		normalizer: &stubNormalizer{record: BuildRecord{
			ID:              "42",
			Number:          json.Number("42"),
			URL:             "https://ci.example/job/app/42/",
			FullDisplayName: "app #42",
			Result:          &result,
		}},
		validator: &stubValidator{},
		sink:      &recordingSink{},
	}
}

func (p *pipelineStubs) options() []Option {
	return []Option{
		WithAuthenticator(p.auth),
		WithIntegrityVerifier(p.verifier),
		WithNormalizer(p.normalizer),
		WithValidator(p.validator),
		WithSink(p.sink),
	}
}

type mapRawLoader struct {
	values map[string]any
	err    error
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, l.err
}

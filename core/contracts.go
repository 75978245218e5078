package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	HeaderEncryptedTimestamp = "X-Encrypted-Timestamp"
	HeaderChecksum           = "X-Checksum"
	HeaderChecksumBuild      = "X-Checksum-Build"
	HeaderChecksumStage      = "X-Checksum-Stage"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// InboundRequest is the transport-neutral view of one webhook delivery.
// Body must be the exact bytes received on the wire.
type InboundRequest struct {
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type IngestResult struct {
	Accepted   bool
	StatusCode int
	Published  bool
	Ack        Ack
	Record     BuildRecord
	Metadata   map[string]any
}

// Authenticator decides whether a request is fresh and from a trusted caller.
type Authenticator interface {
	Authenticate(ctx context.Context, req InboundRequest) error
}

// IntegrityVerifier checks caller supplied digests against the raw payload and
// returns the verified payload segments.
type IntegrityVerifier interface {
	Verify(ctx context.Context, req InboundRequest) (SourcePayload, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, payload SourcePayload) (BuildRecord, error)
}

// RecordValidator returns every contract violation of a record. A nil error
// with an empty slice means the record is accepted.
type RecordValidator interface {
	Validate(ctx context.Context, record BuildRecord) ([]Violation, error)
}

// Document is a validated record addressed to a sink index.
type Document struct {
	Index  string
	Record BuildRecord
}

type Ack struct {
	Backend    string
	Index      string
	DocumentID string
}

// Sink hands a validated document to an external store.
type Sink interface {
	Publish(ctx context.Context, doc Document) (Ack, error)
}

type SinkFunc func(ctx context.Context, doc Document) (Ack, error)

func (f SinkFunc) Publish(ctx context.Context, doc Document) (Ack, error) {
	return f(ctx, doc)
}

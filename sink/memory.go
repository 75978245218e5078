// Package sink holds the document sinks that do not need a database.
package sink

import (
	"context"
	"sync"

	"github.com/goliatone/go-buildhook/core"
)

const BackendMemory = "memory"

// MemorySink keeps published documents in process. It backs tests and dry
// runs of the daemon.
type MemorySink struct {
	mu   sync.RWMutex
	docs []core.Document
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(ctx context.Context, doc core.Document) (core.Ack, error) {
	if err := ctx.Err(); err != nil {
		return core.Ack{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return core.Ack{
		Backend:    BackendMemory,
		Index:      doc.Index,
		DocumentID: doc.Record.DocumentKey(),
	}, nil
}

// Documents returns a copy of everything published so far.
func (s *MemorySink) Documents() []core.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

var _ core.Sink = (*MemorySink)(nil)

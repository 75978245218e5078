package sqlstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-buildhook/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const BackendSQL = "sql"

// DocumentStore is the SQL sink. Each publish inserts one build_documents
// row; documents are never updated in place.
type DocumentStore struct {
	db   *bun.DB
	repo repository.Repository[*documentRecord]
	now  func() time.Time
}

func NewDocumentStore(db *bun.DB) (*DocumentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*documentRecord](db, documentHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid document repository wiring: %w", err)
		}
	}
	return &DocumentStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *DocumentStore) Publish(ctx context.Context, doc core.Document) (core.Ack, error) {
	if s == nil || s.repo == nil {
		return core.Ack{}, fmt.Errorf("sqlstore: document store is not configured")
	}
	index := strings.TrimSpace(doc.Index)
	if index == "" {
		return core.Ack{}, fmt.Errorf("sqlstore: document index is required")
	}
	document, err := documentMap(doc.Record)
	if err != nil {
		return core.Ack{}, err
	}
	buildNumber, _ := doc.Record.Number.Int64()

	record := &documentRecord{
		ID:          uuid.NewString(),
		IndexName:   index,
		DocumentKey: doc.Record.DocumentKey(),
		BuildID:     doc.Record.ID,
		BuildNumber: buildNumber,
		BuildURL:    doc.Record.URL,
		Result:      doc.Record.Result,
		Building:    doc.Record.Building,
		StageCount:  len(doc.Record.Stages),
		Document:    document,
		CreatedAt:   s.now(),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Ack{}, fmt.Errorf("sqlstore: insert document: %w", err)
	}
	return core.Ack{
		Backend:    BackendSQL,
		Index:      created.IndexName,
		DocumentID: created.ID,
	}, nil
}

func (s *DocumentStore) Get(ctx context.Context, id string) (StoredDocument, error) {
	if s == nil || s.repo == nil {
		return StoredDocument{}, fmt.Errorf("sqlstore: document store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return StoredDocument{}, err
	}
	return record.toDomain(), nil
}

// ListByIndex returns the most recent documents of an index, newest first.
func (s *DocumentStore) ListByIndex(ctx context.Context, index string, limit int) ([]StoredDocument, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: document store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("index_name", "=", strings.TrimSpace(index)),
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]StoredDocument, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func documentMap(record core.BuildRecord) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode document: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("sqlstore: decode document: %w", err)
	}
	return document, nil
}

package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type documentRecord struct {
	bun.BaseModel `bun:"table:build_documents,alias:bd"`

	ID          string         `bun:"id,pk"`
	IndexName   string         `bun:"index_name,notnull"`
	DocumentKey string         `bun:"document_key,notnull"`
	BuildID     string         `bun:"build_id,notnull"`
	BuildNumber int64          `bun:"build_number,notnull"`
	BuildURL    string         `bun:"build_url,notnull"`
	Result      *string        `bun:"result"`
	Building    bool           `bun:"building,notnull"`
	StageCount  int            `bun:"stage_count,notnull"`
	Document    map[string]any `bun:"document,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// StoredDocument is one published build document as persisted.
type StoredDocument struct {
	ID          string
	Index       string
	DocumentKey string
	BuildID     string
	BuildNumber int64
	BuildURL    string
	Result      string
	Building    bool
	StageCount  int
	Document    map[string]any
	CreatedAt   time.Time
}

func (r *documentRecord) toDomain() StoredDocument {
	if r == nil {
		return StoredDocument{}
	}
	result := ""
	if r.Result != nil {
		result = *r.Result
	}
	return StoredDocument{
		ID:          r.ID,
		Index:       r.IndexName,
		DocumentKey: r.DocumentKey,
		BuildID:     r.BuildID,
		BuildNumber: r.BuildNumber,
		BuildURL:    r.BuildURL,
		Result:      result,
		Building:    r.Building,
		StageCount:  r.StageCount,
		Document:    r.Document,
		CreatedAt:   r.CreatedAt,
	}
}

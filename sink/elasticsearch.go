package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/goliatone/go-buildhook/core"
)

const BackendElasticsearch = "elasticsearch"

// ElasticsearchSink indexes each document into the index named by the
// document. Elasticsearch assigns the document id.
type ElasticsearchSink struct {
	client *elasticsearch.Client
}

// NewElasticsearchSink builds a client for addresses. A nil transport uses
// the client default.
func NewElasticsearchSink(addresses []string, transport http.RoundTripper) (*ElasticsearchSink, error) {
	nodes := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address = strings.TrimSpace(address); address != "" {
			nodes = append(nodes, address)
		}
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("sink: at least one elasticsearch address is required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: nodes,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: create elasticsearch client: %w", err)
	}
	return &ElasticsearchSink{client: client}, nil
}

type indexResponse struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

func (s *ElasticsearchSink) Publish(ctx context.Context, doc core.Document) (core.Ack, error) {
	if s == nil || s.client == nil {
		return core.Ack{}, fmt.Errorf("sink: elasticsearch client is not configured")
	}
	index := strings.TrimSpace(doc.Index)
	if index == "" {
		return core.Ack{}, fmt.Errorf("sink: document index is required")
	}
	body, err := json.Marshal(doc.Record)
	if err != nil {
		return core.Ack{}, fmt.Errorf("sink: encode document: %w", err)
	}

	res, err := s.client.Index(index, bytes.NewReader(body), s.client.Index.WithContext(ctx))
	if err != nil {
		return core.Ack{}, fmt.Errorf("sink: index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return core.Ack{}, fmt.Errorf("sink: index document: %s", res.Status())
	}

	var out indexResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return core.Ack{}, fmt.Errorf("sink: decode index response: %w", err)
	}
	if out.Index == "" {
		out.Index = index
	}
	return core.Ack{
		Backend:    BackendElasticsearch,
		Index:      out.Index,
		DocumentID: out.ID,
	}, nil
}

var _ core.Sink = (*ElasticsearchSink)(nil)

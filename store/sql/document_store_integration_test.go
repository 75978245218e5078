package sqlstore_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-buildhook/migrations"
	sqlstore "github.com/goliatone/go-buildhook/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-buildhook-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:buildhook-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(testPersistenceConfig{driver: "sqlite3", server: dsn}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}
	if err := migrations.Apply(context.Background(), client, migrations.DialectSQLite); err != nil {
		_ = client.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}

func sampleDocument(index string, number string) core.Document {
	result := core.ResultSuccess
	return core.Document{
		Index: index,
		Record: core.BuildRecord{
			ID:              number,
			Number:          json.Number(number),
			URL:             "https://ci.example/job/app/" + number + "/",
			FullDisplayName: "app #" + number,
			Result:          &result,
			Duration:        json.Number("1200"),
			Stages: []core.StageRecord{
				{ID: "6", Name: "Build", Status: core.StageStatusSuccess},
			},
		},
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"build_documents",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "build_documents" {
		t.Fatalf("expected build_documents table, got %q", tableName)
	}
}

func TestDocumentStore_PublishPersistsDocument(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDocumentStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new document store: %v", err)
	}

	ack, err := store.Publish(ctx, sampleDocument("metadata", "42"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ack.Backend != sqlstore.BackendSQL || ack.Index != "metadata" || ack.DocumentID == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	stored, err := store.Get(ctx, ack.DocumentID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.DocumentKey != "https://ci.example/job/app/42/#42" {
		t.Fatalf("unexpected document key %q", stored.DocumentKey)
	}
	if stored.BuildNumber != 42 || stored.Result != core.ResultSuccess || stored.StageCount != 1 {
		t.Fatalf("unexpected stored columns %+v", stored)
	}
	if stored.Document["fullDisplayName"] != "app #42" {
		t.Fatalf("expected document body to round trip, got %#v", stored.Document["fullDisplayName"])
	}
	stages, ok := stored.Document["stages"].([]any)
	if !ok || len(stages) != 1 {
		t.Fatalf("expected one stored stage, got %#v", stored.Document["stages"])
	}
}

func TestDocumentStore_RepeatedPublishCreatesNewRows(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDocumentStore(client.DB())
	if err != nil {
		t.Fatalf("new document store: %v", err)
	}

	first, err := store.Publish(ctx, sampleDocument("metadata", "7"))
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second, err := store.Publish(ctx, sampleDocument("metadata", "7"))
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if first.DocumentID == second.DocumentID {
		t.Fatalf("expected distinct document ids")
	}
	if _, err := store.Publish(ctx, sampleDocument("archive", "8")); err != nil {
		t.Fatalf("archive publish: %v", err)
	}

	docs, err := store.ListByIndex(ctx, "metadata", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected two metadata documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Index != "metadata" {
			t.Fatalf("unexpected index %q", doc.Index)
		}
	}
}

func TestDocumentStore_RejectsMissingIndex(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewDocumentStore(client.DB())
	if err != nil {
		t.Fatalf("new document store: %v", err)
	}
	if _, err := store.Publish(context.Background(), sampleDocument(" ", "1")); err == nil {
		t.Fatalf("expected missing index error")
	}
}

func TestNewDocumentStoreFromPersistence_RequiresClient(t *testing.T) {
	if _, err := sqlstore.NewDocumentStoreFromPersistence(nil); err == nil {
		t.Fatalf("expected nil client error")
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	buildhook "github.com/goliatone/go-buildhook"
	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-buildhook/migrations"
	sqlstore "github.com/goliatone/go-buildhook/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-buildhook"
}

// openSink builds the configured sink. The returned close function releases
// any connection the sink holds.
func openSink(ctx context.Context, cfg core.SinkConfig) (core.Sink, func() error, error) {
	if strings.ToLower(strings.TrimSpace(cfg.Driver)) != core.SinkDriverSQL {
		s, err := buildhook.DefaultSink(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error { return nil }
		if closer, ok := s.(interface{ Close() error }); ok {
			closeFn = closer.Close
		}
		return s, closeFn, nil
	}

	client, dialect, err := openPersistence(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(ctx, client, dialect); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	store, err := sqlstore.NewDocumentStoreFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, client.Close, nil
}

func openPersistence(cfg core.SinkConfig) (*persistence.Client, string, error) {
	dialect := strings.ToLower(strings.TrimSpace(cfg.Dialect))
	if dialect == "" {
		dialect = dialectFromDSN(cfg.DSN)
	}

	var (
		driver     string
		bunDialect schema.Dialect
	)
	switch dialect {
	case migrations.DialectPostgres:
		driver, bunDialect = "postgres", pgdialect.New()
	case migrations.DialectSQLite:
		driver, bunDialect = "sqlite3", sqlitedialect.New()
	default:
		return nil, "", fmt.Errorf("sink: unsupported sql dialect %q", cfg.Dialect)
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("sink: open %s database: %w", dialect, err)
	}
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: driver, server: cfg.DSN}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, "", fmt.Errorf("sink: persistence client: %w", err)
	}
	return client, dialect, nil
}

func dialectFromDSN(dsn string) string {
	dsn = strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return migrations.DialectPostgres
	}
	return migrations.DialectSQLite
}

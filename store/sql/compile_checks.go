package sqlstore

import "github.com/goliatone/go-buildhook/core"

var _ core.Sink = (*DocumentStore)(nil)

package command

import (
	"context"

	"github.com/goliatone/go-buildhook/core"
	gocmd "github.com/goliatone/go-command"
)

type Ingester interface {
	Ingest(ctx context.Context, req core.InboundRequest) (core.IngestResult, error)
}

type IngestBuildCommand struct {
	service Ingester
}

func NewIngestBuildCommand(service Ingester) *IngestBuildCommand {
	return &IngestBuildCommand{service: service}
}

// Execute runs the pipeline. The ingest result and the pipeline error are
// stored in the context result collector, so callers behind a dispatcher can
// read the rejection as the pipeline produced it.
func (c *IngestBuildCommand) Execute(ctx context.Context, msg IngestBuildMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ingest service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.Ingest(ctx, msg.Request)
	storeResult(ctx, out, err)
	return err
}

func storeResult[T any](ctx context.Context, value T, err error) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
	if err != nil {
		collector.StoreError(err)
	}
}

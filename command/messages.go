package command

import "github.com/goliatone/go-buildhook/core"

const TypeIngestBuild = "buildhook.command.ingest"

// IngestBuildMessage carries one raw webhook delivery into the pipeline.
type IngestBuildMessage struct {
	Request core.InboundRequest
}

func (IngestBuildMessage) Type() string { return TypeIngestBuild }

func (m IngestBuildMessage) Validate() error {
	if m.Request.Headers == nil {
		return commandValidationError("headers", "request headers are required")
	}
	return nil
}

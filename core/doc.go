// Package core contains the canonical build record, the ingestion stage
// contracts, and the pipeline that runs a webhook request through them.
// Stage implementations (authentication, integrity, normalization, schema
// validation, sinks) live in sibling packages and depend on core; core must
// not depend on them.
package core

// Package inbound serves the webhook HTTP surface.
//
// One POST route reads the raw body, runs the ingest command and maps the
// outcome to a response. Error metadata is logged but never rendered.
package inbound

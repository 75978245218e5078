// Package webhooks verifies the integrity of inbound build webhooks.
//
// Digests are computed over the exact bytes received. In the single payload
// form X-Checksum covers the whole body. In the dual payload form the body is
// an envelope of two JSON documents carried as strings, and X-Checksum-Build
// and X-Checksum-Stage cover each string independently.
package webhooks

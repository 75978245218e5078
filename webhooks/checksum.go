package webhooks

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-buildhook/core"
)

const (
	SegmentBody  = "body"
	SegmentBuild = "build_data"
	SegmentStage = "stage_data"
)

// Digest returns the lowercase hex SHA-256 of payload.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// DualEnvelope is the body of a dual payload request.
type DualEnvelope struct {
	BuildData string `json:"build_data"`
	StageData string `json:"stage_data"`
}

// ChecksumVerifier implements core.IntegrityVerifier.
type ChecksumVerifier struct{}

func NewChecksumVerifier() ChecksumVerifier {
	return ChecksumVerifier{}
}

func (v ChecksumVerifier) Verify(_ context.Context, req core.InboundRequest) (core.SourcePayload, error) {
	if IsDualPayload(req) {
		return v.verifyDual(req)
	}
	if err := compareDigest(SegmentBody, req.Body, core.HeaderValue(req.Headers, core.HeaderChecksum)); err != nil {
		return core.SourcePayload{}, err
	}
	return core.SourcePayload{Build: req.Body}, nil
}

func (v ChecksumVerifier) verifyDual(req core.InboundRequest) (core.SourcePayload, error) {
	envelope, err := DecodeDualEnvelope(req.Body)
	if err != nil {
		return core.SourcePayload{}, err
	}
	build := []byte(envelope.BuildData)
	stages := []byte(envelope.StageData)
	if err := compareDigest(SegmentBuild, build, core.HeaderValue(req.Headers, core.HeaderChecksumBuild)); err != nil {
		return core.SourcePayload{}, err
	}
	if err := compareDigest(SegmentStage, stages, core.HeaderValue(req.Headers, core.HeaderChecksumStage)); err != nil {
		return core.SourcePayload{}, err
	}
	return core.SourcePayload{Build: build, Stages: stages}, nil
}

// IsDualPayload reports whether the request uses per segment checksums.
func IsDualPayload(req core.InboundRequest) bool {
	return core.HeaderValue(req.Headers, core.HeaderChecksumBuild) != ""
}

// DecodeDualEnvelope reads the two string segments of a dual payload body.
func DecodeDualEnvelope(body []byte) (DualEnvelope, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	var raw map[string]json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		return DualEnvelope{}, core.MalformedSourceError("dual payload body is not a JSON object", nil)
	}
	var envelope DualEnvelope
	segments := []struct {
		key    string
		target *string
	}{
		{SegmentBuild, &envelope.BuildData},
		{SegmentStage, &envelope.StageData},
	}
	for _, segment := range segments {
		key, target := segment.key, segment.target
		value, ok := raw[key]
		if !ok {
			return DualEnvelope{}, core.MalformedSourceError("dual payload is missing "+key, map[string]any{"segment": key})
		}
		if err := json.Unmarshal(value, target); err != nil {
			return DualEnvelope{}, core.MalformedSourceError(key+" must be a JSON string", map[string]any{"segment": key})
		}
	}
	return envelope, nil
}

// EncodeDualEnvelope is the client side of DecodeDualEnvelope.
func EncodeDualEnvelope(build []byte, stages []byte) ([]byte, error) {
	return json.Marshal(DualEnvelope{BuildData: string(build), StageData: string(stages)})
}

func compareDigest(segment string, payload []byte, received string) error {
	computed := Digest(payload)
	received = strings.ToLower(strings.TrimSpace(received))
	if received == "" {
		return core.ChecksumMismatchError(segment, computed, "")
	}
	decoded, err := hex.DecodeString(received)
	if err != nil {
		return core.ChecksumMismatchError(segment, computed, received)
	}
	expected := sha256.Sum256(payload)
	if subtle.ConstantTimeCompare(decoded, expected[:]) != 1 {
		return core.ChecksumMismatchError(segment, computed, received)
	}
	return nil
}

var _ core.IntegrityVerifier = ChecksumVerifier{}

package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestOptionalErrorOmittedWhenUnset(t *testing.T) {
	stage := StageRecord{ID: "6", Name: "Build", Status: StageStatusSuccess}
	raw, err := json.Marshal(stage)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), `"error"`) {
		t.Fatalf("expected unset error to be omitted, got %s", raw)
	}

	stage.Error = Some(ErrorPayload{"message": "boom"})
	raw, err = json.Marshal(stage)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"error":{"message":"boom"}`) {
		t.Fatalf("expected error payload, got %s", raw)
	}
}

func TestBuildRecordDocumentKey(t *testing.T) {
	record := BuildRecord{FullDisplayName: "app #7", Number: json.Number("7")}
	if got := record.DocumentKey(); got != "app #7#7" {
		t.Fatalf("unexpected key %q", got)
	}
	record.URL = "https://ci.example/job/app/7/"
	if got := record.DocumentKey(); got != "https://ci.example/job/app/7/#7" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestBuildRecordResultValue(t *testing.T) {
	if (BuildRecord{}).ResultValue() != "" {
		t.Fatalf("expected empty result while running")
	}
	result := ResultAborted
	if (BuildRecord{Result: &result}).ResultValue() != ResultAborted {
		t.Fatalf("expected aborted")
	}
}

func TestSourcePayloadDual(t *testing.T) {
	if (SourcePayload{Build: []byte("{}")}).Dual() {
		t.Fatalf("expected single payload")
	}
	if !(SourcePayload{Build: []byte("{}"), Stages: []byte("[]")}).Dual() {
		t.Fatalf("expected dual payload")
	}
}

package core

import (
	"encoding/json"
	"strings"
)

const (
	TimeInQueueClass = "jenkins.metrics.impl.TimeInQueueAction"
	BuildDataClass   = "hudson.plugins.git.util.BuildData"
	CauseActionClass = "hudson.model.CauseAction"
)

const (
	ResultSuccess  = "SUCCESS"
	ResultFailure  = "FAILURE"
	ResultAborted  = "ABORTED"
	ResultUnstable = "UNSTABLE"
)

const (
	StageStatusInProgress         = "IN_PROGRESS"
	StageStatusSuccess            = "SUCCESS"
	StageStatusFailed             = "FAILED"
	StageStatusAborted            = "ABORTED"
	StageStatusUnstable           = "UNSTABLE"
	StageStatusNotExecuted        = "NOT_EXECUTED"
	StageStatusPausedPendingInput = "PAUSED_PENDING_INPUT"
)

// BuildResults lists the accepted values of a non-null build result.
func BuildResults() []string {
	return []string{ResultSuccess, ResultFailure, ResultAborted, ResultUnstable}
}

// StageStatuses lists the accepted stage and flow node statuses.
func StageStatuses() []string {
	return []string{
		StageStatusInProgress,
		StageStatusSuccess,
		StageStatusFailed,
		StageStatusAborted,
		StageStatusUnstable,
		StageStatusNotExecuted,
		StageStatusPausedPendingInput,
	}
}

// SourcePayload holds the untouched payload segments of one request.
// Stages is nil when the stage list travels inside Build under node_stage_data.
type SourcePayload struct {
	Build  []byte
	Stages []byte
}

func (p SourcePayload) Dual() bool {
	return p.Stages != nil
}

// BuildRecord is the canonical, fully defaulted form of one CI build.
// Numeric fields keep the upstream number literal so fractional or negative
// values survive until schema validation.
type BuildRecord struct {
	Class                   string      `json:"_class"`
	BlockedDurationMillis   json.Number `json:"blockedDurationMillis"`
	BlockedTimeMillis       json.Number `json:"blockedTimeMillis"`
	BuildableDurationMillis json.Number `json:"buildableDurationMillis"`
	BuildableTimeMillis     json.Number `json:"buildableTimeMillis"`
	BuildingDurationMillis  json.Number `json:"buildingDurationMillis"`
	ExecutingTimeMillis     json.Number `json:"executingTimeMillis"`
	ExecutorUtilization     json.Number `json:"executorUtilization"`
	SubTaskCount            json.Number `json:"subTaskCount"`
	WaitingDurationMillis   json.Number `json:"waitingDurationMillis"`
	WaitingTimeMillis       json.Number `json:"waitingTimeMillis"`

	ClassBuildData     string         `json:"_class_buildData"`
	BuildsByBranchName map[string]any `json:"buildsByBranchName"`
	LastBuiltRevision  map[string]any `json:"lastBuiltRevision"`
	RemoteURLs         []string       `json:"remoteUrls"`
	SCMName            string         `json:"scmName"`

	Causes []map[string]any `json:"causes"`

	Artifacts         []map[string]any `json:"artifacts"`
	Building          bool             `json:"building"`
	Description       *string          `json:"description"`
	DisplayName       string           `json:"displayName"`
	Duration          json.Number      `json:"duration"`
	EstimatedDuration json.Number      `json:"estimatedDuration"`
	Executor          map[string]any   `json:"executor"`
	FullDisplayName   string           `json:"fullDisplayName"`
	ID                string           `json:"id"`
	KeepLog           bool             `json:"keepLog"`
	Number            json.Number      `json:"number"`
	QueueID           json.Number      `json:"queueId"`
	Result            *string          `json:"result"`
	Timestamp         json.Number      `json:"timestamp"`
	URL               string           `json:"url"`
	ChangeSets        []map[string]any `json:"changeSets"`
	Culprits          []map[string]any `json:"culprits"`

	Stages []StageRecord `json:"stages"`
}

// ResultValue returns the build result or "" while the build is still running.
func (r BuildRecord) ResultValue() string {
	if r.Result == nil {
		return ""
	}
	return *r.Result
}

// DocumentKey identifies the build for sinks that need a stable key.
func (r BuildRecord) DocumentKey() string {
	base := strings.TrimSpace(r.URL)
	if base == "" {
		base = strings.TrimSpace(r.FullDisplayName)
	}
	number := strings.TrimSpace(r.Number.String())
	if number == "" {
		return base
	}
	return base + "#" + number
}

type StageRecord struct {
	Links               map[string]any         `json:"_links"`
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	ExecNode            string                 `json:"execNode"`
	Status              string                 `json:"status"`
	StartTimeMillis     json.Number            `json:"startTimeMillis"`
	DurationMillis      json.Number            `json:"durationMillis"`
	PauseDurationMillis json.Number            `json:"pauseDurationMillis"`
	Error               Optional[ErrorPayload] `json:"error,omitzero"`
	StageFlowNodes      []FlowNode             `json:"stageFlowNodes"`
}

type FlowNode struct {
	Links                map[string]any         `json:"_links"`
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	ExecNode             string                 `json:"execNode"`
	Status               string                 `json:"status"`
	ParameterDescription string                 `json:"parameterDescription"`
	StartTimeMillis      json.Number            `json:"startTimeMillis"`
	DurationMillis       json.Number            `json:"durationMillis"`
	PauseDurationMillis  json.Number            `json:"pauseDurationMillis"`
	Error                Optional[ErrorPayload] `json:"error,omitzero"`
	ParentNodes          []string               `json:"parentNodes"`
}

// ErrorPayload is the failure detail reported upstream for a stage or step.
type ErrorPayload map[string]any

// Optional distinguishes "not reported" from an empty value. An unset
// Optional is omitted from the JSON document entirely.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, set: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) IsZero() bool {
	return !o.set
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*o = Some(value)
	return nil
}

// Violation is one schema contract failure at a document path.
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Reason
	}
	return v.Path + ": " + v.Reason
}

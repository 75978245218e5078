package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-buildhook/core"
)

const (
	KeyActions       = "actions"
	KeyNodeStageData = "node_stage_data"
	KeyStages        = "stages"
	KeyFlowNodes     = "stageFlowNodes"
)

// Normalizer implements core.Normalizer. It is stateless.
type Normalizer struct{}

func NewNormalizer() Normalizer {
	return Normalizer{}
}

func (n Normalizer) Normalize(_ context.Context, payload core.SourcePayload) (core.BuildRecord, error) {
	build, err := decodeObject(payload.Build, "build payload")
	if err != nil {
		return core.BuildRecord{}, err
	}
	rawActions, ok := build[KeyActions].([]any)
	if !ok {
		return core.BuildRecord{}, core.MalformedSourceError(
			"actions must be a list",
			map[string]any{"field": KeyActions},
		)
	}
	rawStages, err := stageList(build, payload)
	if err != nil {
		return core.BuildRecord{}, err
	}
	stages, err := normalizeStages(rawStages)
	if err != nil {
		return core.BuildRecord{}, err
	}
	return buildRecord(build, ParseActions(rawActions), stages), nil
}

func buildRecord(build map[string]any, actions Actions, stages []core.StageRecord) core.BuildRecord {
	queue, _ := actions.TimeInQueue()
	scm, _ := actions.BuildData()
	causes, _ := actions.Causes()

	return core.BuildRecord{
		Class:                   core.TimeInQueueClass,
		BlockedDurationMillis:   queue.BlockedDurationMillis,
		BlockedTimeMillis:       queue.BlockedTimeMillis,
		BuildableDurationMillis: queue.BuildableDurationMillis,
		BuildableTimeMillis:     queue.BuildableTimeMillis,
		BuildingDurationMillis:  queue.BuildingDurationMillis,
		ExecutingTimeMillis:     queue.ExecutingTimeMillis,
		ExecutorUtilization:     queue.ExecutorUtilization,
		SubTaskCount:            queue.SubTaskCount,
		WaitingDurationMillis:   queue.WaitingDurationMillis,
		WaitingTimeMillis:       queue.WaitingTimeMillis,

		ClassBuildData:     core.BuildDataClass,
		BuildsByBranchName: scm.BuildsByBranchName,
		LastBuiltRevision:  scm.LastBuiltRevision,
		RemoteURLs:         scm.RemoteURLs,
		SCMName:            scm.SCMName,

		Causes: causes.Causes,

		Artifacts:         objectList(build["artifacts"]),
		Building:          boolField(build, "building"),
		Description:       nullableStringField(build, "description"),
		DisplayName:       stringField(build, "displayName"),
		Duration:          numberField(build, "duration"),
		EstimatedDuration: numberField(build, "estimatedDuration"),
		Executor:          objectField(build, "executor"),
		FullDisplayName:   stringField(build, "fullDisplayName"),
		ID:                identifierField(build, "id"),
		KeepLog:           boolField(build, "keepLog"),
		Number:            numberField(build, "number"),
		QueueID:           numberField(build, "queueId"),
		Result:            nullableEnumField(build, "result"),
		Timestamp:         numberField(build, "timestamp"),
		URL:               stringField(build, "url"),
		ChangeSets:        objectList(build["changeSets"]),
		Culprits:          objectList(build["culprits"]),

		Stages: stages,
	}
}

// stageList finds the per node stage descriptions. A single payload carries
// them under node_stage_data. A dual payload carries them in the stage
// segment, either as a bare list or as an object with a stages list.
func stageList(build map[string]any, payload core.SourcePayload) ([]any, error) {
	if !payload.Dual() {
		stages, ok := build[KeyNodeStageData].([]any)
		if !ok {
			return nil, core.MalformedSourceError(
				"node_stage_data must be a list",
				map[string]any{"field": KeyNodeStageData},
			)
		}
		return stages, nil
	}

	var segment any
	if err := decodeJSON(payload.Stages, &segment); err != nil {
		return nil, core.MalformedSourceError("stage payload is not valid JSON", map[string]any{"segment": "stage_data"})
	}
	switch typed := segment.(type) {
	case []any:
		return typed, nil
	case map[string]any:
		if stages, ok := typed[KeyStages].([]any); ok {
			return stages, nil
		}
	}
	return nil, core.MalformedSourceError(
		"stage payload must be a list or an object with a stages list",
		map[string]any{"segment": "stage_data"},
	)
}

func normalizeStages(raw []any) ([]core.StageRecord, error) {
	stages := make([]core.StageRecord, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, core.MalformedSourceError(
				fmt.Sprintf("stage %d is not an object", i),
				map[string]any{"stage": i},
			)
		}
		nodes, err := normalizeFlowNodes(i, entry[KeyFlowNodes])
		if err != nil {
			return nil, err
		}
		stages = append(stages, core.StageRecord{
			Links:               objectField(entry, "_links"),
			ID:                  identifierField(entry, "id"),
			Name:                stringField(entry, "name"),
			ExecNode:            stringField(entry, "execNode"),
			Status:              enumField(entry, "status"),
			StartTimeMillis:     numberField(entry, "startTimeMillis"),
			DurationMillis:      numberField(entry, "durationMillis"),
			PauseDurationMillis: numberField(entry, "pauseDurationMillis"),
			Error:               errorField(entry),
			StageFlowNodes:      nodes,
		})
	}
	return stages, nil
}

func normalizeFlowNodes(stage int, value any) ([]core.FlowNode, error) {
	if value == nil {
		return []core.FlowNode{}, nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil, core.MalformedSourceError(
			fmt.Sprintf("stage %d stageFlowNodes must be a list", stage),
			map[string]any{"stage": stage},
		)
	}
	nodes := make([]core.FlowNode, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, core.MalformedSourceError(
				fmt.Sprintf("stage %d flow node %d is not an object", stage, i),
				map[string]any{"stage": stage, "flow_node": i},
			)
		}
		nodes = append(nodes, core.FlowNode{
			Links:                objectField(entry, "_links"),
			ID:                   identifierField(entry, "id"),
			Name:                 stringField(entry, "name"),
			ExecNode:             stringField(entry, "execNode"),
			Status:               enumField(entry, "status"),
			ParameterDescription: stringField(entry, "parameterDescription"),
			StartTimeMillis:      numberField(entry, "startTimeMillis"),
			DurationMillis:       numberField(entry, "durationMillis"),
			PauseDurationMillis:  numberField(entry, "pauseDurationMillis"),
			Error:                errorField(entry),
			ParentNodes:          stringList(entry["parentNodes"]),
		})
	}
	return nodes, nil
}

// errorField is the only field whose absence is kept. An object is copied,
// a non-empty string becomes {"message": s}, anything else is absent.
func errorField(entry map[string]any) core.Optional[core.ErrorPayload] {
	switch typed := entry["error"].(type) {
	case map[string]any:
		return core.Some(core.ErrorPayload(typed))
	case string:
		if typed == "" {
			return core.None[core.ErrorPayload]()
		}
		return core.Some(core.ErrorPayload{"message": typed})
	default:
		return core.None[core.ErrorPayload]()
	}
}

func decodeObject(data []byte, label string) (map[string]any, error) {
	var value any
	if err := decodeJSON(data, &value); err != nil {
		return nil, core.MalformedSourceError(label+" is not valid JSON", nil)
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil, core.MalformedSourceError(label+" must be a JSON object", nil)
	}
	return object, nil
}

func decodeJSON(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("normalize: trailing data after JSON document")
	}
	return nil
}

var _ core.Normalizer = Normalizer{}

// Package normalize reshapes raw CI build payloads into core.BuildRecord.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-buildhook/core"
)

// ActionKind is the upstream _class tag of an entry in the actions list.
type ActionKind string

const (
	ActionTimeInQueue ActionKind = core.TimeInQueueClass
	ActionBuildData   ActionKind = core.BuildDataClass
	ActionCause       ActionKind = core.CauseActionClass
)

// Action is one recognized entry of the actions list.
type Action interface {
	Kind() ActionKind
}

type TimeInQueueAction struct {
	BlockedDurationMillis   json.Number
	BlockedTimeMillis       json.Number
	BuildableDurationMillis json.Number
	BuildableTimeMillis     json.Number
	BuildingDurationMillis  json.Number
	ExecutingTimeMillis     json.Number
	ExecutorUtilization     json.Number
	SubTaskCount            json.Number
	WaitingDurationMillis   json.Number
	WaitingTimeMillis       json.Number
}

func (TimeInQueueAction) Kind() ActionKind { return ActionTimeInQueue }

type BuildDataAction struct {
	BuildsByBranchName map[string]any
	LastBuiltRevision  map[string]any
	RemoteURLs         []string
	SCMName            string
}

func (BuildDataAction) Kind() ActionKind { return ActionBuildData }

type CauseAction struct {
	Causes []map[string]any
}

func (CauseAction) Kind() ActionKind { return ActionCause }

// Actions maps each recognized kind to the first entry of that kind.
type Actions map[ActionKind]Action

// ParseActions scans the raw actions list once. Entries that are not objects,
// carry no _class, or carry an unrecognized _class are ignored. When a kind
// occurs more than once the first occurrence wins.
func ParseActions(raw []any) Actions {
	actions := make(Actions, 3)
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		class, _ := entry["_class"].(string)
		kind := ActionKind(strings.TrimSpace(class))
		if _, seen := actions[kind]; seen {
			continue
		}
		switch kind {
		case ActionTimeInQueue:
			actions[kind] = parseTimeInQueue(entry)
		case ActionBuildData:
			actions[kind] = parseBuildData(entry)
		case ActionCause:
			actions[kind] = CauseAction{Causes: objectList(entry["causes"])}
		}
	}
	return actions
}

// TimeInQueue returns the queue metrics, zeroed when the action is absent.
func (a Actions) TimeInQueue() (TimeInQueueAction, bool) {
	if action, ok := a[ActionTimeInQueue].(TimeInQueueAction); ok {
		return action, true
	}
	return parseTimeInQueue(nil), false
}

// BuildData returns the SCM data, with empty containers when absent.
func (a Actions) BuildData() (BuildDataAction, bool) {
	if action, ok := a[ActionBuildData].(BuildDataAction); ok {
		return action, true
	}
	return parseBuildData(nil), false
}

func (a Actions) Causes() (CauseAction, bool) {
	if action, ok := a[ActionCause].(CauseAction); ok {
		return action, true
	}
	return CauseAction{Causes: []map[string]any{}}, false
}

func parseTimeInQueue(entry map[string]any) TimeInQueueAction {
	return TimeInQueueAction{
		BlockedDurationMillis:   numberField(entry, "blockedDurationMillis"),
		BlockedTimeMillis:       numberField(entry, "blockedTimeMillis"),
		BuildableDurationMillis: numberField(entry, "buildableDurationMillis"),
		BuildableTimeMillis:     numberField(entry, "buildableTimeMillis"),
		BuildingDurationMillis:  numberField(entry, "buildingDurationMillis"),
		ExecutingTimeMillis:     numberField(entry, "executingTimeMillis"),
		ExecutorUtilization:     numberField(entry, "executorUtilization"),
		SubTaskCount:            numberField(entry, "subTaskCount"),
		WaitingDurationMillis:   numberField(entry, "waitingDurationMillis"),
		WaitingTimeMillis:       numberField(entry, "waitingTimeMillis"),
	}
}

func parseBuildData(entry map[string]any) BuildDataAction {
	return BuildDataAction{
		BuildsByBranchName: objectField(entry, "buildsByBranchName"),
		LastBuiltRevision:  objectField(entry, "lastBuiltRevision"),
		RemoteURLs:         stringList(entry["remoteUrls"]),
		SCMName:            stringField(entry, "scmName"),
	}
}

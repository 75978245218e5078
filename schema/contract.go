// Package schema checks canonical build documents against a declarative
// contract and reports every violation in one pass.
package schema

import "github.com/goliatone/go-buildhook/core"

type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInteger
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "a string"
	case KindInteger:
		return "an integer"
	case KindNumber:
		return "a number"
	case KindBool:
		return "a boolean"
	case KindObject:
		return "an object"
	case KindArray:
		return "an array"
	default:
		return "a value"
	}
}

const (
	FormatURI  = "uri"
	FormatSHA1 = "sha1"
)

// Field is the contract of one value. Object and Elem describe nested
// objects and array elements.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Nullable bool
	NonEmpty bool
	Const    string
	Enum     []string
	Format   string
	Min      *float64
	Max      *float64
	Object   *Object
	Elem     *Field
}

// Object is the contract of a JSON object. Strict objects reject fields not
// listed. Values, when set, applies to every value of an open map.
type Object struct {
	Fields []Field
	Strict bool
	Values *Field
}

func bound(v float64) *float64 {
	return &v
}

func required(name string, kind Kind) Field {
	return Field{Name: name, Kind: kind, Required: true}
}

func nonNegativeInteger(name string) Field {
	return Field{Name: name, Kind: KindInteger, Required: true, Min: bound(0)}
}

func requiredString(name string) Field {
	return Field{Name: name, Kind: KindString, Required: true, NonEmpty: true}
}

func objectList(name string, element *Object) Field {
	return Field{
		Name:     name,
		Kind:     KindArray,
		Required: true,
		Elem:     &Field{Kind: KindObject, Object: element},
	}
}

var openObject = &Object{}

// BuildRecordContract is the strict contract of core.BuildRecord documents.
func BuildRecordContract() Object {
	return Object{
		Strict: true,
		Fields: []Field{
			{Name: "_class", Kind: KindString, Required: true, Const: core.TimeInQueueClass},
			nonNegativeInteger("blockedDurationMillis"),
			nonNegativeInteger("blockedTimeMillis"),
			nonNegativeInteger("buildableDurationMillis"),
			nonNegativeInteger("buildableTimeMillis"),
			nonNegativeInteger("buildingDurationMillis"),
			nonNegativeInteger("executingTimeMillis"),
			{Name: "executorUtilization", Kind: KindNumber, Required: true, Min: bound(0), Max: bound(1)},
			nonNegativeInteger("subTaskCount"),
			nonNegativeInteger("waitingDurationMillis"),
			nonNegativeInteger("waitingTimeMillis"),

			{Name: "_class_buildData", Kind: KindString, Required: true, Const: core.BuildDataClass},
			{Name: "buildsByBranchName", Kind: KindObject, Required: true, Object: &Object{
				Values: &Field{Kind: KindObject, Object: branchBuildContract()},
			}},
			{Name: "lastBuiltRevision", Kind: KindObject, Required: true, Object: revisionContract()},
			{Name: "remoteUrls", Kind: KindArray, Required: true, Elem: &Field{Kind: KindString, Format: FormatURI}},
			required("scmName", KindString),

			objectList("causes", openObject),

			objectList("artifacts", openObject),
			required("building", KindBool),
			{Name: "description", Kind: KindString, Required: true, Nullable: true},
			requiredString("displayName"),
			nonNegativeInteger("duration"),
			nonNegativeInteger("estimatedDuration"),
			{Name: "executor", Kind: KindObject, Required: true, Object: &Object{Fields: []Field{
				{Name: "_class", Kind: KindString},
			}}},
			requiredString("fullDisplayName"),
			requiredString("id"),
			required("keepLog", KindBool),
			required("number", KindInteger),
			required("queueId", KindInteger),
			{Name: "result", Kind: KindString, Required: true, Nullable: true, Enum: core.BuildResults()},
			nonNegativeInteger("timestamp"),
			{Name: "url", Kind: KindString, Required: true, NonEmpty: true, Format: FormatURI},
			objectList("changeSets", openObject),
			objectList("culprits", openObject),

			objectList("stages", stageContract()),
		},
	}
}

func stageContract() *Object {
	return &Object{
		Strict: true,
		Fields: []Field{
			{Name: "_links", Kind: KindObject, Required: true, Object: openObject},
			requiredString("id"),
			requiredString("name"),
			{Name: "execNode", Kind: KindString, Required: true, Nullable: true},
			{Name: "status", Kind: KindString, Required: true, Enum: core.StageStatuses()},
			nonNegativeInteger("startTimeMillis"),
			nonNegativeInteger("durationMillis"),
			nonNegativeInteger("pauseDurationMillis"),
			{Name: "error", Kind: KindObject, Object: openObject},
			objectList("stageFlowNodes", flowNodeContract()),
		},
	}
}

func flowNodeContract() *Object {
	return &Object{
		Strict: true,
		Fields: []Field{
			{Name: "_links", Kind: KindObject, Required: true, Object: openObject},
			requiredString("id"),
			requiredString("name"),
			{Name: "execNode", Kind: KindString, Required: true, Nullable: true},
			{Name: "status", Kind: KindString, Required: true, Enum: core.StageStatuses()},
			required("parameterDescription", KindString),
			nonNegativeInteger("startTimeMillis"),
			nonNegativeInteger("durationMillis"),
			nonNegativeInteger("pauseDurationMillis"),
			{Name: "error", Kind: KindObject, Object: openObject},
			{Name: "parentNodes", Kind: KindArray, Required: true, Elem: &Field{Kind: KindString}},
		},
	}
}

func branchBuildContract() *Object {
	return &Object{Fields: []Field{
		{Name: "_class", Kind: KindString},
		{Name: "buildNumber", Kind: KindInteger},
		{Name: "marked", Kind: KindObject, Object: openObject},
		{Name: "revision", Kind: KindObject, Object: openObject},
	}}
}

func revisionContract() *Object {
	return &Object{Fields: []Field{
		{Name: "SHA1", Kind: KindString, Format: FormatSHA1},
		{Name: "branch", Kind: KindArray, Elem: &Field{Kind: KindObject, Object: openObject}},
	}}
}

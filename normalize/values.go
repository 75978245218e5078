package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const zeroNumber = json.Number("0")

// numberField keeps the upstream number literal. Missing, null or non-numeric
// values become 0.
func numberField(entry map[string]any, key string) json.Number {
	switch typed := entry[key].(type) {
	case json.Number:
		return typed
	case float64:
		return json.Number(strconv.FormatFloat(typed, 'f', -1, 64))
	case int:
		return json.Number(strconv.Itoa(typed))
	case int64:
		return json.Number(strconv.FormatInt(typed, 10))
	default:
		return zeroNumber
	}
}

func stringField(entry map[string]any, key string) string {
	value, _ := entry[key].(string)
	return value
}

// identifierField accepts numeric identifiers as their literal text.
func identifierField(entry map[string]any, key string) string {
	switch typed := entry[key].(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return ""
	}
}

// enumField stringifies values of the wrong type so validation rejects them
// instead of silently losing them.
func enumField(entry map[string]any, key string) string {
	switch typed := entry[key].(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func nullableEnumField(entry map[string]any, key string) *string {
	if entry[key] == nil {
		return nil
	}
	value := enumField(entry, key)
	return &value
}

func nullableStringField(entry map[string]any, key string) *string {
	value, ok := entry[key].(string)
	if !ok {
		return nil
	}
	return &value
}

func boolField(entry map[string]any, key string) bool {
	value, _ := entry[key].(bool)
	return value
}

func objectField(entry map[string]any, key string) map[string]any {
	if value, ok := entry[key].(map[string]any); ok {
		return value
	}
	return map[string]any{}
}

// objectList keeps the object elements of a list in order.
func objectList(value any) []map[string]any {
	items, _ := value.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if object, ok := item.(map[string]any); ok {
			out = append(out, object)
		}
	}
	return out
}

// stringList stringifies non-string elements so URI validation reports them.
func stringList(value any) []string {
	items, _ := value.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch typed := item.(type) {
		case string:
			out = append(out, typed)
		case json.Number:
			out = append(out, typed.String())
		case nil:
			continue
		default:
			out = append(out, fmt.Sprint(typed))
		}
	}
	return out
}

package schema

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-buildhook/core"
)

// Validator implements core.RecordValidator over a fixed contract.
type Validator struct {
	contract Object
}

func NewValidator() *Validator {
	return NewValidatorWithContract(BuildRecordContract())
}

func NewValidatorWithContract(contract Object) *Validator {
	return &Validator{contract: contract}
}

// Validate converts the record to its untyped document form and validates it.
func (v *Validator) Validate(_ context.Context, record core.BuildRecord) ([]core.Violation, error) {
	doc, err := ToDocument(record)
	if err != nil {
		return nil, err
	}
	return v.ValidateDocument(doc), nil
}

// ValidateDocument returns every violation of doc in contract order. Unknown
// fields of strict objects follow the declared fields, sorted by name.
func (v *Validator) ValidateDocument(doc any) []core.Violation {
	var violations []core.Violation
	root := Field{Kind: KindObject, Required: true, Object: &v.contract}
	checkValue(&violations, "", doc, root)
	return violations
}

// ToDocument renders a value as the generic JSON shape the validator walks,
// keeping numbers as json.Number.
func ToDocument(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("schema: encode document: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decode document: %w", err)
	}
	return doc, nil
}

func report(violations *[]core.Violation, path string, format string, args ...any) {
	if path == "" {
		path = "/"
	}
	*violations = append(*violations, core.Violation{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func checkValue(violations *[]core.Violation, path string, value any, field Field) {
	if value == nil {
		if !field.Nullable {
			report(violations, path, "must be %s, got null", field.Kind)
		}
		return
	}

	switch field.Kind {
	case KindString:
		text, ok := value.(string)
		if !ok {
			report(violations, path, "must be %s", field.Kind)
			return
		}
		checkString(violations, path, text, field)
	case KindInteger, KindNumber:
		number, integral, ok := numeric(value)
		if !ok {
			report(violations, path, "must be %s", field.Kind)
			return
		}
		if field.Kind == KindInteger && !integral {
			report(violations, path, "must be an integer")
			return
		}
		if field.Min != nil && number < *field.Min {
			report(violations, path, "must be >= %s", formatBound(*field.Min))
		}
		if field.Max != nil && number > *field.Max {
			report(violations, path, "must be <= %s", formatBound(*field.Max))
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			report(violations, path, "must be %s", field.Kind)
		}
	case KindObject:
		object, ok := value.(map[string]any)
		if !ok {
			report(violations, path, "must be %s", field.Kind)
			return
		}
		if field.Object != nil {
			checkObject(violations, path, object, *field.Object)
		}
	case KindArray:
		items, ok := value.([]any)
		if !ok {
			report(violations, path, "must be %s", field.Kind)
			return
		}
		if field.Elem != nil {
			for i, item := range items {
				checkValue(violations, path+"/"+strconv.Itoa(i), item, *field.Elem)
			}
		}
	}
}

func checkObject(violations *[]core.Violation, path string, object map[string]any, contract Object) {
	known := make(map[string]struct{}, len(contract.Fields))
	for _, field := range contract.Fields {
		known[field.Name] = struct{}{}
		value, present := object[field.Name]
		if !present {
			if field.Required {
				report(violations, childPath(path, field.Name), "is required")
			}
			continue
		}
		checkValue(violations, childPath(path, field.Name), value, field)
	}

	var unknown []string
	for key := range object {
		if _, ok := known[key]; ok {
			continue
		}
		if contract.Strict {
			unknown = append(unknown, key)
			continue
		}
		if contract.Values != nil {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		if contract.Strict {
			report(violations, childPath(path, key), "is not allowed")
			continue
		}
		checkValue(violations, childPath(path, key), object[key], *contract.Values)
	}
}

func checkString(violations *[]core.Violation, path string, text string, field Field) {
	if field.Const != "" && text != field.Const {
		report(violations, path, "must be %q", field.Const)
		return
	}
	if field.NonEmpty && strings.TrimSpace(text) == "" {
		report(violations, path, "must not be empty")
		return
	}
	if len(field.Enum) > 0 && !slices.Contains(field.Enum, text) {
		allowed := strings.Join(field.Enum, ", ")
		if field.Nullable {
			report(violations, path, "must be null or one of [%s]", allowed)
		} else {
			report(violations, path, "must be one of [%s]", allowed)
		}
		return
	}
	switch field.Format {
	case FormatURI:
		if !isURI(text) {
			report(violations, path, "must be a valid URI")
		}
	case FormatSHA1:
		if !isSHA1(text) {
			report(violations, path, "must be a 40 character hex digest")
		}
	}
}

// numeric reports the value of a JSON number and whether it is integral.
func numeric(value any) (float64, bool, bool) {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return float64(i), true, true
		}
		f, err := typed.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false, false
		}
		return f, f == math.Trunc(f), true
	case float64:
		if math.IsInf(typed, 0) || math.IsNaN(typed) {
			return 0, false, false
		}
		return typed, typed == math.Trunc(typed), true
	case int:
		return float64(typed), true, true
	case int64:
		return float64(typed), true, true
	default:
		return 0, false, false
	}
}

func isURI(text string) bool {
	parsed, err := url.Parse(strings.TrimSpace(text))
	if err != nil || parsed.Scheme == "" {
		return false
	}
	return parsed.Host != "" || parsed.Opaque != "" || parsed.Path != ""
}

func isSHA1(text string) bool {
	if len(text) != 40 {
		return false
	}
	_, err := hex.DecodeString(text)
	return err == nil
}

func childPath(parent string, name string) string {
	name = strings.ReplaceAll(name, "~", "~0")
	name = strings.ReplaceAll(name, "/", "~1")
	return parent + "/" + name
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ core.RecordValidator = (*Validator)(nil)

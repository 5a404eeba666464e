package report

import (
	"encoding/json"
	"reflect"
	"strconv"
	"time"

	"github.com/teranos/jasper-mcp/errors"
)

// iso8601Millis renders times the way the execution endpoint expects:
// millisecond precision with the UTC designator.
const iso8601Millis = "2006-01-02T15:04:05.000Z07:00"

// TransformParameters coerces arbitrary parameter values into the shapes
// the remote execution endpoint accepts: strings and string arrays.
//
//   - string: unchanged
//   - number / bool: canonical string representation
//   - time.Time: ISO-8601 with millisecond precision, UTC
//   - slice: element-wise coercion, shape preserved as []string
//   - map / struct: compact JSON string
//   - nil: omitted from the output entirely
//
// The function is pure. It only fails when a value cannot be represented
// as JSON at all (e.g. a self-referential map), which the engine reports
// as an internal error.
func TransformParameters(params map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(params))
	for name, value := range params {
		if isNil(value) {
			continue
		}
		transformed, err := transformValue(value)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform parameter %q", name)
		}
		out[name] = transformed
	}
	return out, nil
}

// transformValue coerces one value: slices stay slices, everything else
// becomes a single string.
func transformValue(value any) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if isNil(elem) {
				continue
			}
			s, err := transformScalar(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
		return items, nil
	}
	return transformScalar(value)
}

// transformScalar coerces one non-slice value to its wire string.
func transformScalar(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case time.Time:
		return v.UTC().Format(iso8601Millis), nil
	case *time.Time:
		return v.UTC().Format(iso8601Millis), nil
	default:
		// Structured values (maps, structs, nested slices inside arrays)
		// serialize to a compact JSON string.
		raw, err := json.Marshal(v)
		if err != nil {
			return "", errors.Wrap(err, "value is not JSON-representable")
		}
		return string(raw), nil
	}
}

// isNil reports whether a value is nil, including typed nils behind
// interfaces (nil maps, slices, pointers).
func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

package egta

import (
	"fmt"
	"net/url"
	"reflect"
)

// encodeForm flattens a nested parameter structure into the bracket-path
// form encoding the service expects: {"a": {"b": {"c": 5}}} becomes
// a[b][c]=5. Nested maps must be map[string]any or map[string]string. Slices
// encode as repeated keys, nil values are dropped, and everything else
// renders with fmt.Sprint.
func encodeForm(params map[string]any) (url.Values, error) {
	values := url.Values{}
	for key, value := range params {
		if err := encodeFormValue(values, key, value); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func encodeFormValue(values url.Values, name string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		for key, inner := range v {
			if err := encodeFormValue(values, name+"["+key+"]", inner); err != nil {
				return err
			}
		}
		return nil
	case map[string]string:
		for key, inner := range v {
			values.Set(name+"["+key+"]", inner)
		}
		return nil
	case []string:
		for _, item := range v {
			values.Add(name, item)
		}
		return nil
	case []any:
		for _, item := range v {
			values.Add(name, fmt.Sprint(item))
		}
		return nil
	default:
		if reflect.ValueOf(value).Kind() == reflect.Map {
			return fmt.Errorf("form key %q: unsupported map type %T (use map[string]any or map[string]string)", name, value)
		}
		values.Set(name, fmt.Sprint(v))
		return nil
	}
}

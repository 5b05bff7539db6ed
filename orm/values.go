package orm

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// toSlice flattens any slice kind into []any for IN conditions.
func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		i, _ := strconv.ParseInt(string(n), 10, 64)
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

// normKey normalizes a key value for map grouping, so an int 1 written
// by the caller matches the int64 1 the driver returns.
func normKey(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case []byte:
		return string(n)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", n)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		// JSON round-trips integers as float64; render 1.0 as "1".
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// DateLayout is the calendar date format used for section deadlines.
const DateLayout = "2006-01-02"

// timeLayouts are the timestamp encodings accepted from backends.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", DateLayout}

// Row is one record as exchanged with a backend, keyed by column.
type Row map[Column]any

// String returns the value of c as a string, or "" when absent.
func (r Row) String(c Column) string {
	switch v := r[c].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(DateLayout)
	case nil:
		return ""
	default:
		return ""
	}
}

// Bool returns the value of c as a bool.
func (r Row) Bool(c Column) bool {
	switch v := r[c].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int returns the value of c as an int.
func (r Row) Int(c Column) int {
	switch v := r[c].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Time returns the value of c as a time. Strings are parsed as RFC 3339.
func (r Row) Time(c Column) time.Time {
	switch v := r[c].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

package exporter

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// TimeLayout is the canonical text form of timestamps in artifacts.
const TimeLayout = "2006-01-02T15:04:05Z07:00"

// FormatValue converts an entity value to its artifact text form. Every
// projected cell goes through here so the same value always renders the same
// way:
//
//   - nil, nil pointers and zero times render as ""
//   - times render as RFC 3339 in UTC
//   - floats use the shortest exact decimal form, never an exponent
//   - fmt.Stringer and error values (domain.Decimal among them) use String
//     or Error, whether the method is declared on the value or the pointer
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		// Keep the pointer when only it carries String or Error.
		if elem := rv.Elem().Interface(); hasText(elem) || !hasText(v) {
			v = elem
		}
	}

	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return formatTime(x)
	case bool:
		return formatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int8:
		return formatInt(int64(x))
	case int16:
		return formatInt(int64(x))
	case int32:
		return formatInt(int64(x))
	case int64:
		return formatInt(x)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return fmt.Sprint(v)
}

func hasText(v any) bool {
	switch v.(type) {
	case fmt.Stringer, error:
		return true
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

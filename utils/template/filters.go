package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func applyFilter(name string, val interface{}, args []interface{}) (interface{}, error) {
	switch name {
	case "default":
		if isBlank(val) {
			if len(args) > 0 {
				return args[0], nil
			}
			return "", nil
		}
		return val, nil
	case "snakecase":
		return snakeCase(toDisplayString(val)), nil
	case "upcase":
		return cases.Upper(language.Und).String(toDisplayString(val)), nil
	case "titlecase":
		return cases.Title(language.Und).String(toDisplayString(val)), nil
	case "escape":
		return htmlEscape(toDisplayString(val)), nil
	case "json":
		indent := ""
		if len(args) > 0 {
			if n, ok := asFloat(args[0]); ok {
				indent = strings.Repeat(" ", int(n))
			}
		}
		var b []byte
		var err error
		if indent != "" {
			b, err = json.MarshalIndent(unwrapUndefined(val), "", indent)
		} else {
			b, err = json.Marshal(unwrapUndefined(val))
		}
		if err != nil {
			return nil, &Error{Message: "json filter: " + err.Error()}
		}
		return string(b), nil
	case "date":
		format := "now"
		if len(args) > 0 {
			format = toDisplayString(args[0])
		}
		return formatDate(val, format), nil
	case "replace":
		if len(args) < 2 {
			return nil, &Error{Message: "replace filter requires 2 arguments"}
		}
		return strings.ReplaceAll(toDisplayString(val), toDisplayString(args[0]), toDisplayString(args[1])), nil
	case "split":
		sep := ","
		if len(args) > 0 {
			sep = toDisplayString(args[0])
		}
		parts := strings.Split(toDisplayString(val), sep)
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "last":
		return sliceEdge(val, false)
	case "first":
		return sliceEdge(val, true)
	case "map":
		if len(args) < 1 {
			return nil, &Error{Message: "map filter requires a field name argument"}
		}
		field := toDisplayString(args[0])
		items, ok := val.([]interface{})
		if !ok {
			return nil, &Error{Message: "map filter applied to a non-list value"}
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			v, _ := indexInto(item, field)
			out[i] = v
		}
		return out, nil
	case "join":
		sep := ""
		if len(args) > 0 {
			sep = toDisplayString(args[0])
		}
		items, ok := val.([]interface{})
		if !ok {
			return toDisplayString(val), nil
		}
		strs := make([]string, len(items))
		for i, item := range items {
			strs[i] = toDisplayString(item)
		}
		return strings.Join(strs, sep), nil
	case "size":
		return sizeOf(val), nil
	case "minus":
		return numericOp(val, args, func(a, b float64) float64 { return a - b })
	case "plus":
		return numericOp(val, args, func(a, b float64) float64 { return a + b })
	}
	return nil, &Error{Fragment: name, Message: "unknown filter"}
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case undefinedType:
		return true
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	}
	return false
}

func unwrapUndefined(v interface{}) interface{} {
	if _, ok := v.(undefinedType); ok {
		return nil
	}
	return v
}

func snakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (runes[i-1] != '_' && runes[i-1] != ' ' && runes[i-1] != '-') {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
			continue
		}
		if r == ' ' || r == '-' {
			sb.WriteByte('_')
			continue
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}

func formatDate(val interface{}, format string) string {
	var t time.Time
	if s, ok := val.(string); ok && s == "now" {
		t = time.Now()
	} else if s, ok := val.(string); ok {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			parsed = time.Now()
		}
		t = parsed
	} else {
		t = time.Now()
	}

	goFormat := strings.NewReplacer(
		"%Y", "2006",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
	).Replace(format)
	return t.Format(goFormat)
}

func sliceEdge(val interface{}, first bool) (interface{}, error) {
	switch v := val.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, nil
		}
		if first {
			return v[0], nil
		}
		return v[len(v)-1], nil
	case string:
		if v == "" {
			return "", nil
		}
		if first {
			return string([]rune(v)[0]), nil
		}
		r := []rune(v)
		return string(r[len(r)-1]), nil
	}
	return nil, &Error{Message: "first/last filter applied to an unsupported value"}
}

func sizeOf(val interface{}) int {
	switch v := val.(type) {
	case []interface{}:
		return len(v)
	case map[string]interface{}:
		return len(v)
	case string:
		return len([]rune(v))
	}
	return 0
}

func numericOp(val interface{}, args []interface{}, op func(a, b float64) float64) (interface{}, error) {
	a, ok := asFloat(val)
	if !ok {
		if s, ok2 := val.(string); ok2 {
			parsed, err := strconv.ParseFloat(s, 64)
			if err == nil {
				a = parsed
				ok = true
			}
		}
	}
	if !ok {
		return nil, &Error{Message: "arithmetic filter applied to a non-numeric value"}
	}
	if len(args) < 1 {
		return nil, &Error{Message: "arithmetic filter requires one argument"}
	}
	b, ok := asFloat(args[0])
	if !ok {
		return nil, &Error{Message: "arithmetic filter argument is not numeric"}
	}
	return op(a, b), nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toDisplayString coerces any context value to the string form used for
// plain substitution, per spec §4.C1 ("Non-string context values are
// coerced to strings for substitution").
func toDisplayString(v interface{}) string {
	switch t := v.(type) {
	case undefinedType:
		return ""
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(t)
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = toDisplayString(item)
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

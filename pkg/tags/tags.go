// Package tags implements {{tag}} extraction, dotted-path resolution and value transforms
// used to render templates and document names.
package tags

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var tagPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Extract returns the unique raw tag contents found in text, sorted.
// The content is returned as written so callers can rebuild the literal token.
func Extract(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	found := make([]string, 0, len(matches))

	for _, match := range matches {
		if _, ok := seen[match[1]]; ok {
			continue
		}

		seen[match[1]] = struct{}{}
		found = append(found, match[1])
	}

	slices.Sort(found)

	return found
}

// Token returns the literal placeholder for a raw tag content.
func Token(raw string) string {
	return "{{" + raw + "}}"
}

// Resolve walks a dotted path through nested maps. The second result is false when
// any segment is missing or the value at that point cannot be traversed.
func Resolve(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = data

	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func child(value any, key string) (any, bool) {
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[key]

		return v, ok
	case map[string]string:
		v, ok := m[key]

		return v, ok
	default:
		return nil, false
	}
}

// Render replaces every tag in text with its resolved value. mappings renames a tag
// to the data path it reads; unmapped tags resolve by their own name.
func Render(text string, data map[string]any, mappings map[string]string) string {
	return tagPattern.ReplaceAllStringFunc(text, func(token string) string {
		tag := strings.TrimSpace(token[2 : len(token)-2])

		field := tag
		if mapped, ok := mappings[tag]; ok && mapped != "" {
			field = mapped
		}

		value, ok := Resolve(data, field)
		if !ok {
			return ""
		}

		return Stringify(value)
	})
}

// Stringify converts a resolved value into its textual form. nil becomes "".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(raw)
	default:
		return fmt.Sprint(v)
	}
}

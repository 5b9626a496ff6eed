package tags

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Transform kinds accepted by ApplyTransform.
const (
	TransformUppercase    = "uppercase"
	TransformLowercase    = "lowercase"
	TransformCapitalize   = "capitalize"
	TransformDateFormat   = "date_format"
	TransformNumberFormat = "number_format"
	TransformCurrency     = "currency"
)

const (
	defaultDatePattern    = "dd/MM/yyyy"
	defaultDecimals       = 2
	defaultCurrencySymbol = "R$"
)

// KnownTransform reports whether kind names a supported transform. An empty kind is valid.
func KnownTransform(kind string) bool {
	switch kind {
	case "", TransformUppercase, TransformLowercase, TransformCapitalize,
		TransformDateFormat, TransformNumberFormat, TransformCurrency:
		return true
	default:
		return false
	}
}

// ApplyTransform formats value according to kind. It never fails: nil yields "",
// unparseable input falls back to the plain string and unknown kinds are ignored.
func ApplyTransform(value any, kind string, config map[string]any) string {
	if value == nil {
		return ""
	}

	plain := Stringify(value)

	switch kind {
	case TransformUppercase:
		return strings.ToUpper(plain)
	case TransformLowercase:
		return strings.ToLower(plain)
	case TransformCapitalize:
		return capitalize(plain)
	case TransformDateFormat:
		return formatDate(value, plain, configString(config, "format", defaultDatePattern))
	case TransformNumberFormat:
		number, ok := toFloat(value)
		if !ok {
			return plain
		}

		return formatNumber(number, configInt(config, "decimals", defaultDecimals))
	case TransformCurrency:
		number, ok := toFloat(value)
		if !ok {
			return plain
		}

		symbol := configString(config, "symbol", defaultCurrencySymbol)

		return symbol + " " + formatNumber(number, configInt(config, "decimals", defaultDecimals))
	default:
		return plain
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	first, size := utf8.DecodeRuneInString(s)

	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

var inputDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func formatDate(value any, plain, pattern string) string {
	layout := dateLayout(pattern)

	if t, ok := value.(time.Time); ok {
		return t.Format(layout)
	}

	if _, ok := value.(string); !ok {
		return plain
	}

	for _, candidate := range inputDateLayouts {
		if t, err := time.Parse(candidate, plain); err == nil {
			return t.Format(layout)
		}
	}

	return plain
}

// dateLayout converts a pattern written with either yyyy/MM/dd tokens or strftime
// directives into a Go reference layout.
var dateTokens = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MMMM", "January",
	"MMM", "Jan",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"%Y", "2006",
	"%y", "06",
	"%B", "January",
	"%b", "Jan",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%A", "Monday",
	"%a", "Mon",
	"%%", "%",
)

func dateLayout(pattern string) string {
	return dateTokens.Replace(pattern)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// formatNumber renders n with fixed decimals and comma thousands separators.
func formatNumber(n float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}

	fixed := strconv.FormatFloat(math.Abs(n), 'f', decimals, 64)

	integer, fraction, hasFraction := strings.Cut(fixed, ".")

	var b strings.Builder

	if n < 0 {
		b.WriteByte('-')
	}

	for i, digit := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			b.WriteByte(',')
		}

		b.WriteRune(digit)
	}

	if hasFraction {
		b.WriteByte('.')
		b.WriteString(fraction)
	}

	return b.String()
}

func configString(config map[string]any, key, fallback string) string {
	if s, ok := config[key].(string); ok && s != "" {
		return s
	}

	return fallback
}

func configInt(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

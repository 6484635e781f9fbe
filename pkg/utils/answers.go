package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tokenSeparators = regexp.MustCompile(`[\s_/]+`)

// NormalizeToken lowercases a selection value and joins its words with hyphens
// so "Weight Loss", "weight_loss" and "weight-loss" compare equal.
func NormalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = tokenSeparators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// AsString renders a scalar answer as text. Lists are joined with ", ".
func AsString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := AsString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// AsStringSlice returns the items of a list-valued answer. The boolean is false
// when v is not a list; scalar strings are NOT split.
func AsStringSlice(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, AsString(item))
		}
		return out, true
	default:
		return nil, false
	}
}

// AsFloat parses numeric answers, including numbers sent as strings ("180", "180 lb").
func AsFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		fields := strings.Fields(strings.TrimSpace(val))
		if len(fields) == 0 {
			return 0, false
		}
		f, err := strconv.ParseFloat(fields[0], 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ContainsAnyToken reports whether any normalized item is in the token set.
func ContainsAnyToken(items []string, tokens map[string]struct{}) bool {
	for _, item := range items {
		if _, ok := tokens[NormalizeToken(item)]; ok {
			return true
		}
	}
	return false
}

// TokenSet builds a lookup set of normalized tokens.
func TokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[NormalizeToken(t)] = struct{}{}
	}
	return set
}

// Truncate caps s at max runes, appending "..." when it was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

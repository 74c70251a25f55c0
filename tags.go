package guesswhat

import (
	"encoding/json"
	"strings"
)

// NormalizeTags turns a decoded tags value into a trimmed list. Tags were
// historically stored either as one comma separated string or as a list, so
// both are accepted. Any other shape means no tags and yields nil.
func NormalizeTags(v any) []string {
	switch t := v.(type) {
	case string:
		return trimAll(strings.Split(t, ","))
	case []string:
		return trimAll(t)
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return trimAll(out)
	default:
		return nil
	}
}

// DecodeTags normalizes a raw JSON tags column.
func DecodeTags(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	return NormalizeTags(v)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}

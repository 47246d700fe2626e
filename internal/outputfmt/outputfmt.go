package outputfmt

import (
	"encoding/json"
	"strings"
)

// NormalizeText cleans model output for delivery: it unwraps a JSON string
// literal and decodes escaped newlines when the whole answer arrived escaped.
func NormalizeText(raw string) string {
	return normalizeFinalStringOutput(raw)
}

func normalizeFinalStringOutput(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if decoded, ok := decodeJSONStringLiteral(s); ok {
		s = strings.TrimSpace(decoded)
	}

	if shouldDecodeEscapedMultiline(s) {
		s = strings.TrimSpace(decodeEscapedMultiline(s))
	}
	return s
}

func decodeJSONStringLiteral(s string) (string, bool) {
	if len(s) < 2 || !strings.HasPrefix(s, "\"") || !strings.HasSuffix(s, "\"") {
		return "", false
	}
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return "", false
	}
	return out, true
}

func shouldDecodeEscapedMultiline(s string) bool {
	if !strings.Contains(s, `\`) {
		return false
	}
	escapedNewlines := strings.Count(s, `\n`) + strings.Count(s, `\r`)
	if escapedNewlines >= 2 && !strings.ContainsAny(s, "\n\r") {
		return true
	}
	if escapedNewlines >= 3 {
		return true
	}
	return false
}

func decodeEscapedMultiline(s string) string {
	replacer := strings.NewReplacer(
		`\r\n`, "\n",
		`\n`, "\n",
		`\r`, "\n",
	)
	return replacer.Replace(s)
}

package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Extract coerces raw model output into a JSON object containing at least
// one of requiredKeys. Strategies are tried in order until one produces a
// parse; nil means the output is unusable and the caller must treat the
// generation as failed rather than salvage a partial structure.
func Extract(raw string, requiredKeys []string) json.RawMessage {
	trimmed := strings.TrimSpace(raw)

	if obj, ok := parseObject(trimmed, requiredKeys); ok {
		return obj
	}

	stripped := stripWrappers(trimmed)
	if obj, ok := parseObject(stripped, requiredKeys); ok {
		return obj
	}

	if candidate, ok := largestBalancedObject(stripped, requiredKeys); ok {
		if obj, ok := parseObject(candidate, requiredKeys); ok {
			return obj
		}
		// Strategy 4 also applies to the best balanced candidate.
		if obj, ok := parseObject(repairSyntax(candidate), requiredKeys); ok {
			return obj
		}
	}

	if obj, ok := parseObject(repairSyntax(stripped), requiredKeys); ok {
		return obj
	}

	return nil
}

// parseObject parses s as a JSON object and checks that at least one
// required key is present.
func parseObject(s string, requiredKeys []string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	if len(requiredKeys) == 0 {
		return json.RawMessage(s), true
	}
	for _, k := range requiredKeys {
		if _, ok := m[k]; ok {
			return json.RawMessage(s), true
		}
	}
	return nil, false
}

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```")
	// "Here is the JSON:" style lead-ins before the first brace.
	leadInRe = regexp.MustCompile(`(?si)\A[^{\x60]{0,200}?:\s*`)
)

// stripWrappers removes code fences and short prose lead-ins that models
// habitually wrap structured output in.
func stripWrappers(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if idx := strings.Index(s, "{"); idx > 0 {
		prefix := s[:idx]
		if leadInRe.MatchString(prefix) || strings.TrimSpace(prefix) == "" || len(prefix) < 200 {
			return strings.TrimSpace(s[idx:])
		}
	}
	return s
}

// largestBalancedObject scans s for balanced brace-delimited substrings and
// returns the longest one mentioning a required key. String literals are
// honored so braces inside values do not confuse the balance count.
func largestBalancedObject(s string, requiredKeys []string) (string, bool) {
	type span struct{ start, end int }
	var spans []span
	var stack []int

	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) > 0 {
				start := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				spans = append(spans, span{start, i + 1})
			}
		}
	}

	best := ""
	for _, sp := range spans {
		candidate := s[sp.start:sp.end]
		if len(candidate) <= len(best) {
			continue
		}
		if containsRequiredKey(candidate, requiredKeys) {
			best = candidate
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func containsRequiredKey(s string, requiredKeys []string) bool {
	if len(requiredKeys) == 0 {
		return true
	}
	for _, k := range requiredKeys {
		if strings.Contains(s, `"`+k+`"`) || strings.Contains(s, `'`+k+`'`) {
			return true
		}
	}
	return false
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	singleQuoteKey  = regexp.MustCompile(`'([^'\\]*)'(\s*:)`)
	singleQuoteVal  = regexp.MustCompile(`(:\s*)'([^'\\]*)'`)
)

// repairSyntax applies conservative fixes to near-JSON: trailing separators
// before closing brackets are dropped and single-quoted keys/values are
// rewritten with double quotes.
func repairSyntax(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = singleQuoteKey.ReplaceAllString(s, `"$1"$2`)
	s = singleQuoteVal.ReplaceAllString(s, `$1"$2"`)
	return s
}

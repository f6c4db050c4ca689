package enrichment

import "strings"

// stripCodeFences removes markdown code-fence wrappers that providers often
// put around JSON payloads.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first top-level {...} span in s, matching from
// the first opening brace to the last closing brace. Providers wrap JSON in
// prose and fences, so this is deliberately loose; the caller still runs a
// real JSON parse on the result.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// extractJSONArray returns the first [...] span in s, matching lazily to the
// first closing bracket after the opening one.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	end := strings.Index(s[start:], "]")
	if end < 0 {
		return ""
	}
	return s[start : start+end+1]
}

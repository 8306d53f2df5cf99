package vision

import (
	"encoding/json"
	"strings"
)

// Model output rarely arrives as clean JSON: it shows up wrapped in markdown
// fences, surrounded by prose, or with trailing commentary. ExtractJSON runs
// an ordered cascade of extraction strategies and returns the first candidate
// that parses as a JSON object.
//
// Strategies, in order:
//  1. the whole text, after stripping markdown code fences
//  2. the substring between the first '{' and the last '}'
//  3. a balanced-brace scan from each '{' (handles trailing garbage
//     after the object and braces inside string literals)
func ExtractJSON(text string) (json.RawMessage, bool) {
	for _, candidate := range []func(string) string{
		stripFences,
		outermostBraces,
		balancedScan,
	} {
		if c := candidate(text); c != "" && validObject(c) {
			return json.RawMessage(c), true
		}
	}
	return nil, false
}

func validObject(s string) bool {
	var m map[string]any
	return json.Unmarshal([]byte(s), &m) == nil
}

// stripFences removes ```json ... ``` (or bare ```) fences and returns the
// trimmed remainder.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// outermostBraces returns the substring spanning the first '{' through the
// last '}' of the text.
func outermostBraces(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// balancedScan walks the text from each opening brace, tracking brace depth
// and string literals, and returns the first balanced object found.
func balancedScan(text string) string {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = inString
			case '"':
				inString = !inString
			case '{':
				if !inString {
					depth++
				}
			case '}':
				if !inString {
					depth--
					if depth == 0 {
						return text[start : i+1]
					}
				}
			}
		}
	}
	return ""
}

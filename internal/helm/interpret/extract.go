package interpret

import "strings"

// extractObject returns the first balanced top-level JSON object in s.
// Models frequently wrap their JSON in prose or markdown fences; scanning
// for the first balanced {...} recovers the payload without caring what
// surrounds it. Braces inside JSON strings (including escaped quotes) are
// ignored.
//
// Returns the empty string when no balanced object is found.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}

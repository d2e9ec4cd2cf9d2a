package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the result at maxLen
// runes. Truncation respects rune boundaries so multi-byte input is never
// split mid-character. A maxLen of zero disables the cap.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 {
		runes := []rune(trimmed)
		if len(runes) > maxLen {
			return string(runes[:maxLen])
		}
	}
	return trimmed
}

package strategy

import "strings"

// Normalize prepares judge output for comparison: CRLF to LF, trim, runs of
// whitespace collapsed to a single space, case-folded. Judge output often has
// trailing newlines and platform line endings that are not part of the
// intended answer.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// missingSubstrings returns the needles that do not occur verbatim in the
// haystack, preserving input order.
func missingSubstrings(haystack string, needles []string) []string {
	var missing []string
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if !strings.Contains(haystack, needle) {
			missing = append(missing, needle)
		}
	}
	return missing
}

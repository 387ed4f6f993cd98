package document

import "strings"

// InsertLineSpacing inserts one blank line between every pair of adjacent
// non-blank lines. Statement PDFs collapse transaction rows onto adjacent
// lines; the extra spacing keeps the extraction service from merging them.
// Callers must run this exactly once per extraction.
func InsertLineSpacing(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, 2*len(lines))
	for i, line := range lines {
		out = append(out, line)
		if i+1 < len(lines) &&
			strings.TrimSpace(line) != "" &&
			strings.TrimSpace(lines[i+1]) != "" {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

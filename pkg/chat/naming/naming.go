// Package naming derives a session title from uploaded files or the first answer.
package naming

import (
	"strings"

	"github.com/rivo/uniseg"
)

const (
	MaxNameLength         = 30
	DocumentAnalysisLabel = "Document Analysis"
	Ellipsis              = "..."
)

var placeholderPrefixes = []string{"chat ", "new conversation"}

// IsUnnamed reports whether name is empty or a default placeholder. The bare
// analysis label only counts as unnamed for a single-file turn, which can
// replace it with the file name.
func IsUnnamed(name string, fileCount int) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	if fileCount == 1 && n == strings.ToLower(DocumentAnalysisLabel) {
		return true
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	return false
}

// PreSummary names the session while a single uploaded file is being
// summarized. ok is false unless exactly one file was uploaded.
func PreSummary(files []string) (string, bool) {
	if len(files) != 1 {
		return "", false
	}
	file := strings.TrimSpace(files[0])
	if file == "" {
		return "", false
	}
	return DocumentAnalysisLabel + " " + truncate(file, MaxNameLength-len(Ellipsis)), true
}

// PostSummary picks the file name, then the first line of the answer, then
// the generic label.
func PostSummary(files []string, aiContent string) string {
	if len(files) == 1 {
		if file := strings.TrimSpace(files[0]); file != "" {
			return truncate(file, MaxNameLength)
		}
	}
	if line := firstLine(aiContent); line != "" {
		return truncate(line, MaxNameLength)
	}
	return DocumentAnalysisLabel
}

// truncate keeps the first keep graphemes and appends an ellipsis when s is
// longer than MaxNameLength graphemes.
func truncate(s string, keep int) string {
	if uniseg.GraphemeClusterCount(s) <= MaxNameLength {
		return s
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < keep && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	return b.String() + Ellipsis
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

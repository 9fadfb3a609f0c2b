package textextract

import (
	"regexp"
	"strings"
)

const paragraphMark = "\x00"

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order. Paragraph boundaries are marked first, then remaining
// line breaks are joined.
var paragraphRules = []rewrite{
	{regexp.MustCompile(`([.?!])\n\n([A-Z])`), "${1}" + paragraphMark + "${2}"},
	{regexp.MustCompile(`\n\n\n\n([a-z]+)`), paragraphMark + "${1}"},
	{regexp.MustCompile(`([A-Za-z]+)-\n\n`), "${1}" + paragraphMark},
	{regexp.MustCompile(`\s\n\n`), paragraphMark},
	{regexp.MustCompile(`\n\n\n\n`), paragraphMark},
	{regexp.MustCompile(`\n\n`), " "},
	{regexp.MustCompile(`-\n`), ""},
	{regexp.MustCompile(`\n`), " "},
	{regexp.MustCompile(`\t`), " "},
	{regexp.MustCompile(` {2,}`), " "},
	{regexp.MustCompile(`\x{E060}`), "INFINITY"},
}

// MakeParagraphs splits extracted document text into paragraphs. Empty
// paragraphs are dropped and each paragraph is trimmed.
func MakeParagraphs(document string) []string {
	clean := strings.ReplaceAll(document, "\r\n", "\n")
	for _, r := range paragraphRules {
		clean = r.re.ReplaceAllString(clean, r.repl)
	}
	parts := strings.Split(clean, paragraphMark)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

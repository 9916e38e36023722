// Package text turns scraped government pages into plain text suitable for
// prompting. The cleaning is heuristic: strip everything that is markup or
// site furniture, keep the prose.
package text

import (
	"regexp"
	"strings"
)

var (
	scriptRe   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe    = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	noscriptRe = regexp.MustCompile(`(?is)<noscript\b[^>]*>.*?</noscript>`)
	commentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	// Site furniture: navigation, headers, footers, asides.
	furnitureRe = regexp.MustCompile(`(?is)<(nav|header|footer|aside)\b[^>]*>.*?</(?:nav|header|footer|aside)>`)
	blockTagRe  = regexp.MustCompile(`(?i)</?(p|div|br|li|ul|ol|tr|td|th|table|h[1-6]|section|article|blockquote)\b[^>]*>`)
	tagRe       = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe     = regexp.MustCompile(`[ \t\r\f]+`)
	blankRe     = regexp.MustCompile(`\n{3,}`)
)

var entities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&ndash;", "-",
	"&mdash;", "-",
)

// CleanHTML strips scripts, styles, navigation and all remaining markup from
// an HTML document and collapses whitespace, returning readable plain text.
func CleanHTML(html string) string {
	s := scriptRe.ReplaceAllString(html, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = noscriptRe.ReplaceAllString(s, " ")
	s = commentRe.ReplaceAllString(s, " ")
	s = furnitureRe.ReplaceAllString(s, " ")

	// Block-level tags become newlines so paragraphs stay separated once
	// the remaining tags are dropped.
	s = blockTagRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")

	s = entities.Replace(s)

	s = spaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// Truncate cuts s to at most max bytes, preferring to break at a word
// boundary near the limit. max <= 0 means no limit.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

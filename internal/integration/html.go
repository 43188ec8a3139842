package integration

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptStyleTagPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagPattern        = regexp.MustCompile(`(?is)<[^>]+>`)
	blockBreakPattern     = regexp.MustCompile(`(?i)</(p|div|br|li|tr)\s*/?>`)
	whitespaceRunPattern  = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLineRunPattern   = regexp.MustCompile(`\n{3,}`)
)

// stripHTML removes script/style blocks and tags, converts common block
// boundaries into newlines, and unescapes entities, leaving plain text.
func stripHTML(s string) string {
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}
	s = scriptStyleTagPattern.ReplaceAllString(s, "")
	s = blockBreakPattern.ReplaceAllString(s, "\n")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return s
}

// normalizeText collapses runs of horizontal whitespace and excess blank
// lines, and trims the result.
func normalizeText(s string) string {
	s = whitespaceRunPattern.ReplaceAllString(s, " ")
	s = blankLineRunPattern.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

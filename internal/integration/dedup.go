package integration

import (
	"regexp"
	"strings"
)

// quotedLinePattern matches a classic ">"-prefixed quoted reply line.
var quotedLinePattern = regexp.MustCompile(`(?m)^\s*>.*$`)

// quoteHeaderPattern matches the "On <date>, <name> wrote:" style header
// mail clients prepend to a quoted block, in both English and the Korean
// equivalent ("... 님이 작성:").
var quoteHeaderPattern = regexp.MustCompile(`(?im)^(On .+ wrote:|.+님이 작성:)\s*$`)

// signatureMarkerPattern matches common signature-block delimiters.
var signatureMarkerPattern = regexp.MustCompile(`(?m)^(--\s*$|Best regards,?$|감사합니다\.?$|Sent from my .+)`)

// dedupeSignaturesAndQuotes strips quoted-reply blocks and repeated
// signature boilerplate from each message, then removes any message that
// becomes a byte-for-byte duplicate of an earlier one (common when a
// platform includes the same canned footer on every reply).
func dedupeSignaturesAndQuotes(messages []string) []string {
	seen := make(map[string]struct{}, len(messages))
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		cleaned := cleanMessage(m)
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

func cleanMessage(m string) string {
	m = quoteHeaderPattern.ReplaceAllString(m, "")
	m = quotedLinePattern.ReplaceAllString(m, "")
	if loc := signatureMarkerPattern.FindStringIndex(m); loc != nil {
		m = m[:loc[0]]
	}
	return strings.TrimSpace(m)
}

package summarize

import (
	"regexp"
	"sort"
	"strings"
)

// LargeScaleThreshold is the dataset size (object count) at which the
// summarizer switches into large-scale mode (§4.5 "datasets over a
// configurable size, default 1000 objects").
const LargeScaleThreshold = 1000

var sentenceSplit = regexp.MustCompile(`(?:[.!?]|다\.|요\.|습니다\.)\s+`)

// resolutionVerbs is a small list of verbs/phrases whose presence in a
// sentence suggests it describes how an issue was fixed — one of the
// importance signals §4.5 names explicitly.
var resolutionVerbs = []string{
	"fixed", "resolved", "solved", "workaround", "updated", "restarted",
	"해결", "수정", "조치", "재시작",
}

// CompressForLargeScale selects the most important sentences from body,
// scored by keyword overlap with subject, presence of a resolution verb,
// and a penalty for length, and concatenates them until budget (characters)
// is reached. Order of selected sentences is preserved from the original
// text, not sorted by score, so the compressed output still reads linearly.
func CompressForLargeScale(subject, body string, budget int) string {
	if len(body) <= budget {
		return body
	}

	sentences := sentenceSplit.Split(body, -1)
	subjectWords := keywordSet(subject)

	type scored struct {
		index int
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		ranked = append(ranked, scored{index: i, text: s, score: importance(s, subjectWords)})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	selected := make(map[int]bool)
	total := 0
	for _, r := range ranked {
		if total+len(r.text) > budget {
			continue
		}
		selected[r.index] = true
		total += len(r.text)
	}

	var out strings.Builder
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" || !selected[i] {
			continue
		}
		out.WriteString(s)
		out.WriteString(". ")
	}
	return strings.TrimSpace(out.String())
}

func importance(sentence string, subjectWords map[string]struct{}) float64 {
	words := strings.Fields(strings.ToLower(sentence))
	overlap := 0
	for _, w := range words {
		if _, ok := subjectWords[w]; ok {
			overlap++
		}
	}

	hasResolution := 0.0
	lower := strings.ToLower(sentence)
	for _, v := range resolutionVerbs {
		if strings.Contains(lower, v) {
			hasResolution = 1.0
			break
		}
	}

	lengthPenalty := float64(len(words)) / 50.0
	if lengthPenalty > 1 {
		lengthPenalty = 1
	}

	return float64(overlap)*1.0 + hasResolution*2.0 - lengthPenalty*0.5
}

func keywordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

package summarize

import (
	"strings"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// hedgingPhrases is a deliberately small, language-specific list of
// speculation markers — the summarizer's anti-hallucination clauses forbid
// the model from guessing, so these phrases are exactly the tell.
func hedgingPhrases(lang domain.Language) []string {
	switch lang {
	case domain.LanguageKorean:
		return []string{"아마도", "것으로 보입니다", "추측", "것 같습니다", "아닐까", "듯합니다"}
	case domain.LanguageJapanese:
		return []string{"おそらく", "と思われます", "かもしれません", "推測"}
	case domain.LanguageChinese:
		return []string{"可能", "大概", "也许", "推测"}
	default:
		return []string{"probably", "it seems", "might be", "presumably", "i believe", "likely", "perhaps", "may have"}
	}
}

// speculationDensity is the fraction of words that are hedging-phrase
// occurrences, checked against domain.SpeculationDensityThreshold.
func speculationDensity(text string, lang domain.Language) float64 {
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	count := 0
	for _, phrase := range hedgingPhrases(lang) {
		count += strings.Count(lower, strings.ToLower(phrase))
	}

	return float64(count) / float64(len(words))
}

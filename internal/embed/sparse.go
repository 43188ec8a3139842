package embed

import (
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/wedosoft/ticketrag/internal/domain"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// defaultStopwords is a small, deliberately minimal per-language stopword
// set — enough to keep the sparse vector from being dominated by function
// words, not a linguistic resource in its own right.
func defaultStopwords() map[domain.Language]map[string]struct{} {
	toSet := func(words ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			m[w] = struct{}{}
		}
		return m
	}
	return map[domain.Language]map[string]struct{}{
		domain.LanguageEnglish: toSet("the", "a", "an", "is", "are", "was", "were", "to", "of", "and", "or", "in", "on", "for", "with", "this", "that", "it"),
		domain.LanguageKorean:  toSet("이", "그", "저", "의", "은", "는", "이다", "을", "를", "에", "에서", "으로", "하다", "합니다"),
		domain.LanguageJapanese: toSet("の", "は", "を", "に", "へ", "と", "が", "です", "ます", "この", "その"),
		domain.LanguageChinese: toSet("的", "了", "是", "在", "和", "与", "这", "那", "你", "我"),
	}
}

// sparseVector tokenizes text and computes raw term frequencies as a
// term_id -> weight map, term ids derived by hashing the token so the
// vector is shared across texts without a growing vocabulary table.
func (e *Embedder) sparseVector(text string, lang domain.Language) domain.SparseVector {
	stop := e.stopwords[lang]
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[uint32]float32, len(tokens))
	for _, tok := range tokens {
		if stop != nil {
			if _, skip := stop[tok]; skip {
				continue
			}
		}
		counts[termID(tok)]++
	}
	if len(counts) == 0 {
		return nil
	}
	return domain.SparseVector(counts)
}

func termID(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

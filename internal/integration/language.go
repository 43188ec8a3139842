package integration

import "github.com/wedosoft/ticketrag/internal/domain"

// DetectLanguage classifies text by Unicode-block ratios: Hangul ≥ 10% →
// ko; Kana ≥ 10% → ja; CJK Unified ≥ 10% (with no Hangul/Kana) → zh;
// Latin ≥ 50% → en; otherwise ko as the conservative default.
func DetectLanguage(text string) domain.Language {
	var hangul, kana, cjk, latin, total int

	for _, r := range text {
		switch {
		case isHangul(r):
			hangul++
			total++
		case isKana(r):
			kana++
			total++
		case isCJKUnified(r):
			cjk++
			total++
		case isLatin(r):
			latin++
			total++
		}
	}

	if total == 0 {
		return domain.LanguageKorean
	}

	ratio := func(n int) float64 { return float64(n) / float64(total) }

	switch {
	case ratio(hangul) >= 0.10:
		return domain.LanguageKorean
	case ratio(kana) >= 0.10:
		return domain.LanguageJapanese
	case ratio(cjk) >= 0.10 && hangul == 0 && kana == 0:
		return domain.LanguageChinese
	case ratio(latin) >= 0.50:
		return domain.LanguageEnglish
	default:
		return domain.LanguageKorean
	}
}

func isHangul(r rune) bool {
	return (r >= 0xAC00 && r <= 0xD7A3) || // Hangul Syllables
		(r >= 0x1100 && r <= 0x11FF) || // Hangul Jamo
		(r >= 0x3130 && r <= 0x318F) // Hangul Compatibility Jamo
}

func isKana(r rune) bool {
	return (r >= 0x3040 && r <= 0x309F) || // Hiragana
		(r >= 0x30A0 && r <= 0x30FF) // Katakana
}

func isCJKUnified(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isLatin(r rune) bool {
	return (r >= 0x0041 && r <= 0x005A) || (r >= 0x0061 && r <= 0x007A)
}

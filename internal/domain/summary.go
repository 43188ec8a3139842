package domain

import "time"

// SummaryType distinguishes a cheap realtime summary from a batch one;
// templates and LLM use-case selection are both keyed partly on this.
type SummaryType string

const (
	SummaryTypeRealtime SummaryType = "realtime"
	SummaryTypeBatch    SummaryType = "batch"
)

// SectionName is one of the four fixed section headings every summary must
// contain, in this order.
type SectionName string

const (
	SectionProblem    SectionName = "Problem"
	SectionRootCause  SectionName = "Root Cause"
	SectionResolution SectionName = "Resolution"
	SectionInsights   SectionName = "Insights"
)

// SectionOrder is the canonical, required ordering validated by the
// summarizer's structure check.
var SectionOrder = []SectionName{SectionProblem, SectionRootCause, SectionResolution, SectionInsights}

// Summary is the structured output of the summarizer, bound to an
// integrated object by (tenant_id, platform, original_id, summary_type).
type Summary struct {
	TenantID    TenantID
	Platform    Platform
	OriginalID  string
	SummaryType SummaryType

	Sections map[SectionName]string
	FullText string

	ModelID          string
	InputTokens      int
	OutputTokens     int
	GenerationTime   time.Duration
	Language         Language
	QualityScore     float64
	QualityFlag      string // "" or "low"
	RegeneratedOnce  bool
	CreatedAt        time.Time
}

// HasAllSections reports whether every required section heading is present
// and non-empty. Order is verified by the caller
// scanning FullText; this only checks presence/non-emptiness of content.
func (s *Summary) HasAllSections() bool {
	for _, name := range SectionOrder {
		if text, ok := s.Sections[name]; !ok || text == "" {
			return false
		}
	}
	return true
}

// QualityBelowThreshold is the 0.7 cutoff below which the summarizer
// retries once before flagging the result low-quality.
const QualityBelowThreshold = 0.7

// SpeculationDensityThreshold is the hedging-phrase density above which the
// summarizer regenerates once with a stricter prompt and lower temperature.
const SpeculationDensityThreshold = 0.3

// MinSummaryLength and MaxSummaryLength bound the validated output size in
// characters.
const (
	MinSummaryLength = 200
	MaxSummaryLength = 2000
)

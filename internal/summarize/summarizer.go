package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// StricterTemperature is the temperature a regeneration attempt uses when
// the first pass exceeded the speculation threshold (§4.5 "regeneration
// once with a stricter prompt and lower temperature").
const StricterTemperature = 0.1

// LargeScaleCharBudget is the target character budget large-scale mode
// compresses an object's body text to before prompting.
const LargeScaleCharBudget = 4000

// GenerateFunc performs one LLM call for a given use case. Bound to
// llmrouter.Router.Generate by the caller; kept as a function type so this
// package doesn't import llmrouter directly (mirrors internal/embed's
// EmbedFunc).
type GenerateFunc func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (text string, inputTokens, outputTokens int, err error)

// Summarizer is C5.
type Summarizer struct {
	templates        *Store
	generate         GenerateFunc
	logger           *slog.Logger
	largeScaleAbove  int
}

// New builds a Summarizer. largeScaleThreshold of 0 uses LargeScaleThreshold.
func New(templates *Store, generate GenerateFunc, largeScaleThreshold int, logger *slog.Logger) *Summarizer {
	if largeScaleThreshold == 0 {
		largeScaleThreshold = LargeScaleThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{templates: templates, generate: generate, largeScaleAbove: largeScaleThreshold, logger: logger}
}

// Summarize produces a validated, quality-scored Summary for obj.
// datasetSize is the number of objects in the current ingest batch, used to
// decide whether to enter large-scale mode; pass 0 for ad hoc (e.g.
// realtime) calls outside a batch ingest.
func (s *Summarizer) Summarize(ctx context.Context, obj domain.IntegratedObject, summaryType domain.SummaryType, datasetSize int) (domain.Summary, error) {
	tmpl, err := s.templates.Lookup(Key{ObjectType: obj.ObjectType, SummaryType: summaryType, Language: obj.Language})
	if err != nil {
		return domain.Summary{}, err
	}

	useCase := domain.UseCaseSummary
	if summaryType == domain.SummaryTypeRealtime {
		useCase = domain.UseCaseRealtime
	}

	largeScale := datasetSize >= s.largeScaleAbove
	body := obj.BodyText
	if largeScale {
		body = CompressForLargeScale(obj.Subject, body, LargeScaleCharBudget)
	}

	systemPrompt := buildSystemPrompt(tmpl)
	userContent := fmt.Sprintf("Subject: %s\n\n%s", obj.Subject, body)

	summary, err := s.generateAndValidate(ctx, obj, summaryType, useCase, systemPrompt, userContent, 0.3)
	if err != nil {
		return domain.Summary{}, err
	}

	threshold := domain.QualityBelowThreshold
	if largeScale {
		threshold = threshold + 0.1 // stricter validator in large-scale mode
	}

	if summary.QualityScore >= threshold {
		return summary, nil
	}

	regenerated, err := s.generateAndValidate(ctx, obj, summaryType, useCase, systemPrompt, userContent, StricterTemperature)
	if err != nil {
		s.logger.Warn("summarize: regeneration failed, keeping first pass flagged low",
			slog.String("tenant_id", string(obj.TenantID)), slog.String("original_id", obj.OriginalID), slog.String("err", err.Error()))
		summary.QualityFlag = "low"
		return summary, nil
	}
	regenerated.RegeneratedOnce = true
	if regenerated.QualityScore < threshold {
		regenerated.QualityFlag = "low"
	}
	return regenerated, nil
}

func (s *Summarizer) generateAndValidate(ctx context.Context, obj domain.IntegratedObject, summaryType domain.SummaryType, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (domain.Summary, error) {
	start := time.Now()
	text, inTok, outTok, err := s.generate(ctx, obj.TenantID, useCase, systemPrompt, userContent, temperature)
	if err != nil {
		return domain.Summary{}, domain.Wrap(domain.KindLLMUnavailable, err, "summarize: generation failed")
	}
	generationTime := time.Since(start)

	sections, inOrder := parseSections(text)
	density := speculationDensity(text, obj.Language)
	score := qualityScore(inOrder, density, len(text))

	return domain.Summary{
		TenantID:       obj.TenantID,
		Platform:       obj.Platform,
		OriginalID:     obj.OriginalID,
		SummaryType:    summaryType,
		Sections:       sections,
		FullText:       text,
		InputTokens:    inTok,
		OutputTokens:   outTok,
		GenerationTime: generationTime,
		Language:       obj.Language,
		QualityScore:   score,
		CreatedAt:      start,
	}, nil
}

func buildSystemPrompt(t Template) string {
	var b strings.Builder
	b.WriteString(t.SystemPrompt)
	if len(t.RequiredSections) > 0 {
		b.WriteString("\n\nRequired sections, in this exact order: ")
		b.WriteString(strings.Join(t.RequiredSections, ", "))
	}
	if t.BilingualPreservation {
		b.WriteString("\n\nWhen writing in Korean, keep original English proper nouns in parentheses.")
	}
	for _, clause := range t.AntiHallucination {
		b.WriteString("\n")
		b.WriteString(clause)
	}
	return b.String()
}

// Package query implements C9: resolving a free-text support-agent query
// into an AnalyzedQuery — an intent, a set of structured conditions, a
// condition-stripped search text, and the retrieval strategy C10 should
// run.
package query

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// GenerateFunc performs one LLM call for the query_analysis use case.
// Mirrors internal/summarize's GenerateFunc shape so this package doesn't
// need to import internal/llmrouter directly.
type GenerateFunc func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (text string, inputTokens, outputTokens int, err error)

// Analyzer is C9.
type Analyzer struct {
	generate GenerateFunc
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Analyzer at construction time.
type Option func(*Analyzer)

// WithLogger attaches a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(a *Analyzer) { a.logger = l } }

// WithClock overrides the analyzer's notion of "now", used to resolve
// relative time conditions at query time. Defaults to time.Now.
func WithClock(now func() time.Time) Option { return func(a *Analyzer) { a.now = now } }

// New builds an Analyzer. generate may be nil, in which case the LLM pass
// is skipped entirely and the pattern pass's result is always final —
// useful for offline/degraded operation.
func New(generate GenerateFunc, opts ...Option) *Analyzer {
	a := &Analyzer{generate: generate, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the two-pass extraction described by §4.9: a pattern pass
// always runs first; an LLM pass follows only when the pattern pass's
// confidence is low or the query contains an explicit conjunction, and
// its result only replaces the pattern pass's when it parses cleanly.
func (a *Analyzer) Analyze(ctx context.Context, tenantID domain.TenantID, rawQuery string) (domain.AnalyzedQuery, error) {
	result := extractPattern(rawQuery, a.now())

	if a.generate != nil && (result.Confidence < domain.LowConfidenceThreshold || hasConjunction(rawQuery)) {
		if refined, ok := a.llmPass(ctx, tenantID, rawQuery, result); ok {
			result = refined
		}
	}

	result.Intent = classifyIntent(rawQuery, result.Conditions)
	result.Strategy = selectStrategy(result.Intent)
	return result, nil
}

// llmPass asks the configured use case to extract conditions as JSON and
// folds them onto the pattern pass's result. Any call or parse failure
// falls back to the pattern result unchanged (§4.9 "falls back to the
// pattern-pass result on JSON parse failure").
func (a *Analyzer) llmPass(ctx context.Context, tenantID domain.TenantID, rawQuery string, fallback domain.AnalyzedQuery) (domain.AnalyzedQuery, bool) {
	text, _, _, err := a.generate(ctx, tenantID, domain.UseCaseQueryAnalysis, queryAnalysisSystemPrompt, rawQuery, 0.0)
	if err != nil {
		a.logger.Warn("query: llm pass failed, keeping pattern-pass result",
			slog.String("tenant_id", string(tenantID)), slog.String("err", err.Error()))
		return fallback, false
	}

	clean := stripMarkdownFence(text)
	if !gjson.Valid(clean) {
		a.logger.Warn("query: llm pass returned invalid json, keeping pattern-pass result", slog.String("tenant_id", string(tenantID)))
		return fallback, false
	}

	parsed := fallback
	parsed.SearchText = gjson.Get(clean, "search_text").String()
	if parsed.SearchText == "" {
		parsed.SearchText = fallback.SearchText
	}
	if conf := gjson.Get(clean, "confidence"); conf.Exists() {
		parsed.Confidence = conf.Float()
	} else {
		parsed.Confidence = 0.8
	}
	parsed.Conditions = mergeLLMConditions(fallback.Conditions, gjson.Get(clean, "conditions"), a.now())
	return parsed, true
}

const queryAnalysisSystemPrompt = `[TASK]
Extract structured search conditions from a customer-support agent's query.

[OUTPUT FORMAT]
JSON only - RFC8259 compliant, no markdown fences, no commentary.

{
  "search_text": "condition-stripped free-text search terms",
  "confidence": 0.0,
  "conditions": {
    "time": {"relative_days": 0, "since": "", "until": ""},
    "priority": {"min": 0, "max": 0},
    "status": [],
    "category": [],
    "tags": [],
    "person": {"role": "requester|assignee", "identifier": ""},
    "sentiment": {"min": 0.0, "max": 0.0}
  }
}

Omit any condition key you found no evidence for.`

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func mergeLLMConditions(base domain.Conditions, node gjson.Result, now time.Time) domain.Conditions {
	if !node.Exists() {
		return base
	}
	out := base

	if t := node.Get("time"); t.Exists() {
		tc := &domain.TimeCondition{}
		if d := t.Get("relative_days"); d.Exists() {
			tc.RelativeDays = int(d.Int())
			tc.Since = now.AddDate(0, 0, -tc.RelativeDays)
			tc.Until = now
		}
		if s := t.Get("since"); s.Exists() {
			if parsed, err := time.Parse(time.RFC3339, s.String()); err == nil {
				tc.Since = parsed
			}
		}
		if u := t.Get("until"); u.Exists() {
			if parsed, err := time.Parse(time.RFC3339, u.String()); err == nil {
				tc.Until = parsed
			}
		}
		out.Time = tc
	}
	if p := node.Get("priority"); p.Exists() {
		out.Priority = &domain.PriorityCondition{Min: int(p.Get("min").Int()), Max: int(p.Get("max").Int())}
	}
	if s := node.Get("status"); s.Exists() && s.IsArray() {
		out.Status = stringArray(s)
	}
	if c := node.Get("category"); c.Exists() && c.IsArray() {
		out.Category = stringArray(c)
	}
	if t := node.Get("tags"); t.Exists() && t.IsArray() {
		out.Tags = stringArray(t)
	}
	if p := node.Get("person"); p.Exists() {
		role := domain.PersonRoleRequester
		if p.Get("role").String() == string(domain.PersonRoleAssignee) {
			role = domain.PersonRoleAssignee
		}
		out.Person = &domain.PersonCondition{Role: role, Identifier: p.Get("identifier").String()}
	}
	if s := node.Get("sentiment"); s.Exists() {
		out.Sentiment = &domain.SentimentCondition{Min: s.Get("min").Float(), Max: s.Get("max").Float()}
	}
	return out
}

func stringArray(node gjson.Result) []string {
	var out []string
	for _, v := range node.Array() {
		if v.String() != "" {
			out = append(out, v.String())
		}
	}
	return out
}

// hasConjunction reports whether rawQuery contains an explicit
// and/or-style conjunction, which escalates to the LLM pass regardless of
// pattern-pass confidence (§4.9).
func hasConjunction(rawQuery string) bool {
	lower := strings.ToLower(rawQuery)
	for _, word := range []string{" and ", " or ", " but ", "그리고", "그런데", "이면서", "하지만"} {
		if strings.Contains(lower, word) || strings.Contains(rawQuery, word) {
			return true
		}
	}
	return false
}

// classifyIntent applies §4.9's ordered intent rules.
func classifyIntent(rawQuery string, cond domain.Conditions) domain.Intent {
	lower := strings.ToLower(rawQuery)

	switch {
	case containsAny(lower, similaritySearchPhrases) || containsAny(rawQuery, similaritySearchPhrasesKo):
		return domain.IntentSimilaritySearch
	case containsAny(lower, functionalPhrases) || containsAny(rawQuery, functionalPhrasesKo):
		return domain.IntentFunctional
	case cond.Count() >= domain.ComplexConditionalMinConditions || hasConjunction(rawQuery):
		return domain.IntentComplexConditional
	case cond.Count() == 0 && len(strings.Fields(rawQuery)) <= 4:
		return domain.IntentSimpleKeyword
	default:
		return domain.IntentSimpleSemantic
	}
}

var (
	similaritySearchPhrases   = []string{"similar ticket", "similar case", "like this ticket"}
	similaritySearchPhrasesKo = []string{"유사한 티켓", "비슷한 티켓", "비슷한 사례"}
	functionalPhrases         = []string{"my ticket", "my recent", "assigned to me"}
	functionalPhrasesKo       = []string{"내 티켓", "최근 티켓", "내가 담당"}
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// selectStrategy applies §4.9's strategy-selection rules.
func selectStrategy(intent domain.Intent) domain.Strategy {
	switch intent {
	case domain.IntentComplexConditional:
		return domain.StrategyMetadataFirst
	case domain.IntentSimpleKeyword:
		return domain.StrategyHybrid
	default:
		return domain.StrategyHybrid
	}
}

var (
	timeRelativeRe = regexp.MustCompile(`(?i)\b(today|yesterday|this week|last week|this month|last month|past (\d+) days?)\b`)
	priorityRe     = regexp.MustCompile(`(?i)\b(urgent|high priority|low priority|critical)\b`)
)

var koTimeWords = map[string]int{
	"오늘":  0,
	"어제":  1,
	"이번주": 7,
	"지난주": 7,
	"이번달": 30,
	"지난달": 30,
	"한달":  30,
	"최근":  7,
}

var koPriorityWords = map[string]*domain.PriorityCondition{
	"긴급":        {Min: 4, Max: 4},
	"높은 우선순위":   {Min: 3, Max: 4},
	"긴급도 높음":    {Min: 3, Max: 4},
	"낮은 우선순위":   {Min: 1, Max: 1},
}

var statusWords = map[string]string{
	"open":     "open",
	"pending":  "pending",
	"resolved": "resolved",
	"closed":   "closed",
	"열림":      "open",
	"보류":      "pending",
	"해결됨":     "resolved",
	"종료":      "closed",
}

var sentimentWords = []string{"angry", "frustrated", "upset", "unhappy", "화난", "불만", "짜증"}

var categoryWords = map[string]string{
	"billing":   "billing",
	"결제":        "billing",
	"청구":        "billing",
	"technical":  "technical",
	"기술":        "technical",
	"account":    "account",
	"계정":        "account",
	"shipping":   "shipping",
	"배송":        "shipping",
}

// extractPattern is the always-run first pass: regex and lexicon matching
// over known time/priority/category/status/sentiment phrases, in English
// and Korean. Confidence reflects how much of the query the matched
// phrases explain; the more condition signal found relative to the
// query's total length, the higher the confidence, capped below 1.0 so a
// conjunction can still force escalation.
func extractPattern(rawQuery string, now time.Time) domain.AnalyzedQuery {
	var cond domain.Conditions
	searchText := rawQuery
	matchedChars := 0

	if m := timeRelativeRe.FindString(rawQuery); m != "" {
		days := relativeDaysFor(strings.ToLower(m))
		cond.Time = &domain.TimeCondition{RelativeDays: days, Since: now.AddDate(0, 0, -days), Until: now}
		searchText = strings.Replace(searchText, m, "", 1)
		matchedChars += len(m)
	}
	for word, days := range koTimeWords {
		if strings.Contains(rawQuery, word) && cond.Time == nil {
			cond.Time = &domain.TimeCondition{RelativeDays: days, Since: now.AddDate(0, 0, -days), Until: now}
			searchText = strings.Replace(searchText, word, "", 1)
			matchedChars += len(word)
			break
		}
	}

	if m := priorityRe.FindString(rawQuery); m != "" {
		cond.Priority = priorityFor(strings.ToLower(m))
		searchText = strings.Replace(searchText, m, "", 1)
		matchedChars += len(m)
	}
	if cond.Priority == nil {
		for word, pc := range koPriorityWords {
			if strings.Contains(rawQuery, word) {
				cond.Priority = pc
				searchText = strings.Replace(searchText, word, "", 1)
				matchedChars += len(word)
				break
			}
		}
	}

	for word, category := range categoryWords {
		if strings.Contains(strings.ToLower(rawQuery), word) {
			cond.Category = append(cond.Category, category)
			searchText = strings.Replace(searchText, word, "", 1)
			matchedChars += len(word)
		}
	}

	for word, status := range statusWords {
		if strings.Contains(strings.ToLower(rawQuery), word) {
			cond.Status = append(cond.Status, status)
			searchText = strings.Replace(searchText, word, "", 1)
			matchedChars += len(word)
		}
	}

	for _, word := range sentimentWords {
		if strings.Contains(strings.ToLower(rawQuery), word) {
			cond.Sentiment = &domain.SentimentCondition{Min: -1.0, Max: -0.3}
			matchedChars += len(word)
			break
		}
	}

	searchText = strings.Join(strings.Fields(searchText), " ")
	if searchText == "" {
		searchText = rawQuery
	}

	confidence := 0.4
	if len(rawQuery) > 0 {
		confidence = 0.4 + 0.5*float64(matchedChars)/float64(len(rawQuery))
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	if cond.Count() == 0 {
		confidence = 0.85 // no conditions found is itself a confident (simple-keyword) signal
	}

	return domain.AnalyzedQuery{Conditions: cond, SearchText: searchText, Confidence: confidence}
}

func relativeDaysFor(phrase string) int {
	switch {
	case strings.Contains(phrase, "today"):
		return 0
	case strings.Contains(phrase, "yesterday"):
		return 1
	case strings.Contains(phrase, "this week"), strings.Contains(phrase, "last week"):
		return 7
	case strings.Contains(phrase, "this month"), strings.Contains(phrase, "last month"):
		return 30
	case strings.Contains(phrase, "past"):
		re := regexp.MustCompile(`\d+`)
		if n := re.FindString(phrase); n != "" {
			days := 0
			for _, r := range n {
				days = days*10 + int(r-'0')
			}
			return days
		}
		return 7
	default:
		return 7
	}
}

func priorityFor(phrase string) *domain.PriorityCondition {
	switch {
	case strings.Contains(phrase, "urgent"), strings.Contains(phrase, "critical"):
		return &domain.PriorityCondition{Min: 4, Max: 4}
	case strings.Contains(phrase, "high"):
		return &domain.PriorityCondition{Min: 3, Max: 4}
	case strings.Contains(phrase, "low"):
		return &domain.PriorityCondition{Min: 1, Max: 1}
	default:
		return nil
	}
}

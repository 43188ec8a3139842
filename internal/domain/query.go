package domain

import "time"

// Intent classifies what kind of answer a query is asking for.
type Intent string

const (
	IntentSimpleKeyword      Intent = "simple_keyword"
	IntentSimpleSemantic     Intent = "simple_semantic"
	IntentComplexConditional Intent = "complex_conditional"
	IntentSimilaritySearch   Intent = "similarity_search"
	IntentFunctional         Intent = "functional"
)

// Strategy is the retrieval strategy C10 runs for a given analyzed query.
type Strategy string

const (
	StrategyMetadataFirst Strategy = "metadata_first"
	StrategyHybrid        Strategy = "hybrid"
	StrategySemanticFirst Strategy = "semantic_first"
)

// PersonRole distinguishes the two person-identity conditions a query can
// carry.
type PersonRole string

const (
	PersonRoleRequester PersonRole = "requester"
	PersonRoleAssignee  PersonRole = "assignee"
)

// TimeCondition narrows results to a relative-or-absolute window.
type TimeCondition struct {
	RelativeDays int
	Since        time.Time
	Until        time.Time
}

// PriorityCondition bounds priority, 1 (low) through 4 (urgent).
type PriorityCondition struct {
	Min int
	Max int
}

// SentimentCondition bounds a -1.0..1.0 sentiment score.
type SentimentCondition struct {
	Min float64
	Max float64
}

// PersonCondition narrows results to a specific requester or assignee.
type PersonCondition struct {
	Role       PersonRole
	Identifier string
}

// Conditions is the set of structured filters extracted from a query,
// every field optional.
type Conditions struct {
	Time      *TimeCondition
	Priority  *PriorityCondition
	Status    []string
	Category  []string
	Tags      []string
	Person    *PersonCondition
	Sentiment *SentimentCondition
}

// Count returns how many top-level condition fields are populated, used by
// the complex_conditional intent rule ("≥ 3 extracted conditions").
func (c Conditions) Count() int {
	n := 0
	if c.Time != nil {
		n++
	}
	if c.Priority != nil {
		n++
	}
	if len(c.Status) > 0 {
		n++
	}
	if len(c.Category) > 0 {
		n++
	}
	if len(c.Tags) > 0 {
		n++
	}
	if c.Person != nil {
		n++
	}
	if c.Sentiment != nil {
		n++
	}
	return n
}

// AnalyzedQuery is C9's output: the caller's query resolved into an
// intent, structured conditions, a condition-stripped search text, and the
// retrieval strategy C10 should run.
type AnalyzedQuery struct {
	Intent     Intent
	Conditions Conditions
	SearchText string
	Strategy   Strategy
	Confidence float64
}

// LowConfidenceThreshold is the pattern-pass confidence below which C9
// escalates to an LLM pass (§4.9).
const LowConfidenceThreshold = 0.6

// ComplexConditionalMinConditions is how many extracted conditions trigger
// the complex_conditional intent on their own, without an explicit
// conjunction.
const ComplexConditionalMinConditions = 3

// HyDEConfidenceThreshold is the minimum confidence required to spend a
// HyDE round-trip on a complex_conditional query (§4.10 step 4).
const HyDEConfidenceThreshold = 0.7

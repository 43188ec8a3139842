package qdrant

import (
	"fmt"

	qc "github.com/qdrant/go-client/qdrant"
	"github.com/spf13/cast"

	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

// buildFilter translates a vectorstore.Filter into Qdrant's native
// must/should/must_not structure, one condition per leaf. Grounded on the
// match/range constructors the teacher's own filter converter uses
// (NewMatchKeyword, NewMatchKeywords, NewRange).
func buildFilter(f vectorstore.Filter) (*qc.Filter, error) {
	out := &qc.Filter{}

	for _, c := range f.Must {
		cond, err := buildCondition(c)
		if err != nil {
			return nil, fmt.Errorf("qdrant: must condition on %s: %w", c.Field, err)
		}
		out.Must = append(out.Must, cond)
	}
	for _, c := range f.Should {
		cond, err := buildCondition(c)
		if err != nil {
			return nil, fmt.Errorf("qdrant: should condition on %s: %w", c.Field, err)
		}
		out.Should = append(out.Should, cond)
	}
	for _, c := range f.MustNot {
		cond, err := buildCondition(c)
		if err != nil {
			return nil, fmt.Errorf("qdrant: must_not condition on %s: %w", c.Field, err)
		}
		out.MustNot = append(out.MustNot, cond)
	}

	return out, nil
}

func buildCondition(c vectorstore.Condition) (*qc.Condition, error) {
	switch c.Op {
	case vectorstore.OpEq:
		switch v := c.Value.(type) {
		case string:
			return qc.NewMatchKeyword(c.Field, v), nil
		case bool:
			return qc.NewMatchBool(c.Field, v), nil
		default:
			n, err := cast.ToInt64E(v)
			if err != nil {
				return nil, fmt.Errorf("unsupported eq value type %T", v)
			}
			return qc.NewMatchInt(c.Field, n), nil
		}

	case vectorstore.OpMatchAny:
		keywords, err := toKeywords(c.Value)
		if err != nil {
			return nil, err
		}
		return qc.NewMatchKeywords(c.Field, keywords...), nil

	case vectorstore.OpGte:
		n, err := cast.ToFloat64E(c.Value)
		if err != nil {
			return nil, fmt.Errorf("unsupported gte value type %T", c.Value)
		}
		return qc.NewRange(c.Field, &qc.Range{Gte: &n}), nil

	case vectorstore.OpLte:
		n, err := cast.ToFloat64E(c.Value)
		if err != nil {
			return nil, fmt.Errorf("unsupported lte value type %T", c.Value)
		}
		return qc.NewRange(c.Field, &qc.Range{Lte: &n}), nil

	default:
		return nil, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

func toKeywords(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = cast.ToString(item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("match_any requires a string slice, got %T", value)
	}
}

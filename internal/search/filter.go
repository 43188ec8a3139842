package search

import (
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

// buildFilter translates a Request into the vectorstore.Filter C10 hands
// the gateway, resolving any relative time condition against now (§4.10
// step 1: "relative time resolved at query time"). tenant_id and platform
// are always pinned in Must, satisfying the gateway's mandatory boundary
// check regardless of what the query itself asked for.
func buildFilter(tenant domain.TenantContext, objectType domain.ObjectType, cond domain.Conditions, now time.Time) vectorstore.Filter {
	f := vectorstore.Filter{
		Must: []vectorstore.Condition{
			{Field: "tenant_id", Op: vectorstore.OpEq, Value: tenant.TenantID},
			{Field: "platform", Op: vectorstore.OpEq, Value: tenant.Platform},
		},
	}

	if objectType != "" {
		f.Must = append(f.Must, vectorstore.Condition{Field: "object_type", Op: vectorstore.OpEq, Value: objectType})
	}

	if cond.Time != nil {
		since := cond.Time.Since
		until := cond.Time.Until
		if since.IsZero() && cond.Time.RelativeDays > 0 {
			since = now.AddDate(0, 0, -cond.Time.RelativeDays)
		}
		if until.IsZero() {
			until = now
		}
		if !since.IsZero() {
			f.Must = append(f.Must, vectorstore.Condition{Field: "created_at", Op: vectorstore.OpGte, Value: since.Unix()})
		}
		f.Must = append(f.Must, vectorstore.Condition{Field: "created_at", Op: vectorstore.OpLte, Value: until.Unix()})
	}

	if cond.Priority != nil {
		if cond.Priority.Min > 0 {
			f.Must = append(f.Must, vectorstore.Condition{Field: "priority", Op: vectorstore.OpGte, Value: cond.Priority.Min})
		}
		if cond.Priority.Max > 0 {
			f.Must = append(f.Must, vectorstore.Condition{Field: "priority", Op: vectorstore.OpLte, Value: cond.Priority.Max})
		}
	}

	if len(cond.Status) > 0 {
		f.Must = append(f.Must, vectorstore.Condition{Field: "status", Op: vectorstore.OpMatchAny, Value: cond.Status})
	}
	if len(cond.Category) > 0 {
		f.Must = append(f.Must, vectorstore.Condition{Field: "category", Op: vectorstore.OpMatchAny, Value: cond.Category})
	}
	if len(cond.Tags) > 0 {
		// Tags is a soft preference (Should), not a hard filter: a ticket
		// missing one searched-for tag can still be relevant.
		f.Should = append(f.Should, vectorstore.Condition{Field: "tags", Op: vectorstore.OpMatchAny, Value: cond.Tags})
	}

	// cond.Person and cond.Sentiment have no corresponding indexed payload
	// field (domain.Payload carries neither an assignee/requester nor a
	// sentiment score) — they influence ranking relevance via the search
	// text, not server-side filtering. See DESIGN.md.

	return f
}

// Package platform abstracts the external help-desk API behind a single
// interface, so the ingest orchestrator (internal/ingest) never depends on
// a concrete platform SDK.
package platform

import (
	"context"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// ObjectSummary is the lightweight descriptor returned by paged listing:
// just enough to decide whether an object needs a full fetch.
type ObjectSummary struct {
	OriginalID string
	ObjectType domain.ObjectType
	UpdatedAt  time.Time
}

// RawTicket, RawConversation and RawAttachment carry platform-native fields
// straight through to the integrated object builder (internal/integration),
// which is the only place that interprets them.
type RawTicket struct {
	OriginalID  string
	Subject     string
	Status      string
	Priority    int
	Tags        []string
	Category    string
	AssigneeID  string
	RequesterID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RawConversation struct {
	Body      string
	Private   bool
	CreatedAt time.Time
}

type RawAttachment struct {
	Name        string
	ContentType string
	Size        int64
	URL         string
}

type RawKBArticle struct {
	OriginalID string
	Title      string
	Body       string
	Category   string
	Tags       []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RateLimits describes an adapter's concurrency and throughput envelope.
type RateLimits struct {
	RequestsPerMinute int
	Burst             int
	ConcurrentMax     int
}

// Adapter is the one interface every help-desk integration implements.
type Adapter interface {
	// ListUpdated returns lightweight descriptors for objects updated at or
	// after since, paginated by an adapter-specific cursor. An empty
	// nextCursor means the caller has reached the end of the page set.
	ListUpdated(ctx context.Context, tenant domain.TenantContext, since time.Time, pageCursor string) (objects []ObjectSummary, nextCursor string, err error)

	// FetchTicket returns a ticket with its full conversation and
	// attachment metadata.
	FetchTicket(ctx context.Context, tenant domain.TenantContext, id string) (RawTicket, []RawConversation, []RawAttachment, error)

	// FetchKB returns a single knowledge-base article.
	FetchKB(ctx context.Context, tenant domain.TenantContext, id string) (RawKBArticle, error)

	// RateLimits reports this adapter's concurrency envelope so the ingest
	// orchestrator can size its worker pool accordingly.
	RateLimits() RateLimits
}

// Credentials carries whatever the concrete adapter needs to authenticate;
// platforms vary widely here so it is a loosely-typed bag rather than a
// fixed struct.
type Credentials struct {
	APIKey  string
	Domain  string
	Extra   map[string]string
}

// Factory constructs an Adapter for a given platform and credential set.
type Factory func(platform domain.Platform, creds Credentials) (Adapter, error)

// registry is the process-wide set of adapter factories, keyed by
// platform. Populated at process start by the concrete adapter packages'
// init functions (internal/servicecontext imports internal/platform/freshdesk
// for this).
var registry = map[domain.Platform]Factory{}

// Register adds a platform's factory to the registry. Call from an init()
// in the concrete adapter package (e.g. internal/platform/freshdesk), or
// explicitly from cmd/server/main.go.
func Register(platform domain.Platform, factory Factory) {
	registry[platform] = factory
}

// CreateAdapter builds a concrete Adapter for the given platform using its
// registered factory.
func CreateAdapter(platform domain.Platform, creds Credentials) (Adapter, error) {
	factory, ok := registry[platform]
	if !ok {
		return nil, domain.NewError(domain.KindValidationFailure, "no adapter registered for platform %q", platform)
	}
	return factory(platform, creds)
}

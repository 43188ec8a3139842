package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/pkg/xsync"
)

// Adapter implements platform.Adapter against one Freshdesk tenant domain.
type Adapter struct {
	cfg     *Config
	limiter *xsync.Limiter
}

// New constructs a Freshdesk adapter. Satisfies platform.Factory's shape so
// it can be registered under domain.PlatformFreshdesk.
func New(cfg *Config) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Adapter{
		cfg:     cfg,
		limiter: xsync.NewLimiter(cfg.RateLimits.ConcurrentMax),
	}, nil
}

// Factory adapts New to platform.Factory so it can be registered once at
// process start.
func Factory(_ domain.Platform, creds platform.Credentials) (platform.Adapter, error) {
	return New(&Config{Domain: creds.Domain, APIKey: creds.APIKey})
}

func init() {
	platform.Register(domain.PlatformFreshdesk, Factory)
}

func (a *Adapter) RateLimits() platform.RateLimits {
	return a.cfg.RateLimits
}

// ticketListItem is the subset of Freshdesk's ticket JSON needed for
// ListUpdated's lightweight descriptors.
type ticketListItem struct {
	ID        int64     `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Adapter) ListUpdated(ctx context.Context, _ domain.TenantContext, since time.Time, pageCursor string) ([]platform.ObjectSummary, string, error) {
	page := 1
	if pageCursor != "" {
		p, err := strconv.Atoi(pageCursor)
		if err != nil {
			return nil, "", domain.NewError(domain.KindValidationFailure, "invalid page cursor %q", pageCursor)
		}
		page = p
	}

	q := url.Values{}
	q.Set("updated_since", since.UTC().Format(time.RFC3339))
	q.Set("order_by", "updated_at")
	q.Set("order_type", "asc")
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", "100")

	var items []ticketListItem
	if err := a.getJSON(ctx, "/api/v2/tickets?"+q.Encode(), &items); err != nil {
		return nil, "", err
	}

	summaries := make([]platform.ObjectSummary, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, platform.ObjectSummary{
			OriginalID: strconv.FormatInt(it.ID, 10),
			ObjectType: domain.ObjectTypeTicket,
			UpdatedAt:  it.UpdatedAt,
		})
	}

	nextCursor := ""
	if len(items) == 100 {
		nextCursor = strconv.Itoa(page + 1)
	}
	return summaries, nextCursor, nil
}

type ticketDetail struct {
	ID          int64    `json:"id"`
	Subject     string   `json:"subject"`
	Status      int      `json:"status"`
	Priority    int      `json:"priority"`
	Tags        []string `json:"tags"`
	GroupID     int64    `json:"group_id"`
	ResponderID int64    `json:"responder_id"`
	RequesterID int64    `json:"requester_id"`
	Description string   `json:"description_text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type conversationEntry struct {
	BodyText  string    `json:"body_text"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
}

type attachmentEntry struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"attachment_url"`
}

// freshdeskStatus maps Freshdesk's numeric status codes to the canonical
// enum the integrated object builder expects.
var freshdeskStatus = map[int]string{
	2: "open",
	3: "pending",
	4: "resolved",
	5: "closed",
}

func (a *Adapter) FetchTicket(ctx context.Context, _ domain.TenantContext, id string) (platform.RawTicket, []platform.RawConversation, []platform.RawAttachment, error) {
	var detail struct {
		ticketDetail
		Attachments []attachmentEntry `json:"attachments"`
	}
	if err := a.getJSON(ctx, fmt.Sprintf("/api/v2/tickets/%s?include=conversations,requester", url.PathEscape(id)), &detail); err != nil {
		return platform.RawTicket{}, nil, nil, err
	}

	var convos []conversationEntry
	if err := a.getJSON(ctx, fmt.Sprintf("/api/v2/tickets/%s/conversations", url.PathEscape(id)), &convos); err != nil {
		return platform.RawTicket{}, nil, nil, err
	}

	status, ok := freshdeskStatus[detail.Status]
	if !ok {
		status = "open"
	}

	ticket := platform.RawTicket{
		OriginalID:  strconv.FormatInt(detail.ID, 10),
		Subject:     detail.Subject,
		Status:      status,
		Priority:    detail.Priority,
		Tags:        detail.Tags,
		AssigneeID:  strconv.FormatInt(detail.ResponderID, 10),
		RequesterID: strconv.FormatInt(detail.RequesterID, 10),
		CreatedAt:   detail.CreatedAt,
		UpdatedAt:   detail.UpdatedAt,
	}

	conversations := make([]platform.RawConversation, 0, len(convos)+1)
	conversations = append(conversations, platform.RawConversation{
		Body:      detail.Description,
		Private:   false,
		CreatedAt: detail.CreatedAt,
	})
	for _, c := range convos {
		conversations = append(conversations, platform.RawConversation{
			Body:      c.BodyText,
			Private:   c.Private,
			CreatedAt: c.CreatedAt,
		})
	}

	attachments := make([]platform.RawAttachment, 0, len(detail.Attachments))
	for _, att := range detail.Attachments {
		attachments = append(attachments, platform.RawAttachment{
			Name:        att.Name,
			ContentType: att.ContentType,
			Size:        att.Size,
			URL:         att.URL,
		})
	}
	return ticket, conversations, attachments, nil
}

type kbArticleDetail struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description_text"`
	Tags        []string  `json:"tags"`
	FolderID    int64     `json:"folder_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Adapter) FetchKB(ctx context.Context, _ domain.TenantContext, id string) (platform.RawKBArticle, error) {
	var detail kbArticleDetail
	if err := a.getJSON(ctx, fmt.Sprintf("/api/v2/solutions/articles/%s", url.PathEscape(id)), &detail); err != nil {
		return platform.RawKBArticle{}, err
	}
	return platform.RawKBArticle{
		OriginalID: strconv.FormatInt(detail.ID, 10),
		Title:      detail.Title,
		Body:       detail.Description,
		Tags:       detail.Tags,
		CreatedAt:  detail.CreatedAt,
		UpdatedAt:  detail.UpdatedAt,
	}, nil
}

// getJSON performs one rate-limit-aware, retrying GET against the
// Freshdesk API and decodes the JSON body into out.
func (a *Adapter) getJSON(ctx context.Context, path string, out any) error {
	a.limiter.Acquire()
	defer a.limiter.Release()

	var lastErr error
	for attempt := 0; attempt <= a.cfg.Backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := a.cfg.Backoff.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		body, retryAfter, err := a.do(ctx, path)
		if err == nil {
			return json.Unmarshal(body, out)
		}
		lastErr = err

		if !domain.Retryable(err) {
			return err
		}
		if retryAfter > 0 {
			t := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return lastErr
}

// do issues one HTTP GET and classifies the response into the adapter's
// typed error kinds, reading the rate-limit headers Freshdesk sends on both
// success and 429 responses.
func (a *Adapter) do(ctx context.Context, path string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindTransientNetwork, err, "build request")
	}
	req.SetBasicAuth(a.cfg.APIKey, "X")

	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindTransientNetwork, err, "request %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindTransientNetwork, err, "read body")
	}

	retryAfter := parseRetryAfter(resp.Header)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if retryAfter == 0 {
			retryAfter = time.Second
		}
		return nil, retryAfter, domain.NewError(domain.KindRateLimited, "freshdesk rate limited on %s", path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, domain.NewError(domain.KindAuthFailure, "freshdesk auth failure on %s: %d", path, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, 0, domain.NewError(domain.KindPermanentClientError, "freshdesk client error on %s: %d", path, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, 0, domain.NewError(domain.KindPermanentServerError, "freshdesk server error on %s: %d", path, resp.StatusCode)
	}

	return body, 0, nil
}

// parseRetryAfter reads Freshdesk's Retry-After header, falling back to
// X-Ratelimit-Remaining==0 as a softer signal that a wait is imminent.
func parseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if h.Get("X-Ratelimit-Remaining") == "0" {
		return time.Second
	}
	return 0
}

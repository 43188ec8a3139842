// Package integration builds the canonical IntegratedObject record from raw
// platform data: it strips markup, merges conversations chronologically,
// canonicalizes enums, detects language, and computes the content hash.
package integration

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/platform"
)

// messageSeparator joins chronologically-ordered conversation bodies in the
// merged body text.
const messageSeparator = "\n---\n"

// BuildTicket merges a raw ticket, its conversations and attachment
// metadata into a validated IntegratedObject. Returns a
// domain.KindValidationFailure error if the result has neither subject nor
// body after normalization.
func BuildTicket(tenant domain.TenantContext, raw platform.RawTicket, conversations []platform.RawConversation, attachments []platform.RawAttachment) (domain.IntegratedObject, error) {
	sorted := append([]platform.RawConversation(nil), conversations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	messages := lo.Map(sorted, func(c platform.RawConversation, _ int) string {
		return normalizeText(stripHTML(c.Body))
	})
	messages = lo.Filter(messages, func(m string, _ int) bool { return m != "" })
	messages = dedupeSignaturesAndQuotes(messages)

	subject := normalizeText(stripHTML(raw.Subject))
	bodyText := strings.Join(messages, messageSeparator)

	obj := domain.IntegratedObject{
		TenantID:    tenant.TenantID,
		Platform:    tenant.Platform,
		ObjectType:  domain.ObjectTypeTicket,
		OriginalID:  raw.OriginalID,
		Subject:     subject,
		BodyText:    bodyText,
		Attachments: buildAttachments(attachments),
		Status:      canonicalStatus(raw.Status),
		Priority:    domain.Priority(raw.Priority).Clamp(),
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
		Tags:        raw.Tags,
		AssigneeID:  raw.AssigneeID,
		RequesterID: raw.RequesterID,
	}
	obj.Language = DetectLanguage(subject + " " + bodyText)
	obj.SetContentHash(messages)

	if !obj.Valid() {
		return domain.IntegratedObject{}, domain.NewError(domain.KindValidationFailure,
			"ticket %s: subject and body both empty after normalization", raw.OriginalID)
	}
	return obj, nil
}

// BuildKBArticle merges a raw KB article into a validated IntegratedObject.
func BuildKBArticle(tenant domain.TenantContext, raw platform.RawKBArticle) (domain.IntegratedObject, error) {
	subject := normalizeText(stripHTML(raw.Title))
	body := normalizeText(stripHTML(raw.Body))

	obj := domain.IntegratedObject{
		TenantID:   tenant.TenantID,
		Platform:   tenant.Platform,
		ObjectType: domain.ObjectTypeKBArticle,
		OriginalID: raw.OriginalID,
		Subject:    subject,
		BodyText:   body,
		Status:     domain.StatusOpen,
		Priority:   domain.PriorityLow,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
		Tags:       raw.Tags,
		Category:   raw.Category,
	}
	obj.Language = DetectLanguage(subject + " " + body)
	obj.SetContentHash([]string{body})

	if !obj.Valid() {
		return domain.IntegratedObject{}, domain.NewError(domain.KindValidationFailure,
			"kb article %s: title and body both empty after normalization", raw.OriginalID)
	}
	return obj, nil
}

func buildAttachments(raw []platform.RawAttachment) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(raw))
	for _, a := range raw {
		out = append(out, domain.Attachment{
			Name:        a.Name,
			MIME:        a.ContentType,
			Size:        a.Size,
			ExternalURL: a.URL,
		})
	}
	return out
}

// canonicalStatus maps a loosely-typed status string (platform-specific
// casing/spelling) onto the closed status enum, defaulting to "open" for
// anything unrecognized rather than rejecting the object.
func canonicalStatus(raw string) domain.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return domain.StatusPending
	case "resolved":
		return domain.StatusResolved
	case "closed":
		return domain.StatusClosed
	default:
		return domain.StatusOpen
	}
}

// epochSeconds converts a time.Time to the int64 epoch-seconds
// representation the vector-store payload stores.
func epochSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

package qdrant

import (
	"github.com/qdrant/go-client/qdrant"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// payloadToMap flattens a domain.Payload into the plain map TryValueMap
// expects, using the exact field names the payload indexes are declared
// against (§3).
func payloadToMap(p domain.Payload) map[string]any {
	return map[string]any{
		"tenant_id":        string(p.TenantID),
		"platform":         string(p.Platform),
		"object_type":      string(p.ObjectType),
		"original_id":      p.OriginalID,
		"content_type":     string(p.ContentType),
		"subject":          p.Subject,
		"status":           string(p.Status),
		"priority":         int64(p.Priority),
		"tags":             toAnySlice(p.Tags),
		"category":         p.Category,
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
		"summary_sections": toAnySlice(p.SummarySections),
		"summary_text":     p.SummaryText,
		"content_hash":     p.ContentHash,
		"language":         string(p.Language),
	}
}

// toQdrantValueMap converts a domain.Payload to the wire value-map shape,
// exercised directly by payload round-trip tests.
func toQdrantValueMap(p domain.Payload) (map[string]*qdrant.Value, error) {
	return qdrant.TryValueMap(payloadToMap(p))
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// payloadFromMap reconstructs a domain.Payload from a Qdrant point's
// payload, the inverse of payloadToMap. Fields absent from the map are
// left zero-valued rather than erroring — older points may predate a
// payload field added later.
func payloadFromMap(m map[string]*qdrant.Value) domain.Payload {
	return domain.Payload{
		TenantID:        domain.TenantID(stringField(m, "tenant_id")),
		Platform:        domain.Platform(stringField(m, "platform")),
		ObjectType:      domain.ObjectType(stringField(m, "object_type")),
		OriginalID:      stringField(m, "original_id"),
		ContentType:     domain.ObjectType(stringField(m, "content_type")),
		Subject:         stringField(m, "subject"),
		Status:          domain.Status(stringField(m, "status")),
		Priority:        domain.Priority(intField(m, "priority")),
		Tags:            stringListField(m, "tags"),
		Category:        stringField(m, "category"),
		CreatedAt:       intField(m, "created_at"),
		UpdatedAt:       intField(m, "updated_at"),
		SummarySections: stringListField(m, "summary_sections"),
		SummaryText:     stringField(m, "summary_text"),
		ContentHash:     stringField(m, "content_hash"),
		Language:        domain.Language(stringField(m, "language")),
	}
}

func stringField(m map[string]*qdrant.Value, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func intField(m map[string]*qdrant.Value, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	return v.GetIntegerValue()
}

func stringListField(m map[string]*qdrant.Value, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

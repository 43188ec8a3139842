package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// ObjectType distinguishes the two kinds of content an integrated object can
// represent.
type ObjectType string

const (
	ObjectTypeTicket    ObjectType = "ticket"
	ObjectTypeKBArticle ObjectType = "kb_article"
)

// Status is the closed status enum integrated objects are canonicalized to.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// Priority is an integer in 1..4, 4 being most urgent.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// Clamp keeps a priority value inside the valid 1..4 range.
func (p Priority) Clamp() Priority {
	switch {
	case p < PriorityLow:
		return PriorityLow
	case p > PriorityUrgent:
		return PriorityUrgent
	default:
		return p
	}
}

// Language is the detected content language, per the Unicode-block rules in
// the integrated-object builder.
type Language string

const (
	LanguageKorean   Language = "ko"
	LanguageJapanese Language = "ja"
	LanguageChinese  Language = "zh"
	LanguageEnglish  Language = "en"
	LanguageOther    Language = "other"
)

// Attachment is attachment metadata carried on an integrated object; the
// binary payload itself is never stored here, only a reference.
type Attachment struct {
	Name          string
	MIME          string
	Size          int64
	ExternalURL   string
	ExtractedText string
}

// IntegratedObject is the atomic unit of ingest: a ticket (with its merged
// conversation) or a standalone KB article, normalized to one canonical
// shape regardless of source platform.
type IntegratedObject struct {
	TenantID     TenantID
	Platform     Platform
	ObjectType   ObjectType
	OriginalID   string
	Subject      string
	BodyText     string
	Attachments  []Attachment
	Status       Status
	Priority     Priority
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Tags         []string
	Category     string
	AssigneeID   string
	RequesterID  string
	Language     Language
	ContentHash  string
}

// ObjectKey is the (tenant_id, platform, object_type, original_id) primary key.
type ObjectKey struct {
	TenantID   TenantID
	Platform   Platform
	ObjectType ObjectType
	OriginalID string
}

func (o *IntegratedObject) Key() ObjectKey {
	return ObjectKey{
		TenantID:   o.TenantID,
		Platform:   o.Platform,
		ObjectType: o.ObjectType,
		OriginalID: o.OriginalID,
	}
}

// Valid reports whether the object carries enough content to be ingested:
// at least one of subject or body must be non-empty after normalization.
func (o *IntegratedObject) Valid() bool {
	return strings.TrimSpace(o.Subject) != "" || strings.TrimSpace(o.BodyText) != ""
}

// ComputeContentHash computes the SHA-256 hex digest over
// (subject || sorted-messages || sorted-attachment-names), excluding
// timestamps, so that unchanged visible content yields an unchanged hash.
// messages is the list of individual conversation bodies prior to merging —
// passed separately because the builder needs to sort them before hashing,
// while BodyText is already chronologically concatenated for display.
func ComputeContentHash(subject string, messages []string, attachmentNames []string) string {
	sortedMessages := append([]string(nil), messages...)
	sort.Strings(sortedMessages)
	sortedNames := append([]string(nil), attachmentNames...)
	sort.Strings(sortedNames)

	h := sha256.New()
	h.Write([]byte(subject))
	h.Write([]byte{0})
	for _, m := range sortedMessages {
		h.Write([]byte(m))
		h.Write([]byte{0})
	}
	for _, n := range sortedNames {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SetContentHash recomputes and stores ContentHash from the object's current
// subject and attachment names plus the given messages. Builders call this
// as the last normalization step, passing the individual message bodies
// they joined into BodyText; BodyText itself is not read.
func (o *IntegratedObject) SetContentHash(messages []string) {
	names := make([]string, 0, len(o.Attachments))
	for _, a := range o.Attachments {
		names = append(names, a.Name)
	}
	o.ContentHash = ComputeContentHash(o.Subject, messages, names)
}

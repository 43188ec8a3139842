package domain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// pointNamespace is a fixed UUID used as the namespace for deterministic
// (v5) point id derivation, so re-ingesting the same object always produces
// the same vector-store point id.
var pointNamespace = uuid.MustParse("6e4b1f2a-6e9a-4d1a-9c2a-2f7b9a6a2b31")

// SparseVector is a term_id -> weight map, computed by the embedder's
// optional BM25-like pass.
type SparseVector map[uint32]float32

// Payload is the structured metadata stored alongside each vector, and the
// only thing ever consulted for filtering — the vector itself carries no
// identity.
type Payload struct {
	TenantID        TenantID
	Platform        Platform
	ObjectType      ObjectType
	OriginalID      string
	ContentType     ObjectType // alias of ObjectType, kept as a distinct field to match the stored payload shape
	Subject         string
	Status          Status
	Priority        Priority
	Tags            []string
	Category        string
	CreatedAt       int64 // epoch seconds
	UpdatedAt       int64
	SummarySections []string
	SummaryText     string
	ContentHash     string
	Language        Language
}

// PayloadIndexFields lists every payload field that must have a vector-store
// index for filtering to stay performant.
var PayloadIndexFields = []string{
	"tenant_id", "platform", "object_type", "status", "priority",
	"created_at", "tags", "category",
}

// VectorPoint is a single point in the shared "documents" collection.
type VectorPoint struct {
	ID           string
	Vector       []float32
	SparseVector SparseVector
	Payload      Payload
}

// DerivePointID computes the deterministic point id for an object: a v5
// UUID over tenant+platform+object_type+original_id, so re-ingesting
// unchanged content is idempotent at the point-id level regardless of
// content_hash.
func DerivePointID(tenantID TenantID, platform Platform, objectType ObjectType, originalID string) string {
	name := string(tenantID) + "|" + string(platform) + "|" + string(objectType) + "|" + originalID
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// EmbeddingCacheKey is the (model, content) key the embedder caches by.
// TenantID is deliberately absent: embeddings are content-addressed and
// shared across tenants for the same model+text.
type EmbeddingCacheKey struct {
	Model       string
	ContentHash string
}

// HashText computes the SHA-256 hex digest of a single text, used as the
// per-text embedding cache key component.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

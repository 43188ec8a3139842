package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// payloadIndexFieldTypes maps each §3 payload-index field to the Qdrant
// field type its values should be indexed as. tags and category are
// indexed as keyword (MatchAny over the array), created_at/priority as
// integer ranges.
var payloadIndexFieldTypes = map[string]qdrant.FieldType{
	"tenant_id":   qdrant.FieldType_FieldTypeKeyword,
	"platform":    qdrant.FieldType_FieldTypeKeyword,
	"object_type": qdrant.FieldType_FieldTypeKeyword,
	"status":      qdrant.FieldType_FieldTypeKeyword,
	"priority":    qdrant.FieldType_FieldTypeInteger,
	"created_at":  qdrant.FieldType_FieldTypeInteger,
	"tags":        qdrant.FieldType_FieldTypeKeyword,
	"category":    qdrant.FieldType_FieldTypeKeyword,
}

// EnsureCollection creates the shared "documents" collection if it doesn't
// already exist, with a named dense vector, an optional named sparse
// vector, and every payload index listed in §3.
func (g *Gateway) EnsureCollection(ctx context.Context) error {
	exists, err := g.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("qdrant: checking collection existence: %w", err)
	}
	if exists {
		return nil
	}

	create := &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			DenseVectorName: {
				Size:     g.cfg.EmbeddingSize,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	}
	if g.cfg.UseSparse {
		create.SparseVectorsConfig = qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			SparseVectorName: {},
		})
	}

	if err := g.client.CreateCollection(ctx, create); err != nil {
		return fmt.Errorf("qdrant: creating collection %s: %w", CollectionName, err)
	}

	for field, fieldType := range payloadIndexFieldTypes {
		ft := fieldType
		_, err := g.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      ft.Enum(),
		})
		if err != nil {
			return fmt.Errorf("qdrant: creating payload index on %s: %w", field, err)
		}
	}

	return nil
}

package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// buildPointStruct converts one domain.VectorPoint into the PointStruct
// Qdrant's Upsert expects, carrying both the named dense vector and, when
// present, the named sparse vector on the same point.
func buildPointStruct(p domain.VectorPoint) (*qdrant.PointStruct, error) {
	vectors := map[string]*qdrant.Vector{
		DenseVectorName: qdrant.NewVector(p.Vector...),
	}
	if len(p.SparseVector) > 0 {
		indices, values := sparseVectorToArrays(p.SparseVector)
		vectors[SparseVectorName] = qdrant.NewVectorSparse(indices, values)
	}

	payload, err := qdrant.TryValueMap(payloadToMap(p.Payload))
	if err != nil {
		return nil, fmt.Errorf("qdrant: converting payload for point %s: %w", p.ID, err)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(p.ID),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: payload,
	}, nil
}

func sparseVectorToArrays(sv domain.SparseVector) ([]uint32, []float32) {
	indices := make([]uint32, 0, len(sv))
	values := make([]float32, 0, len(sv))
	for id, weight := range sv {
		indices = append(indices, id)
		values = append(values, weight)
	}
	return indices, values
}

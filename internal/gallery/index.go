package gallery

import (
	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attend/internal/face"
)

// HNSW parameters tuned for face embeddings (hundreds of entries,
// 512 dimensions).
const indexMaxNeighbors = 16

// vectorIndex accelerates nearest-neighbor lookup for large galleries.
// It is built once per snapshot and never mutated, so searches need no
// locking. Results are approximate; the linear scan remains the
// reference behavior for stores that do not enable the index.
type vectorIndex struct {
	graph *hnsw.Graph[int]
}

// buildIndex indexes the vectors under their gallery positions.
func buildIndex(vectors [][]float32) *vectorIndex {
	g := hnsw.NewGraph[int]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, vec))
	}

	return &vectorIndex{graph: g}
}

// nearest returns the gallery position closest to query. The score is
// recomputed from the stored vector, so callers get the same cosine
// similarity the linear scan would report.
func (ix *vectorIndex) nearest(query []float32) (int, float32, bool) {
	neighbors := ix.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return 0, 0, false
	}

	n := neighbors[0]
	return n.Key, float32(face.CosineSimilarity(query, n.Value)), true
}

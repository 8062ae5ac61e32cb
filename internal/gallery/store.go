// Package gallery holds the known-identity embeddings that recognition
// matches against. The live gallery is an immutable snapshot behind an
// atomic pointer: matching reads the snapshot without locking, and a
// reload builds a complete replacement before publishing it in one swap.
package gallery

import (
	"fmt"
	"sync/atomic"
)

// Snapshot is one immutable generation of the gallery. All reads operate
// on a snapshot, so a reload can never change data under a running match.
type Snapshot struct {
	names   []string
	vectors [][]float32
	dim     int
	index   *vectorIndex
}

// Count returns the number of identities in the snapshot.
func (s *Snapshot) Count() int {
	return len(s.names)
}

// Dim returns the embedding dimensionality, 0 for an empty snapshot.
func (s *Snapshot) Dim() int {
	return s.dim
}

// Names returns a copy of the identity names in gallery order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func newSnapshot(names []string, vectors [][]float32, useIndex bool) (*Snapshot, error) {
	if len(names) != len(vectors) {
		return nil, fmt.Errorf("gallery cardinality mismatch: %d embeddings, %d names", len(vectors), len(names))
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("embedding %d has %d values, expected %d", i, len(vec), dim)
		}
	}

	snap := &Snapshot{
		names:   names,
		vectors: vectors,
		dim:     dim,
	}
	if useIndex && len(vectors) > 0 {
		snap.index = buildIndex(vectors)
	}
	return snap, nil
}

// Store owns the artifact paths and the live snapshot pointer.
type Store struct {
	embeddingsPath string
	namesPath      string
	useIndex       bool

	snap atomic.Pointer[Snapshot]
}

// NewStore creates a store for the given artifact pair. The store starts
// with an empty snapshot; call Load to read the artifacts.
func NewStore(embeddingsPath, namesPath string, useIndex bool) *Store {
	s := &Store{
		embeddingsPath: embeddingsPath,
		namesPath:      namesPath,
		useIndex:       useIndex,
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Load reads both artifacts into a fresh snapshot and publishes it.
// On any failure the previous snapshot stays live and untouched.
func (s *Store) Load() error {
	vectors, err := ReadEmbeddings(s.embeddingsPath)
	if err != nil {
		return err
	}
	names, err := ReadNames(s.namesPath)
	if err != nil {
		return err
	}

	snap, err := newSnapshot(names, vectors, s.useIndex)
	if err != nil {
		return err
	}

	s.snap.Store(snap)
	return nil
}

// Reload re-reads the artifacts and atomically swaps in the new gallery.
// Concurrent readers see either the fully-old or fully-new generation.
func (s *Store) Reload() error {
	return s.Load()
}

// Snapshot returns the current gallery generation. Never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

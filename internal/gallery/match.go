package gallery

import (
	"github.com/kozaktomas/face-attend/internal/face"
)

// Unknown is the name reported when no gallery identity clears the
// recognition threshold.
const Unknown = "Unknown"

// Match compares the query embedding against every gallery entry and
// returns the best name with its cosine similarity. The name is Unknown
// when the gallery is empty or the best score does not exceed threshold.
// Ties resolve to the lowest gallery index.
func (s *Snapshot) Match(query []float32, threshold float32) (string, float32) {
	if s == nil || len(s.vectors) == 0 {
		return Unknown, 0
	}

	best, score := s.nearest(query)
	if best < 0 {
		return Unknown, 0
	}
	if score > threshold {
		return s.names[best], score
	}
	return Unknown, score
}

func (s *Snapshot) nearest(query []float32) (int, float32) {
	if s.index != nil {
		if i, score, ok := s.index.nearest(query); ok {
			return i, score
		}
	}

	best := -1
	var bestScore float32
	for i, vec := range s.vectors {
		score := float32(face.CosineSimilarity(query, vec))
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best, bestScore
}

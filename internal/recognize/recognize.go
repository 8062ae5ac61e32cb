// Package recognize runs the frame-to-identity pipeline: detect faces,
// align each one to the canonical layout, embed the aligned crop and
// match the embedding against the gallery.
package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/kozaktomas/face-attend/internal/align"
	"github.com/kozaktomas/face-attend/internal/face"
	"github.com/kozaktomas/face-attend/internal/gallery"
)

// Detector finds faces with landmarks in a camera frame.
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]face.Detection, error)
}

// Embedder computes the identity embedding for an aligned face crop.
type Embedder interface {
	Embed(ctx context.Context, crop []byte) ([]float32, error)
}

// Result is one face identified in a frame. Name is gallery.Unknown
// when no identity cleared the recognition threshold or when this
// face failed a pipeline stage.
type Result struct {
	Box   face.Box
	Name  string
	Score float32
}

// Pipeline wires the detector, embedder and gallery into the per-frame
// recognition flow. A pipeline with missing capabilities still answers;
// it reports every face as unknown and logs the degradation once.
type Pipeline struct {
	detector  Detector
	embedder  Embedder
	store     *gallery.Store
	threshold float32

	noDetectorOnce sync.Once
	noEmbedderOnce sync.Once
}

// NewPipeline creates a recognition pipeline. The detector and embedder
// may be nil when their models are unavailable; store must not be nil.
func NewPipeline(detector Detector, embedder Embedder, store *gallery.Store, recognitionThreshold float32) *Pipeline {
	return &Pipeline{
		detector:  detector,
		embedder:  embedder,
		store:     store,
		threshold: recognitionThreshold,
	}
}

// Process identifies every face in the frame. Results keep detection
// order. A failure of one face never drops the others; frame-level
// problems (unreadable or tiny frames) yield empty results.
func (p *Pipeline) Process(ctx context.Context, frame []byte) ([]Result, error) {
	if len(frame) == 0 {
		return nil, nil
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		log.Printf("warning: undecodable frame (%d bytes): %v", len(frame), err)
		return nil, nil
	}
	bounds := img.Bounds()
	if bounds.Dx() < align.MinImageSize || bounds.Dy() < align.MinImageSize {
		return nil, nil
	}

	if p.detector == nil {
		p.noDetectorOnce.Do(func() {
			log.Printf("error: no face detector available, recognition disabled")
		})
		return nil, nil
	}

	detections, err := p.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	results := make([]Result, 0, len(detections))
	for _, det := range detections {
		if res, ok := p.processFace(ctx, img, det); ok {
			results = append(results, res)
		}
	}
	return results, nil
}

// processFace aligns, embeds and matches a single detection. Malformed
// boxes are dropped entirely; any other failure reports the face as
// unknown.
func (p *Pipeline) processFace(ctx context.Context, img image.Image, det face.Detection) (result Result, keep bool) {
	if det.Box.W <= 0 || det.Box.H <= 0 {
		return Result{}, false
	}

	result = Result{Box: det.Box, Name: gallery.Unknown}
	keep = true

	// Isolation boundary: an unexpected panic while handling one face
	// must not take down the frame.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered face processing panic: %v", r)
			result = Result{Box: det.Box, Name: gallery.Unknown}
			keep = true
		}
	}()

	name, score, err := p.identify(ctx, img, det)
	if err != nil {
		log.Printf("face at (%d,%d): %v", det.Box.X, det.Box.Y, err)
		return result, true
	}

	result.Name = name
	result.Score = score
	return result, true
}

func (p *Pipeline) identify(ctx context.Context, img image.Image, det face.Detection) (string, float32, error) {
	aligned, err := align.Align(img, det.Landmarks)
	if err != nil {
		return "", 0, fmt.Errorf("alignment: %w", err)
	}

	if p.embedder == nil {
		p.noEmbedderOnce.Do(func() {
			log.Printf("error: no face embedder available, reporting every face as %s", gallery.Unknown)
		})
		return gallery.Unknown, 0, nil
	}

	crop, err := encodePNG(aligned)
	if err != nil {
		return "", 0, err
	}

	embedding, err := p.embedder.Embed(ctx, crop)
	if err != nil {
		return "", 0, fmt.Errorf("embedding: %w", err)
	}
	if len(embedding) == 0 {
		return "", 0, fmt.Errorf("embedder returned an empty vector")
	}

	snap := p.store.Snapshot()
	if dim := snap.Dim(); dim > 0 && len(embedding) != dim {
		return "", 0, fmt.Errorf("embedding has %d values, gallery uses %d", len(embedding), dim)
	}

	face.Normalize(embedding)
	name, score := snap.Match(embedding, p.threshold)
	return name, score, nil
}

// BestResult picks the highest-scoring named face in a frame. It
// returns false when the frame holds no recognized identity.
func BestResult(results []Result) (Result, bool) {
	best := -1
	for i, r := range results {
		if r.Name == gallery.Unknown {
			continue
		}
		if best < 0 || r.Score > results[best].Score {
			best = i
		}
	}
	if best < 0 {
		return Result{}, false
	}
	return results[best], true
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding aligned crop: %w", err)
	}
	return buf.Bytes(), nil
}

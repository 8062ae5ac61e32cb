// Package align normalizes detected faces for embedding extraction.
// Five facial landmarks are mapped onto a fixed canonical layout with a
// robust similarity transform and the source frame is warped into a
// 112x112 buffer.
package align

import (
	"errors"
	"image"
	"log"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kozaktomas/face-attend/internal/face"
)

// Canonical output dimensions of a normalized face.
const (
	OutputWidth  = 112
	OutputHeight = 112
)

// MinImageSize is the smallest accepted source frame dimension.
const MinImageSize = 10

var (
	// ErrImageTooSmall reports a missing source frame or one under 10x10.
	ErrImageTooSmall = errors.New("source image missing or smaller than 10x10")
	// ErrBadLandmarks reports a landmark set that is not exactly five
	// finite points.
	ErrBadLandmarks = errors.New("landmark set invalid")
)

// referenceLayout holds the canonical positions of the five landmarks in
// 112x112 space (the ArcFace layout). Alignment maps detected landmarks
// onto these targets.
var referenceLayout = []face.Point{
	{X: 38.2946, Y: 51.6963}, // right eye
	{X: 73.5318, Y: 51.5014}, // left eye
	{X: 56.0252, Y: 71.7366}, // nose tip
	{X: 41.5493, Y: 92.3655}, // right mouth corner
	{X: 70.7299, Y: 92.2041}, // left mouth corner
}

// ReferenceLayout returns a copy of the canonical landmark targets.
func ReferenceLayout() []face.Point {
	out := make([]face.Point, len(referenceLayout))
	copy(out, referenceLayout)
	return out
}

// Align warps the source frame so that the given five landmarks land on
// the canonical reference layout, producing a 112x112 image. Pixels whose
// preimage falls outside the source are left black. Invalid input or a
// degenerate transform returns an error; Align never panics and has no
// side effects beyond a warning log.
func Align(img image.Image, landmarks []face.Point) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrImageTooSmall
	}
	bounds := img.Bounds()
	if bounds.Dx() < MinImageSize || bounds.Dy() < MinImageSize {
		return nil, ErrImageTooSmall
	}

	if len(landmarks) != face.LandmarkCount {
		return nil, ErrBadLandmarks
	}
	for _, p := range landmarks {
		if !finite32(p.X) || !finite32(p.Y) {
			log.Printf("align: rejecting non-finite landmark coordinates")
			return nil, ErrBadLandmarks
		}
	}

	m, err := EstimateSimilarity(landmarks, referenceLayout)
	if err != nil {
		log.Printf("align: transform estimation failed: %v", err)
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, OutputWidth, OutputHeight))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	aff := f64.Aff3{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
	}
	draw.BiLinear.Transform(dst, aff, img, bounds, draw.Src, nil)

	out := dst.Bounds()
	if out.Dx() != OutputWidth || out.Dy() != OutputHeight {
		return nil, ErrNoTransform
	}
	return dst, nil
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package align

import (
	"errors"
	"math"

	"github.com/kozaktomas/face-attend/internal/face"
)

// ErrNoTransform reports that no usable similarity transform could be
// estimated from the landmark set.
var ErrNoTransform = errors.New("no valid similarity transform")

// reprojTolerance is the maximum reprojection error (in reference-layout
// pixels) for a landmark to count as an inlier during consensus fitting.
// A single mis-localized landmark from the detector must not be allowed
// to skew the whole transform.
const reprojTolerance = 5.0

// Transform is a 2x3 similarity transform matrix mapping source pixel
// coordinates to reference-layout coordinates:
//
//	u = m[0][0]*x + m[0][1]*y + m[0][2]
//	v = m[1][0]*x + m[1][1]*y + m[1][2]
type Transform [2][3]float64

// Apply maps a source point through the transform.
func (m Transform) Apply(p face.Point) (float64, float64) {
	x, y := float64(p.X), float64(p.Y)
	return m[0][0]*x + m[0][1]*y + m[0][2],
		m[1][0]*x + m[1][1]*y + m[1][2]
}

// finite reports whether every matrix entry is a normal float.
func (m Transform) finite() bool {
	for i := range m {
		for j := range m[i] {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return false
			}
		}
	}
	return true
}

// fitSimilarity solves the least-squares similarity transform (scale,
// rotation, translation; 4 degrees of freedom) mapping src onto dst.
// With two points the fit is exact. Fails when the source points are
// coincident, which leaves the rotation and scale undetermined.
func fitSimilarity(src, dst []face.Point) (Transform, error) {
	n := float64(len(src))
	if len(src) < 2 || len(src) != len(dst) {
		return Transform{}, ErrNoTransform
	}

	var mx, my, mu, mv float64
	for i := range src {
		mx += float64(src[i].X)
		my += float64(src[i].Y)
		mu += float64(dst[i].X)
		mv += float64(dst[i].Y)
	}
	mx /= n
	my /= n
	mu /= n
	mv /= n

	// Centered cross terms. The similarity parameters decouple once both
	// point sets are centered on their means:
	//   a = sum(x'u' + y'v') / sum(x'^2 + y'^2)
	//   b = sum(x'v' - y'u') / sum(x'^2 + y'^2)
	var sxx, sxu, sxv float64
	for i := range src {
		x := float64(src[i].X) - mx
		y := float64(src[i].Y) - my
		u := float64(dst[i].X) - mu
		v := float64(dst[i].Y) - mv

		sxx += x*x + y*y
		sxu += x*u + y*v
		sxv += x*v - y*u
	}

	if sxx == 0 {
		return Transform{}, ErrNoTransform
	}

	a := sxu / sxx
	b := sxv / sxx
	tx := mu - a*mx + b*my
	ty := mv - b*mx - a*my

	m := Transform{
		{a, -b, tx},
		{b, a, ty},
	}
	if !m.finite() {
		return Transform{}, ErrNoTransform
	}
	return m, nil
}

// reprojError returns the Euclidean distance between the transformed
// source point and its target.
func reprojError(m Transform, src, dst face.Point) float64 {
	u, v := m.Apply(src)
	du := u - float64(dst.X)
	dv := v - float64(dst.Y)
	return math.Hypot(du, dv)
}

// EstimateSimilarity fits a similarity transform mapping src landmarks
// onto dst with a consensus search: every two-point minimal sample is
// evaluated, the sample with the largest inlier set (reprojection error
// within tolerance) wins, and the final transform is refit by least
// squares over that inlier set. The exhaustive sample enumeration makes
// the result deterministic for a given input.
func EstimateSimilarity(src, dst []face.Point) (Transform, error) {
	if len(src) != len(dst) || len(src) < 2 {
		return Transform{}, ErrNoTransform
	}

	var bestInliers []int
	for i := 0; i < len(src); i++ {
		for j := i + 1; j < len(src); j++ {
			sample, err := fitSimilarity(
				[]face.Point{src[i], src[j]},
				[]face.Point{dst[i], dst[j]},
			)
			if err != nil {
				continue
			}

			var inliers []int
			for k := range src {
				if reprojError(sample, src[k], dst[k]) <= reprojTolerance {
					inliers = append(inliers, k)
				}
			}
			if len(inliers) > len(bestInliers) {
				bestInliers = inliers
			}
		}
	}

	if len(bestInliers) < 2 {
		return Transform{}, ErrNoTransform
	}

	srcIn := make([]face.Point, len(bestInliers))
	dstIn := make([]face.Point, len(bestInliers))
	for i, k := range bestInliers {
		srcIn[i] = src[k]
		dstIn[i] = dst[k]
	}

	m, err := fitSimilarity(srcIn, dstIn)
	if err != nil {
		return Transform{}, err
	}
	return m, nil
}

package align

import (
	"math"
	"testing"

	"github.com/kozaktomas/face-attend/internal/face"
)

func TestFitSimilarityIdentity(t *testing.T) {
	pts := ReferenceLayout()

	m, err := fitSimilarity(pts, pts)
	if err != nil {
		t.Fatalf("fitSimilarity failed: %v", err)
	}

	assertNear(t, m[0][0], 1, 1e-9, "a")
	assertNear(t, m[1][0], 0, 1e-9, "b")
	assertNear(t, m[0][2], 0, 1e-6, "tx")
	assertNear(t, m[1][2], 0, 1e-6, "ty")
}

func TestFitSimilarityKnownTransform(t *testing.T) {
	// scale 2, rotation 30 degrees, translation (10, -5)
	theta := math.Pi / 6
	a := 2 * math.Cos(theta)
	b := 2 * math.Sin(theta)
	want := Transform{
		{a, -b, 10},
		{b, a, -5},
	}

	src := ReferenceLayout()
	dst := make([]face.Point, len(src))
	for i, p := range src {
		u, v := want.Apply(p)
		dst[i] = face.Point{X: float32(u), Y: float32(v)}
	}

	got, err := fitSimilarity(src, dst)
	if err != nil {
		t.Fatalf("fitSimilarity failed: %v", err)
	}

	for i := range want {
		for j := range want[i] {
			assertNear(t, got[i][j], want[i][j], 1e-3, "matrix entry")
		}
	}
}

func TestFitSimilarityDegenerate(t *testing.T) {
	same := face.Point{X: 50, Y: 50}
	src := []face.Point{same, same, same, same, same}

	_, err := fitSimilarity(src, ReferenceLayout())
	if err == nil {
		t.Error("expected error for coincident source points")
	}
}

func TestFitSimilarityTooFewPoints(t *testing.T) {
	_, err := fitSimilarity([]face.Point{{X: 1, Y: 2}}, []face.Point{{X: 3, Y: 4}})
	if err == nil {
		t.Error("expected error for a single point")
	}
}

func TestEstimateSimilarityExactMatch(t *testing.T) {
	pts := ReferenceLayout()

	m, err := EstimateSimilarity(pts, pts)
	if err != nil {
		t.Fatalf("EstimateSimilarity failed: %v", err)
	}

	for i, p := range pts {
		if e := reprojError(m, p, pts[i]); e > 1e-6 {
			t.Errorf("landmark %d reprojection error %f, want ~0", i, e)
		}
	}
}

func TestEstimateSimilarityRejectsOutlier(t *testing.T) {
	// Four landmarks agree on the identity mapping; the fifth is wildly
	// mis-localized. The consensus fit must recover the identity instead
	// of letting the outlier drag the transform.
	dst := ReferenceLayout()
	src := ReferenceLayout()
	src[3].X += 40
	src[3].Y -= 30

	m, err := EstimateSimilarity(src, dst)
	if err != nil {
		t.Fatalf("EstimateSimilarity failed: %v", err)
	}

	assertNear(t, m[0][0], 1, 0.01, "a")
	assertNear(t, m[1][0], 0, 0.01, "b")
	assertNear(t, m[0][2], 0, 1.0, "tx")
	assertNear(t, m[1][2], 0, 1.0, "ty")

	// The good landmarks reproject tightly, the outlier does not.
	for i := range dst {
		e := reprojError(m, src[i], dst[i])
		if i == 3 {
			if e < reprojTolerance {
				t.Errorf("outlier reprojection error %f unexpectedly within tolerance", e)
			}
			continue
		}
		if e > 1.0 {
			t.Errorf("inlier %d reprojection error %f, want < 1", i, e)
		}
	}
}

func TestEstimateSimilarityNoisyInliers(t *testing.T) {
	dst := ReferenceLayout()
	src := ReferenceLayout()
	// Sub-pixel jitter on every landmark, all within tolerance.
	jitter := []face.Point{
		{X: 0.4, Y: -0.3}, {X: -0.5, Y: 0.2}, {X: 0.1, Y: 0.6}, {X: -0.2, Y: -0.4}, {X: 0.3, Y: 0.1},
	}
	for i := range src {
		src[i].X += jitter[i].X
		src[i].Y += jitter[i].Y
	}

	m, err := EstimateSimilarity(src, dst)
	if err != nil {
		t.Fatalf("EstimateSimilarity failed: %v", err)
	}

	assertNear(t, m[0][0], 1, 0.05, "a")
	assertNear(t, m[1][0], 0, 0.05, "b")
}

func TestEstimateSimilarityMismatchedLengths(t *testing.T) {
	_, err := EstimateSimilarity(ReferenceLayout()[:3], ReferenceLayout())
	if err == nil {
		t.Error("expected error for mismatched point counts")
	}
}

func TestTransformApply(t *testing.T) {
	m := Transform{
		{1, 0, 10},
		{0, 1, -20},
	}

	u, v := m.Apply(face.Point{X: 5, Y: 7})
	if u != 15 || v != -13 {
		t.Errorf("Apply(5,7) = (%f, %f); want (15, -13)", u, v)
	}
}

// assertNear fails the test when got is not within delta of want.
func assertNear(t *testing.T, got, want, delta float64, label string) {
	t.Helper()
	if math.Abs(got-want) > delta {
		t.Errorf("%s = %f; want %f (±%f)", label, got, want, delta)
	}
}

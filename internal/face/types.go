// Package face holds the shared domain types of the recognition pipeline:
// detector output records, landmark sets and embedding vector helpers.
package face

// Point is a 2D coordinate in source-image pixel space.
type Point struct {
	X float32
	Y float32
}

// Box is a detection bounding box in source-image pixel space.
type Box struct {
	X int
	Y int
	W int
	H int
}

// Landmark indices within a detection, following the YuNet layout.
const (
	LandmarkRightEye = iota
	LandmarkLeftEye
	LandmarkNoseTip
	LandmarkRightMouth
	LandmarkLeftMouth

	LandmarkCount = 5
)

// Detection is a single detected face: bounding box, the five alignment
// landmarks and the detector's confidence score.
type Detection struct {
	Box       Box
	Landmarks []Point
	Score     float32
}

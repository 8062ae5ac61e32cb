package face

import (
	"errors"
	"fmt"
)

// DetectionFloats is the length of a flattened detection record:
// bbox [x, y, w, h], five (x, y) landmark pairs, confidence score.
const DetectionFloats = 15

// ErrBadDetection reports a detection record that does not match the
// expected flattened layout.
var ErrBadDetection = errors.New("malformed detection record")

// ParseDetection decodes one flattened detector record into a Detection.
// The record layout is [x, y, w, h, lm0x, lm0y, ..., lm4x, lm4y, score].
// Bounding box coordinates are truncated to integer pixels; landmarks
// keep sub-pixel precision for the aligner.
func ParseDetection(row []float32) (Detection, error) {
	if len(row) != DetectionFloats {
		return Detection{}, fmt.Errorf("%w: got %d values, want %d", ErrBadDetection, len(row), DetectionFloats)
	}

	det := Detection{
		Box: Box{
			X: int(row[0]),
			Y: int(row[1]),
			W: int(row[2]),
			H: int(row[3]),
		},
		Landmarks: make([]Point, LandmarkCount),
		Score:     row[14],
	}

	for i := range LandmarkCount {
		det.Landmarks[i] = Point{
			X: row[4+i*2],
			Y: row[5+i*2],
		}
	}

	return det, nil
}

// ParseDetections decodes a batch of flattened detector records.
// A single malformed record fails the whole batch; the detector either
// speaks the record format or it does not.
func ParseDetections(rows [][]float32) ([]Detection, error) {
	dets := make([]Detection, 0, len(rows))
	for i, row := range rows {
		det, err := ParseDetection(row)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		dets = append(dets, det)
	}
	return dets, nil
}

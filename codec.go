package yololbl

// Conversion between absolute pixel boxes and normalized YOLO records.

import (
	"math"
)

// NormalizedRecord is one YOLO annotation: a class index and the box center and size as
// fractions of the image width and height.
type NormalizedRecord struct {
	ClassIndex int
	XCenter    float64
	YCenter    float64
	W          float64
	H          float64
}

// Encode converts box to a normalized record, assigning a class index through r. New labels are
// appended to r. The difficult flag has no representation and is dropped.
//
// Values are not clamped: a box reaching outside the image yields fractions outside [0, 1].
func Encode(box BoundingBox, dims ImageDimensions, r *ClassRegistry) NormalizedRecord {
	width := float64(dims.Width)
	height := float64(dims.Height)

	return NormalizedRecord{
		ClassIndex: r.IndexOf(box.Label),
		XCenter:    (box.XMin + box.XMax) / 2 / width,
		YCenter:    (box.YMin + box.YMax) / 2 / height,
		W:          (box.XMax - box.XMin) / width,
		H:          (box.YMax - box.YMin) / height,
	}
}

// Decode converts rec back to an absolute pixel box for an image of size dims, resolving the label
// through r. Fails with KindOutOfRange if r has no label for the class index.
//
// Each edge is clamped to the image independently, so a record extending past the border is cut
// at that border. Pixel coordinates are rounded half to even. Difficult is always false.
func Decode(rec NormalizedRecord, dims ImageDimensions, r *ClassRegistry) (BoundingBox, error) {
	label, err := r.LabelAt(rec.ClassIndex)
	if err != nil {
		return BoundingBox{}, err
	}

	// Negative sizes are read as their magnitude so that min <= max holds.
	halfW := math.Abs(rec.W) / 2
	halfH := math.Abs(rec.H) / 2

	xMin := Clamp(rec.XCenter-halfW, 0, 1)
	xMax := Clamp(rec.XCenter+halfW, 0, 1)
	yMin := Clamp(rec.YCenter-halfH, 0, 1)
	yMax := Clamp(rec.YCenter+halfH, 0, 1)

	width := float64(dims.Width)
	height := float64(dims.Height)

	return BoundingBox{
		XMin:  roundPixel(xMin * width),
		YMin:  roundPixel(yMin * height),
		XMax:  roundPixel(xMax * width),
		YMax:  roundPixel(yMax * height),
		Label: label,
	}, nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundPixel(v float64) float64 {
	return math.RoundToEven(v)
}

package yololbl

// Absolute-pixel representation of box annotations, shared by the reader and the writer.

// ImageDimensions describes the image a set of annotations belongs to.
type ImageDimensions struct {
	Height   int
	Width    int
	Channels int // 1 for grayscale, 3 otherwise.
}

// Valid reports whether both sides are positive.
func (d ImageDimensions) Valid() bool {
	return d.Height > 0 && d.Width > 0
}

// IsGrayscale reports whether the image has a single channel.
func (d ImageDimensions) IsGrayscale() bool {
	return d.Channels == 1
}

// BoundingBox is an axis-aligned box with absolute pixel corners, measured from the top-left
// corner of the image. Callers keep XMin <= XMax and YMin <= YMax.
type BoundingBox struct {
	XMin      float64 `json:"xmin" yaml:"xmin"`
	YMin      float64 `json:"ymin" yaml:"ymin"`
	XMax      float64 `json:"xmax" yaml:"xmax"`
	YMax      float64 `json:"ymax" yaml:"ymax"`
	Label     string  `json:"label" yaml:"label"`
	Difficult bool    `json:"difficult" yaml:"difficult"` // Not representable in YOLO files.
}

// Width is the box width.
func (b BoundingBox) Width() float64 {
	return b.XMax - b.XMin
}

// Height is the box height.
func (b BoundingBox) Height() float64 {
	return b.YMax - b.YMin
}

// Point is a pixel position.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Shape is a decoded box as consumed by a display layer: four corners in clockwise order
// starting at the top-left.
type Shape struct {
	Label     string   `json:"label" yaml:"label"`
	Points    [4]Point `json:"points" yaml:"points"`
	Difficult bool     `json:"difficult" yaml:"difficult"`
}

// ShapeFromBox converts b to its quadrilateral form.
func ShapeFromBox(b BoundingBox) Shape {
	return Shape{
		Label: b.Label,
		Points: [4]Point{
			{b.XMin, b.YMin},
			{b.XMax, b.YMin},
			{b.XMax, b.YMax},
			{b.XMin, b.YMax},
		},
		Difficult: b.Difficult,
	}
}

// Box returns the bounding box spanned by the shape's corners.
func (s Shape) Box() BoundingBox {
	b := BoundingBox{
		XMin:      s.Points[0].X,
		YMin:      s.Points[0].Y,
		XMax:      s.Points[0].X,
		YMax:      s.Points[0].Y,
		Label:     s.Label,
		Difficult: s.Difficult,
	}
	for _, p := range s.Points[1:] {
		if p.X < b.XMin {
			b.XMin = p.X
		}
		if p.X > b.XMax {
			b.XMax = p.X
		}
		if p.Y < b.YMin {
			b.YMin = p.Y
		}
		if p.Y > b.YMax {
			b.YMax = p.Y
		}
	}
	return b
}

// AnnotatedFile holds the decoded annotations of one image.
type AnnotatedFile struct {
	Boxes          []BoundingBox   `json:"boxes" yaml:"boxes"`
	Dims           ImageDimensions `json:"-" yaml:"-"`
	FilePath       string          `json:"image" yaml:"image"` // The annotated image.
	AnnotationPath string          `json:"annotation" yaml:"annotation"`
	Verified       bool            `json:"verified" yaml:"verified"`
}

// Shapes returns the boxes of f in quadrilateral form, in order.
func (f AnnotatedFile) Shapes() []Shape {
	shapes := make([]Shape, len(f.Boxes))
	for i, b := range f.Boxes {
		shapes[i] = ShapeFromBox(b)
	}
	return shapes
}

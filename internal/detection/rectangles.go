package detection

import (
	"fmt"
	"image"

	"github.com/ironsheep/rectnest-mcp/internal/imaging"
)

// Detector defaults.
const (
	// DefaultBinaryThreshold splits the enhanced image: values above it are foreground.
	DefaultBinaryThreshold = 127

	// DefaultApproxEpsilon is the polygon approximation tolerance as a
	// fraction of the curve's perimeter.
	DefaultApproxEpsilon = 0.01
)

// Record is one detected rectangle.
//
// TopLeft is the bounding box origin (x, y) and BottomRight is (x+w, y+h),
// one past the last covered pixel on each axis.
type Record struct {
	TopLeft     Point `json:"top_left"`
	BottomRight Point `json:"bottom_right"`

	// Level is the number of traced curves whose bounding box lies strictly
	// inside this rectangle's bounding box.
	Level int `json:"level"`
}

// String formats the record as one line of detector output.
func (r Record) String() string {
	return fmt.Sprintf("Rectangle: (%d, %d) - (%d, %d), Level: %d",
		r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y, r.Level)
}

// Box returns the record's bounding box.
func (r Record) Box() Box {
	return Box{
		X: r.TopLeft.X,
		Y: r.TopLeft.Y,
		W: r.BottomRight.X - r.TopLeft.X,
		H: r.BottomRight.Y - r.TopLeft.Y,
	}
}

// Options configures a detection backend.
type Options struct {
	// Preprocess configures grayscale, blur and CLAHE.
	Preprocess imaging.PreprocessParams `json:"preprocess" yaml:"preprocess"`

	// BinaryThreshold is the global threshold (0-255). Pixels strictly above
	// it are foreground.
	BinaryThreshold int `json:"binary_threshold" yaml:"binary_threshold"`

	// ApproxEpsilon is the Douglas–Peucker tolerance as a fraction of the
	// curve's closed arc length. Must be in (0, 1).
	ApproxEpsilon float64 `json:"approx_epsilon" yaml:"approx_epsilon"`

	// TraceHoles adds hole borders to the curve list. Off by default, so each
	// connected foreground region contributes only its outer border.
	TraceHoles bool `json:"trace_holes" yaml:"trace_holes"`

	// Nesting selects the comparison set for levels.
	Nesting NestingMode `json:"nesting" yaml:"nesting"`
}

// DefaultOptions returns the options the detector was tuned with.
func DefaultOptions() Options {
	return Options{
		Preprocess:      imaging.DefaultPreprocessParams(),
		BinaryThreshold: DefaultBinaryThreshold,
		ApproxEpsilon:   DefaultApproxEpsilon,
		TraceHoles:      false,
		Nesting:         NestingAllCurves,
	}
}

// Validate reports whether the options can be used.
func (o Options) Validate() error {
	if err := o.Preprocess.Validate(); err != nil {
		return err
	}
	if o.BinaryThreshold < 0 || o.BinaryThreshold > 255 {
		return fmt.Errorf("binary threshold must be in [0, 255], got %d", o.BinaryThreshold)
	}
	if o.ApproxEpsilon <= 0 || o.ApproxEpsilon >= 1 {
		return fmt.Errorf("approximation epsilon must be in (0, 1), got %g", o.ApproxEpsilon)
	}
	if _, err := ParseNestingMode(string(o.Nesting)); err != nil {
		return err
	}
	return nil
}

// approximator reduces a closed curve to a polygon, with tolerance given as
// a fraction of the curve's perimeter.
type approximator func(points []Point, fraction float64) []Point

// approximateNative is the pure Go approximator.
func approximateNative(points []Point, fraction float64) []Point {
	return ApproxPolyDP(points, fraction*ArcLength(points, true), true)
}

// collectRecords turns traced curves into rectangle records.
//
// A curve qualifies when its approximation has exactly four vertices and is
// convex, and its bounding box does not touch the border of a width × height
// image. Records are emitted in curve order.
func collectRecords(curves []Curve, width, height int, opts Options, approx approximator) []Record {
	boxes := make([]Box, len(curves))
	qualifying := make([]int, 0)

	for i, c := range curves {
		boxes[i] = BoundingBox(c.Points)

		poly := approx(c.Points, opts.ApproxEpsilon)
		if len(poly) != 4 || !IsConvex(poly) {
			continue
		}
		if boxes[i].TouchesBorder(width, height) {
			continue
		}
		qualifying = append(qualifying, i)
	}

	levels := Levels(boxes, qualifying, opts.Nesting)

	records := make([]Record, len(qualifying))
	for k, i := range qualifying {
		b := boxes[i]
		records[k] = Record{
			TopLeft:     Point{X: b.X, Y: b.Y},
			BottomRight: Point{X: b.X + b.W, Y: b.Y + b.H},
			Level:       levels[k],
		}
	}
	return records
}

// nativeBackend runs the whole pipeline in Go.
type nativeBackend struct {
	opts Options
}

func (b *nativeBackend) Name() string { return BackendNative }

// Detect finds the nested rectangles in img.
//
// # Algorithm
//
//  1. Preprocess: grayscale, Gaussian blur, CLAHE
//  2. Binarize: foreground iff value > BinaryThreshold
//  3. Border following: one curve per border, in raster order
//  4. Qualification: 4-vertex convex approximation, box clear of the image border
//  5. Levels: strict bounding-box enclosure counts
//
// # Limitations
//
//   - Containment is judged on axis-aligned bounding boxes, not polygons
//   - Rotated rectangles qualify, but are reported by their bounding boxes
func (b *nativeBackend) Detect(img image.Image) ([]Record, error) {
	gray, err := imaging.Preprocess(img, b.opts.Preprocess)
	if err != nil {
		return nil, err
	}

	mask := Binarize(gray, uint8(b.opts.BinaryThreshold))
	curves := FindContours(mask, b.opts.TraceHoles)

	bounds := mask.Bounds()
	return collectRecords(curves, bounds.Dx(), bounds.Dy(), b.opts, approximateNative), nil
}

// DetectRectangles runs the native backend with opts.
func DetectRectangles(img image.Image, opts Options) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return (&nativeBackend{opts: opts}).Detect(img)
}

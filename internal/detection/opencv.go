//go:build gocv
// +build gocv

package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/rectnest-mcp/internal/imaging"
)

// openCVBackend runs preprocessing, thresholding, border following and
// polygon approximation in OpenCV. Convexity, edge rejection and levels are
// shared with the native backend.
//
// Curve order follows OpenCV's contour order, which is not raster order.
// Hole borders are returned with Hole unset.
type openCVBackend struct {
	opts Options
}

func newOpenCVBackend(opts Options) (Backend, error) {
	return &openCVBackend{opts: opts}, nil
}

func (b *openCVBackend) Name() string { return BackendOpenCV }

// Detect finds the nested rectangles in img using OpenCV.
func (b *openCVBackend) Detect(img image.Image) ([]Record, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", imaging.ErrInvalidInput)
	}
	if r := img.Bounds(); r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image (%dx%d)", imaging.ErrInvalidInput, r.Dx(), r.Dy())
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	p := b.opts.Preprocess
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)

	clahe := gocv.NewCLAHEWithParams(p.ClipLimit, image.Pt(p.TileGrid, p.TileGrid))
	defer clahe.Close()
	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(blurred, &enhanced)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(enhanced, &mask, float32(b.opts.BinaryThreshold), 255, gocv.ThresholdBinary)

	// CComp puts every outer border at the top level of a two-level
	// hierarchy, so dropping children removes exactly the holes.
	mode := gocv.RetrievalCComp
	if b.opts.TraceHoles {
		mode = gocv.RetrievalList
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(mask, &hierarchy, mode, gocv.ChainApproxSimple)
	defer contours.Close()

	curves := make([]Curve, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		if !b.opts.TraceHoles && hierarchy.GetVeciAt(0, i)[3] != -1 {
			continue
		}
		curves = append(curves, Curve{Points: fromImagePoints(contours.At(i).ToPoints())})
	}

	return collectRecords(curves, mask.Cols(), mask.Rows(), b.opts, approximateOpenCV), nil
}

// approximateOpenCV is the approximator backed by cv::approxPolyDP.
func approximateOpenCV(points []Point, fraction float64) []Point {
	pv := gocv.NewPointVectorFromPoints(toImagePoints(points))
	defer pv.Close()

	approx := gocv.ApproxPolyDP(pv, fraction*gocv.ArcLength(pv, true), true)
	defer approx.Close()

	return fromImagePoints(approx.ToPoints())
}

func toImagePoints(points []Point) []image.Point {
	out := make([]image.Point, len(points))
	for i, p := range points {
		out[i] = p.ImagePoint()
	}
	return out
}

func fromImagePoints(points []image.Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: p.X, Y: p.Y}
	}
	return out
}

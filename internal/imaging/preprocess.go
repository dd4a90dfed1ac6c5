package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// ErrInvalidInput is returned when an image is nil or has zero width or height.
var ErrInvalidInput = errors.New("invalid input image")

// Preprocessing defaults.
const (
	// DefaultBlurKernel is the side length of the Gaussian neighborhood.
	DefaultBlurKernel = 7

	// DefaultClipLimit bounds per-tile histogram amplification in CLAHE.
	DefaultClipLimit = 10.0

	// DefaultTileGrid is the number of CLAHE tiles along each axis.
	DefaultTileGrid = 8
)

// PreprocessParams configures the grayscale → blur → CLAHE chain.
type PreprocessParams struct {
	// BlurKernel is the Gaussian kernel size in pixels. Must be odd and >= 1.
	BlurKernel int `json:"blur_kernel" yaml:"blur_kernel"`

	// ClipLimit is the CLAHE clip limit. Zero disables clipping.
	ClipLimit float64 `json:"clip_limit" yaml:"clip_limit"`

	// TileGrid is the number of CLAHE tiles per axis (TileGrid × TileGrid).
	TileGrid int `json:"tile_grid" yaml:"tile_grid"`
}

// DefaultPreprocessParams returns the parameters the detector was tuned with.
func DefaultPreprocessParams() PreprocessParams {
	return PreprocessParams{
		BlurKernel: DefaultBlurKernel,
		ClipLimit:  DefaultClipLimit,
		TileGrid:   DefaultTileGrid,
	}
}

// Validate reports whether the parameters can be applied.
func (p PreprocessParams) Validate() error {
	if p.BlurKernel < 1 || p.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", p.BlurKernel)
	}
	if p.ClipLimit < 0 {
		return fmt.Errorf("clip limit must not be negative, got %g", p.ClipLimit)
	}
	if p.TileGrid < 1 {
		return fmt.Errorf("tile grid must be positive, got %d", p.TileGrid)
	}
	return nil
}

// Preprocess converts an image into an enhanced single-channel image suitable
// for global thresholding.
//
// Steps, each applied unconditionally:
//
//  1. Grayscale conversion
//  2. Gaussian blur with a BlurKernel × BlurKernel neighborhood
//  3. CLAHE with a TileGrid × TileGrid tile layout and ClipLimit
//
// The returned image has the same width and height as img with its origin at (0, 0).
// The input is never modified.
//
// # Errors
//
//   - ErrInvalidInput if img is nil or empty
//   - A validation error if p is unusable
func Preprocess(img image.Image, p PreprocessParams) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image (%dx%d)", ErrInvalidInput, bounds.Dx(), bounds.Dy())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	gray := Grayscale(img)
	blurred := GaussianBlur(gray, p.BlurKernel)
	return CLAHE(blurred, p.ClipLimit, p.TileGrid), nil
}

// Luma weights used by OpenCV's BGR2GRAY conversion (ITU-R BT.601).
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Grayscale returns a single-channel copy of img with its origin at (0, 0),
// weighting channels as OpenCV does.
func Grayscale(img image.Image) *image.Gray {
	// Clone rebases the bounds so every later stage can index from zero.
	g := effect.GrayscaleWithWeights(imaging.Clone(img), lumaR, lumaG, lumaB)
	return firstChannel(g, g.Bounds())
}

// GaussianBlur applies a separable size × size Gaussian blur.
//
// Sigma is derived from the kernel size the way OpenCV does when no sigma is
// given: sigma = 0.3*((size-1)*0.5 - 1) + 0.8, i.e. 1.4 for a 7 × 7 kernel.
// The image is extended by mirroring (reflect-101) before convolving.
func GaussianBlur(gray *image.Gray, size int) *image.Gray {
	radius := size / 2
	padded := padReflect101(gray, radius)
	if radius == 0 {
		return padded
	}

	k := gaussianKernel(size)
	// Bias rounds to nearest when the convolution truncates to uint8.
	opts := &convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}
	horizontal := convolution.Convolve(padded, k, opts)
	both := convolution.Convolve(horizontal, k.Transposed(), opts)

	b := gray.Bounds()
	return firstChannel(both, image.Rect(radius, radius, radius+b.Dx(), radius+b.Dy()))
}

// gaussianKernel builds a normalized 1-D kernel of the given odd length.
func gaussianKernel(size int) convolution.Matrix {
	sigma := 0.3*((float64(size)-1)*0.5-1) + 0.8
	radius := size / 2

	k := convolution.NewKernel(size, 1)
	for i := 0; i < size; i++ {
		x := float64(i - radius)
		k.Matrix[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
	}
	return k.Normalized()
}

// padReflect101 returns a copy of src grown by pad pixels on every side,
// filled by mirroring without repeating the edge pixel.
func padReflect101(src *image.Gray, pad int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w+2*pad, h+2*pad))
	for y := 0; y < h+2*pad; y++ {
		sy := b.Min.Y + reflect101(y-pad, h)
		row := y * dst.Stride
		for x := 0; x < w+2*pad; x++ {
			dst.Pix[row+x] = src.Pix[src.PixOffset(b.Min.X+reflect101(x-pad, w), sy)]
		}
	}
	return dst
}

// firstChannel extracts the red channel of r from an RGBA image whose
// channels are all equal (the output of convolving a gray image).
func firstChannel(src *image.RGBA, r image.Rectangle) *image.Gray {
	w, h := r.Dx(), r.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcRow := src.PixOffset(r.Min.X, r.Min.Y+y)
		dstRow := y * dst.Stride
		for x := 0; x < w; x++ {
			dst.Pix[dstRow+x] = src.Pix[srcRow+x*4]
		}
	}
	return dst
}

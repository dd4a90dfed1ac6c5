// Package annotate draws detected rectangles and their nesting levels onto images.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"reflect"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/rectnest-mcp/internal/detection"
	rimaging "github.com/ironsheep/rectnest-mcp/internal/imaging"
)

// Style defaults.
const (
	DefaultBoxColor    = "#00EE00"
	DefaultLabelColor  = "#0000EE"
	DefaultThickness   = 2
	DefaultLabelOffset = 20
)

// Style controls how records are drawn.
type Style struct {
	// BoxColor is the outline color as "#RRGGBB" or "#RGB".
	BoxColor string `json:"box_color" yaml:"box_color"`

	// LabelColor is the level label color as "#RRGGBB" or "#RGB".
	LabelColor string `json:"label_color" yaml:"label_color"`

	// Thickness is the outline width in pixels, centered on the box edges.
	Thickness int `json:"thickness" yaml:"thickness"`

	// LabelOffset shifts the label right of the top-left corner for records
	// at even positions. Odd positions are not shifted, so labels of
	// rectangles sharing a corner region are less likely to overlap.
	LabelOffset int `json:"label_offset" yaml:"label_offset"`

	// Face renders the labels. Nil selects basicfont.Face7x13.
	Face font.Face `json:"-" yaml:"-"`
}

// DefaultStyle returns green 2 px outlines with blue labels.
func DefaultStyle() Style {
	return Style{
		BoxColor:    DefaultBoxColor,
		LabelColor:  DefaultLabelColor,
		Thickness:   DefaultThickness,
		LabelOffset: DefaultLabelOffset,
	}
}

// Validate reports whether the style can be drawn.
func (s Style) Validate() error {
	_, _, err := s.colors()
	return err
}

func (s Style) colors() (color.RGBA, color.RGBA, error) {
	if s.Thickness < 1 {
		return color.RGBA{}, color.RGBA{}, fmt.Errorf("thickness must be positive, got %d", s.Thickness)
	}
	if s.LabelOffset < 0 {
		return color.RGBA{}, color.RGBA{}, fmt.Errorf("label offset must not be negative, got %d", s.LabelOffset)
	}
	box, err := parseColor(s.BoxColor)
	if err != nil {
		return color.RGBA{}, color.RGBA{}, fmt.Errorf("box color: %w", err)
	}
	label, err := parseColor(s.LabelColor)
	if err != nil {
		return color.RGBA{}, color.RGBA{}, fmt.Errorf("label color: %w", err)
	}
	return box, label, nil
}

func (s Style) face() font.Face {
	if s.Face != nil {
		return s.Face
	}
	return basicfont.Face7x13
}

// parseColor converts a hex string to an opaque color.
func parseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Annotate draws every record onto dst in order: the outline, then the
// level label with its baseline at the top-left corner. The label of the
// record at index i is shifted right by LabelOffset when i is even.
//
// Drawing is clipped to dst. With no records dst is left untouched. A nil or
// empty dst fails with imaging.ErrInvalidInput.
func Annotate(dst draw.Image, records []detection.Record, s Style) error {
	if err := checkImage(dst); err != nil {
		return err
	}
	boxColor, labelColor, err := s.colors()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	boxSrc := image.NewUniform(boxColor)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: s.face(),
	}

	for i, r := range records {
		drawOutline(dst, r, s.Thickness, boxSrc)

		offset := 0
		if i%2 == 0 {
			offset = s.LabelOffset
		}
		d.Dot = fixed.P(r.TopLeft.X+offset, r.TopLeft.Y)
		d.DrawString(strconv.Itoa(r.Level))
	}
	return nil
}

// Copy returns an annotated copy of src, leaving src untouched. The copy's
// origin is (0,0).
func Copy(src image.Image, records []detection.Record, s Style) (*image.NRGBA, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	dst := imaging.Clone(src)
	if err := Annotate(dst, records, s); err != nil {
		return nil, err
	}
	return dst, nil
}

// checkImage rejects nil images, including typed nil pointers, and images
// without pixels.
func checkImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", rimaging.ErrInvalidInput)
	}
	if v := reflect.ValueOf(img); v.Kind() == reflect.Ptr && v.IsNil() {
		return fmt.Errorf("%w: nil image", rimaging.ErrInvalidInput)
	}
	if img.Bounds().Empty() {
		return fmt.Errorf("%w: empty image", rimaging.ErrInvalidInput)
	}
	return nil
}

// drawOutline fills a band of the given thickness centered on the edges of
// the record's pixel box [TopLeft, BottomRight).
func drawOutline(dst draw.Image, r detection.Record, thickness int, src image.Image) {
	box := image.Rect(r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
	half := thickness / 2
	outer := box.Inset(-half)
	inner := outer.Inset(thickness)

	if inner.Empty() {
		draw.Draw(dst, outer, src, image.Point{}, draw.Src)
		return
	}

	bands := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y), // top
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y), // bottom
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), // left
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y), // right
	}
	for _, band := range bands {
		draw.Draw(dst, band, src, image.Point{}, draw.Src)
	}
}

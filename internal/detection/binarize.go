package detection

import "image"

// Foreground and background values of a binary mask.
const (
	MaskOn  uint8 = 255
	MaskOff uint8 = 0
)

// Binarize applies a global threshold: a pixel becomes MaskOn when its value
// is strictly greater than threshold and MaskOff otherwise.
//
// The mask has the same size as gray with its origin at (0,0).
func Binarize(gray *image.Gray, threshold uint8) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		src := gray.Pix[gray.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			if src[x] > threshold {
				dst[x] = MaskOn
			}
		}
	}
	return mask
}

package imaging

import (
	"image"
	"math"
)

const histBins = 256

// CLAHE applies Contrast Limited Adaptive Histogram Equalization.
//
// The image is divided into grid × grid tiles. Each tile gets its own
// equalization lookup table built from a histogram whose bins are clipped at
// clipLimit × tileArea / 256; the clipped excess is spread back over all bins.
// Every output pixel is a bilinear blend of the lookup tables of the four
// nearest tile centers, which hides tile seams.
//
// When the image size is not a multiple of grid, tiles are sized by rounding
// up and the histogram of the overhanging area is taken from a mirrored
// (reflect-101) extension of the image. A clipLimit of 0 disables clipping.
//
// The result always has its origin at (0, 0).
func CLAHE(src *image.Gray, clipLimit float64, grid int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}
	if grid < 1 {
		grid = 1
	}

	at := func(x, y int) uint8 {
		return src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]
	}

	tileW := (w + grid - 1) / grid
	tileH := (h + grid - 1) / grid
	tileArea := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = int(clipLimit * float64(tileArea) / histBins)
		if clip < 1 {
			clip = 1
		}
	}
	lutScale := float64(histBins-1) / float64(tileArea)

	luts := make([][histBins]uint8, grid*grid)
	for ty := 0; ty < grid; ty++ {
		for tx := 0; tx < grid; tx++ {
			var hist [histBins]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				yy := reflect101(y, h)
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[at(reflect101(x, w), yy)]++
				}
			}
			if clip > 0 {
				clipHistogram(&hist, clip)
			}

			lut := &luts[ty*grid+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = saturate(float64(sum) * lutScale)
			}
		}
	}

	invTileW := 1 / float64(tileW)
	invTileH := 1 / float64(tileH)
	for y := 0; y < h; y++ {
		ty1, ty2, ya := tileNeighbors(float64(y)*invTileH-0.5, grid)
		row := y * dst.Stride
		for x := 0; x < w; x++ {
			tx1, tx2, xa := tileNeighbors(float64(x)*invTileW-0.5, grid)
			v := at(x, y)

			top := float64(luts[ty1*grid+tx1][v])*(1-xa) + float64(luts[ty1*grid+tx2][v])*xa
			bottom := float64(luts[ty2*grid+tx1][v])*(1-xa) + float64(luts[ty2*grid+tx2][v])*xa
			dst.Pix[row+x] = saturate(top*(1-ya) + bottom*ya)
		}
	}
	return dst
}

// clipHistogram caps every bin at limit and redistributes the excess: an equal
// share to every bin, then the remainder one count at a time across evenly
// spaced bins.
func clipHistogram(hist *[histBins]int, limit int) {
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}

	batch := excess / histBins
	residual := excess - batch*histBins
	for i := range hist {
		hist[i] += batch
	}

	if residual > 0 {
		step := histBins / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < histBins && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// tileNeighbors returns the two tile indices bracketing the fractional tile
// coordinate f, clamped to the grid, and the weight of the second one.
func tileNeighbors(f float64, grid int) (int, int, float64) {
	t1 := int(math.Floor(f))
	t2 := t1 + 1
	a := f - float64(t1)
	if t1 < 0 {
		t1 = 0
	}
	if t2 > grid-1 {
		t2 = grid - 1
	}
	return t1, t2, a
}

// reflect101 maps i into [0, n) by mirroring without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

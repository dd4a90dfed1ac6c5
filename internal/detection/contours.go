package detection

import "image"

// Curve is one traced border of a binary mask.
//
// Points run along the border and only the points where the chain direction
// changes are kept, so a straight run is stored as its two endpoints.
type Curve struct {
	Points []Point `json:"points"`

	// Hole is true for the inner border of a region (the border around a
	// background area enclosed by foreground).
	Hole bool `json:"hole"`
}

// chainDeltas are the 8-neighborhood offsets indexed by chain code.
// Increasing codes turn counterclockwise on screen, starting to the right.
var chainDeltas = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// FindContours extracts borders from a binary mask using Suzuki–Abe border
// following. Any non-zero pixel is foreground; foreground is 8-connected.
//
// Every connected foreground region contributes its outer border. Hole
// borders are always followed, since following them marks pixels the scan
// relies on, but they are only returned when traceHoles is true.
//
// Curves are ordered by the raster position (row, then column) of the pixel
// where each border was first met. The mask is not modified.
func FindContours(mask *image.Gray, traceHoles bool) []Curve {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	curves := []Curve{}
	if w == 0 || h == 0 {
		return curves
	}

	t := newTracer(mask)
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			idx := y*t.stride + x
			v := t.f[idx]
			if v == 0 {
				continue
			}

			var hole bool
			switch {
			case v == 1 && t.f[idx-1] == 0:
				hole = false
			case v >= 1 && t.f[idx+1] == 0:
				hole = true
			default:
				continue
			}

			t.nbd++
			points := t.follow(idx, hole)
			if !hole || traceHoles {
				curves = append(curves, Curve{Points: points, Hole: hole})
			}
		}
	}
	return curves
}

// tracer holds the labeled, zero-padded copy of the mask.
//
// Cell values: 0 background, 1 unvisited foreground, NBD for a visited
// border pixel and -NBD for a border pixel whose right neighbor is
// background.
type tracer struct {
	f       []int32
	stride  int
	offsets [8]int
	nbd     int32
}

func newTracer(mask *image.Gray) *tracer {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 2

	t := &tracer{
		f:      make([]int32, stride*(h+2)),
		stride: stride,
		nbd:    1,
	}
	for y := 0; y < h; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			if row[x] != 0 {
				t.f[(y+1)*stride+x+1] = 1
			}
		}
	}
	for i, d := range chainDeltas {
		t.offsets[i] = d.Y*stride + d.X
	}
	return t
}

// point converts a padded index into mask coordinates.
func (t *tracer) point(idx int) Point {
	return Point{X: idx%t.stride - 1, Y: idx/t.stride - 1}
}

// follow traces the border starting at start and labels it with t.nbd.
// An outer border is entered from the background pixel on its left, a hole
// border from the background pixel on its right.
func (t *tracer) follow(start int, hole bool) []Point {
	sEnd := 4
	if hole {
		sEnd = 0
	}

	// Search clockwise for the first foreground neighbor.
	s := sEnd
	first := -1
	for {
		s = (s - 1) & 7
		if t.f[start+t.offsets[s]] != 0 {
			first = start + t.offsets[s]
			break
		}
		if s == sEnd {
			break
		}
	}

	if first < 0 {
		// Isolated pixel.
		t.f[start] = -t.nbd
		return []Point{t.point(start)}
	}

	points := make([]Point, 0, 16)
	cur := start
	prevS := s ^ 4
	for {
		// Search counterclockwise from the previous border pixel.
		rightIsBackground := false
		var next int
		for {
			s++
			next = cur + t.offsets[s&7]
			if t.f[next] != 0 {
				break
			}
			if s&7 == 0 {
				rightIsBackground = true
			}
		}
		s &= 7

		if rightIsBackground {
			t.f[cur] = -t.nbd
		} else if t.f[cur] == 1 {
			t.f[cur] = t.nbd
		}

		if s != prevS {
			points = append(points, t.point(cur))
			prevS = s
		}

		if next == start && cur == first {
			break
		}
		cur = next
		s = (s + 4) & 7
	}
	return points
}

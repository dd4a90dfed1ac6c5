package detection

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// ImagePoint converts p to an image.Point.
func (p Point) ImagePoint() image.Point {
	return image.Pt(p.X, p.Y)
}

// Box is an axis-aligned bounding box.
//
// W and H count pixels, so a box covering a single pixel has W == H == 1.
// The box spans columns [X, X+W) and rows [Y, Y+H).
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Encloses reports whether o lies strictly inside b on all four sides.
// A box never encloses an equal box.
func (b Box) Encloses(o Box) bool {
	return b.X < o.X &&
		b.X+b.W > o.X+o.W &&
		b.Y < o.Y &&
		b.Y+b.H > o.Y+o.H
}

// TouchesBorder reports whether b reaches any edge of a width × height image.
func (b Box) TouchesBorder(width, height int) bool {
	return b.X == 0 || b.Y == 0 || b.X+b.W == width || b.Y+b.H == height
}

// BoundingBox returns the smallest box containing every point.
// An empty slice yields the zero Box.
func BoundingBox(points []Point) Box {
	if len(points) == 0 {
		return Box{}
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return Box{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
}

// ArcLength returns the length of the polyline through points. When closed
// is true the segment from the last point back to the first is included.
func ArcLength(points []Point, closed bool) float64 {
	if len(points) < 2 {
		return 0
	}

	length := 0.0
	for i := 0; i < len(points)-1; i++ {
		length += distance(points[i], points[i+1])
	}
	if closed {
		length += distance(points[len(points)-1], points[0])
	}
	return length
}

// ApproxPolyDP simplifies a curve with the Douglas–Peucker algorithm.
//
// Every discarded point lies within epsilon of the simplified polyline.
// For closed curves the two split anchors are chosen by three rounds of
// farthest-point search starting at points[0]; if no point is farther than
// epsilon from the first anchor the curve collapses to that single point.
// A final pass drops vertices that sit within epsilon/√2 of the diagonal
// chord joining their neighbors.
//
// The result preserves the cyclic order of the input.
func ApproxPolyDP(points []Point, epsilon float64, closed bool) []Point {
	n := len(points)
	if n <= 2 {
		return append([]Point(nil), points...)
	}
	if epsilon < 0 {
		epsilon = 0
	}

	if !closed {
		keep := make([]bool, n)
		douglasPeucker(points, epsilon, keep)
		return pickKept(points, keep)
	}

	anchor, far, maxDist := farthestPair(points)
	if maxDist <= epsilon*epsilon {
		return []Point{points[anchor]}
	}

	first := cyclicSlice(points, anchor, far)
	second := cyclicSlice(points, far, anchor)

	keepFirst := make([]bool, len(first))
	douglasPeucker(first, epsilon, keepFirst)
	keepSecond := make([]bool, len(second))
	douglasPeucker(second, epsilon, keepSecond)

	// The shared endpoints appear once each: anchor leads the first chain,
	// far leads the second.
	result := pickKept(first[:len(first)-1], keepFirst[:len(keepFirst)-1])
	result = append(result, pickKept(second[:len(second)-1], keepSecond[:len(keepSecond)-1])...)

	return pruneCollinear(result, epsilon)
}

// farthestPair performs three rounds of farthest-point search and returns
// the last start index, the point found farthest from it, and the squared
// distance between them.
func farthestPair(points []Point) (int, int, float64) {
	start, far := 0, 0
	maxDist := 0.0
	for round := 0; round < 3; round++ {
		if round > 0 {
			start = far
		}
		maxDist = 0
		for i := range points {
			if d := distanceSquared(points[start], points[i]); d > maxDist {
				maxDist = d
				far = i
			}
		}
	}
	return start, far, maxDist
}

// cyclicSlice returns points[from..to] inclusive, wrapping past the end.
func cyclicSlice(points []Point, from, to int) []Point {
	n := len(points)
	out := make([]Point, 0, (to-from+n)%n+1)
	for i := from; ; i = (i + 1) % n {
		out = append(out, points[i])
		if i == to {
			break
		}
	}
	return out
}

// douglasPeucker marks in keep the points of an open chain that survive
// simplification. Both endpoints are always kept.
func douglasPeucker(chain []Point, epsilon float64, keep []bool) {
	type segment struct{ start, end int }

	keep[0] = true
	keep[len(chain)-1] = true
	stack := []segment{{0, len(chain) - 1}}

	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seg.end-seg.start <= 1 {
			continue
		}

		maxDist := -1.0
		maxIdx := seg.start
		for i := seg.start + 1; i < seg.end; i++ {
			if d := segmentDistance(chain[i], chain[seg.start], chain[seg.end]); d > maxDist {
				maxDist = d
				maxIdx = i
			}
		}

		if maxDist > epsilon {
			keep[maxIdx] = true
			stack = append(stack, segment{maxIdx, seg.end}, segment{seg.start, maxIdx})
		}
	}
}

// pruneCollinear removes vertices of a closed polygon that lie within
// epsilon/√2 of the chord between their neighbors, provided the chord is
// neither horizontal nor vertical and the vertex projects between its
// neighbors.
func pruneCollinear(poly []Point, epsilon float64) []Point {
	i := 0
	for i < len(poly) && len(poly) > 3 {
		n := len(poly)
		prev, cur, next := poly[(i-1+n)%n], poly[i], poly[(i+1)%n]

		dx := float64(next.X - prev.X)
		dy := float64(next.Y - prev.Y)
		cross := math.Abs(float64(cur.X-prev.X)*dy - float64(cur.Y-prev.Y)*dx)
		inner := float64(cur.X-prev.X)*float64(next.X-cur.X) + float64(cur.Y-prev.Y)*float64(next.Y-cur.Y)

		if dx != 0 && dy != 0 && inner >= 0 && cross*cross <= 0.5*epsilon*epsilon*(dx*dx+dy*dy) {
			poly = append(poly[:i], poly[i+1:]...)
			continue
		}
		i++
	}
	return poly
}

func pickKept(points []Point, keep []bool) []Point {
	out := make([]Point, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// IsConvex reports whether a closed polygon turns the same way at every
// vertex. Collinear vertices and polygons with fewer than three vertices
// are not convex.
func IsConvex(poly []Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	sign := 0
	for i := 0; i < n; i++ {
		c := crossProduct(poly[i], poly[(i+1)%n], poly[(i+2)%n])
		switch {
		case c == 0:
			return false
		case sign == 0 && c > 0:
			sign = 1
		case sign == 0:
			sign = -1
		case (c > 0) != (sign > 0):
			return false
		}
	}
	return true
}

// crossProduct is the z component of (p1-p0) × (p2-p1).
func crossProduct(p0, p1, p2 Point) int {
	return (p1.X-p0.X)*(p2.Y-p1.Y) - (p1.Y-p0.Y)*(p2.X-p1.X)
}

func distance(a, b Point) float64 {
	return math.Sqrt(distanceSquared(a, b))
}

func distanceSquared(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return dx*dx + dy*dy
}

// segmentDistance is the distance from p to the line through a and b, or to
// a itself when a and b coincide.
func segmentDistance(p, a, b Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	norm := math.Sqrt(dx*dx + dy*dy)
	if norm == 0 {
		return distance(p, a)
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / norm
}

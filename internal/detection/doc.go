// Package detection finds nested rectangles in raster images.
//
// The detector binarizes an enhanced grayscale image, follows the borders of
// the foreground regions, and keeps the borders whose polygon approximation
// is a convex quadrilateral whose bounding box stays clear of the image edge.
// Each kept rectangle is assigned a level: the number of traced curves whose
// bounding box it strictly encloses.
//
// # Pipeline
//
//  1. Preprocess (see package imaging): grayscale, Gaussian blur, CLAHE
//  2. Binarize: foreground iff value > 127
//  3. FindContours: Suzuki–Abe border following, flat list
//  4. ApproxPolyDP at 1% of the perimeter, then IsConvex on 4-vertex results
//  5. Edge rejection on the bounding box
//  6. Levels by strict bounding-box enclosure
//
// # Backends
//
// NewBackend selects an implementation by name. "native" is pure Go and
// always available. "opencv" runs the same sequence through gocv and is only
// compiled with the gocv build tag; otherwise NewBackend returns
// ErrBackendUnavailable.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Record.BottomRight is one past the last covered pixel
//
// # Limitations
//
// Containment is judged on axis-aligned bounding boxes. A rotated or
// overlapping shape can count toward a level without being geometrically
// inside. Results depend on the fixed threshold, so low-contrast shapes may
// be missed.
package detection

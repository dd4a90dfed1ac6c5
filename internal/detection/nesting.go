package detection

import (
	"fmt"
	"strings"
)

// NestingMode selects which curves count toward a rectangle's level.
type NestingMode string

const (
	// NestingAllCurves counts every traced curve, rectangle or not.
	NestingAllCurves NestingMode = "all_curves"

	// NestingRectangles counts only curves that qualified as rectangles.
	NestingRectangles NestingMode = "rectangles"
)

// ParseNestingMode converts a configuration string to a NestingMode.
// The empty string selects NestingAllCurves.
func ParseNestingMode(s string) (NestingMode, error) {
	switch NestingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", NestingAllCurves:
		return NestingAllCurves, nil
	case NestingRectangles:
		return NestingRectangles, nil
	default:
		return "", fmt.Errorf("unknown nesting mode %q (want %q or %q)", s, NestingAllCurves, NestingRectangles)
	}
}

// Levels computes the nesting level of each qualifying curve.
//
// boxes holds the bounding box of every traced curve; qualifying lists the
// indices (into boxes) of curves accepted as rectangles. The level of
// qualifying[k] is the number of other curves whose box it strictly encloses.
// Curves are compared by index, so duplicate boxes are still distinct curves
// (though equal boxes never enclose each other).
//
// The returned slice is parallel to qualifying.
func Levels(boxes []Box, qualifying []int, mode NestingMode) []int {
	candidates := qualifying
	if mode != NestingRectangles {
		candidates = make([]int, len(boxes))
		for i := range boxes {
			candidates[i] = i
		}
	}

	levels := make([]int, len(qualifying))
	for k, i := range qualifying {
		for _, j := range candidates {
			if j != i && boxes[i].Encloses(boxes[j]) {
				levels[k]++
			}
		}
	}
	return levels
}

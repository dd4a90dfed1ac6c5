//go:build !gocv
// +build !gocv

package detection

import "fmt"

// newOpenCVBackend reports that OpenCV support was not compiled in.
func newOpenCVBackend(Options) (Backend, error) {
	return nil, fmt.Errorf("%w: %s (build with -tags gocv)", ErrBackendUnavailable, BackendOpenCV)
}

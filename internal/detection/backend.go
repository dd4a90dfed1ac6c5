package detection

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrBackendUnavailable is returned when a backend was not compiled into
// the binary.
var ErrBackendUnavailable = errors.New("detection backend unavailable")

// Backend names.
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// Backend is an implementation of the rectangle detector pipeline.
type Backend interface {
	// Name returns the backend's registry name.
	Name() string

	// Detect returns the rectangle records found in img, in border order.
	// Zero rectangles yields an empty slice and no error.
	Detect(img image.Image) ([]Record, error)
}

// NewBackend creates a backend by name.
//
// Names are case-insensitive: "native" (or "") selects the pure Go
// implementation; "opencv" selects the OpenCV implementation, which is only
// available in builds with the gocv tag.
func NewBackend(name string, opts Options) (Backend, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection options: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendNative, "":
		return &nativeBackend{opts: opts}, nil
	case BackendOpenCV:
		return newOpenCVBackend(opts)
	default:
		return nil, fmt.Errorf("unknown detection backend: %s", name)
	}
}

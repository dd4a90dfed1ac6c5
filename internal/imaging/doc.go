// Package imaging loads, saves, and preprocesses raster images for rectangle detection.
//
// The preprocessing chain turns an arbitrary decoded image into an enhanced
// single-channel image that a global threshold can split cleanly:
//
//  1. Grayscale conversion
//  2. Gaussian blur (7 × 7 by default, sigma derived from the kernel size)
//  3. CLAHE (8 × 8 tiles, clip limit 10 by default)
//
// All outputs are rebased so that (0,0) is the top-left pixel, X increases
// rightward, and Y increases downward. Inputs are never modified.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Preprocessing functions are
// stateless and can be called concurrently on the same or different images.
//
// # Error Handling
//
// Preprocess returns ErrInvalidInput (wrapped) for nil or empty images and a
// validation error for unusable parameters. Loading and saving wrap the
// underlying I/O or codec error with the offending path.
package imaging

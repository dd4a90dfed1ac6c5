package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeTestPNG encodes img under dir and returns its path.
func writeTestPNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createTestImage writes a solid-color PNG and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writeTestPNG(t, t.TempDir(), "solid.png", img)
}

// createQuadrantImage writes a PNG with red, green, blue and white quadrants
// (top-left, top-right, bottom-left, bottom-right).
func createQuadrantImage(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			switch {
			case x < width/2 && y < height/2:
				c = color.NRGBA{255, 0, 0, 255}
			case y < height/2:
				c = color.NRGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return writeTestPNG(t, t.TempDir(), "quadrants.png", img)
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 60, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img1.Bounds(); b.Dx() != 100 || b.Dy() != 60 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x60", b.Dx(), b.Dy())
	}

	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_LoadPreservesPixels(t *testing.T) {
	img, err := NewImageCache().Load(createQuadrantImage(t, 40, 20))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{5, 5, color.NRGBA{255, 0, 0, 255}},
		{35, 5, color.NRGBA{0, 255, 0, 255}},
		{5, 15, color.NRGBA{0, 0, 255, 255}},
		{35, 15, color.NRGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		got := color.NRGBAModel.Convert(img.At(tt.x, tt.y)).(color.NRGBA)
		if got != tt.want {
			t.Errorf("pixel (%d,%d): got %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestImageCache_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.png")},
		{"undecodable file", garbage},
		{"directory", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewImageCache()
			if _, err := cache.Load(tt.path); err == nil {
				t.Error("Load should fail")
			}
			if cache.Len() != 0 {
				t.Error("failed load should not be cached")
			}
		})
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	a := createTestImage(t, 10, 10, color.White)
	b := createTestImage(t, 20, 20, color.Black)

	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	cache.Evict(a)
	cache.Evict("/never/loaded.png")
	if cache.Len() != 1 {
		t.Errorf("after Evict: got %d entries, want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("after Clear: got %d entries, want 0", cache.Len())
	}
}

func TestImageCache_EvictReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "changing.png", image.NewGray(image.Rect(0, 0, 10, 10)))

	cache := NewImageCache()
	if _, err := cache.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeTestPNG(t, dir, "changing.png", image.NewGray(image.Rect(0, 0, 30, 5)))

	img, _ := cache.Load(path)
	if img.Bounds().Dx() != 10 {
		t.Errorf("cached image should be returned before Evict")
	}

	cache.Evict(path)
	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load after Evict failed: %v", err)
	}
	if img.Bounds().Dx() != 30 {
		t.Errorf("width after Evict: got %d, want 30", img.Bounds().Dx())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	results := make([]image.Image, 50)
	errs := make(chan error, len(results))

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := cache.Load(imgPath)
			if err != nil {
				errs <- err
				return
			}
			results[i] = img
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
	for i, img := range results {
		if img != results[0] {
			t.Errorf("goroutine %d got a different image instance", i)
		}
	}
}

func TestLoadImageInfo(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})

	info, err := LoadImageInfo(cache, imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 200 || info.Height != 150 {
		t.Errorf("size: got %dx%d, want 200x150", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.ColorDepth != "8-bit" {
		t.Errorf("ColorDepth: got %s, want 8-bit", info.ColorDepth)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
	if cache.Len() != 1 {
		t.Error("LoadImageInfo should populate the cache")
	}
}

func TestLoadImageInfo_DepthAndAlpha(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		img       image.Image
		wantDepth string
		wantAlpha bool
	}{
		{"gray", image.NewGray(image.Rect(0, 0, 4, 4)), "8-bit", false},
		{"gray16", image.NewGray16(image.Rect(0, 0, 4, 4)), "16-bit", false},
		{"translucent", image.NewNRGBA(image.Rect(0, 0, 4, 4)), "8-bit", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestPNG(t, dir, tt.name+".png", tt.img)

			info, err := LoadImageInfo(NewImageCache(), path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.ColorDepth != tt.wantDepth {
				t.Errorf("ColorDepth: got %s, want %s", info.ColorDepth, tt.wantDepth)
			}
			if info.HasAlpha != tt.wantAlpha {
				t.Errorf("HasAlpha: got %v, want %v", info.HasAlpha, tt.wantAlpha)
			}
		})
	}
}

func TestLoadImageInfo_FormatDetection(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	tests := []struct {
		ext    string
		format string
	}{
		{".png", "png"},
		{".jpg", "jpeg"},
		{".JPEG", "jpeg"},
		{".gif", "gif"},
		{".tif", "tiff"},
		{".bmp", "bmp"},
		{".xyz", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			// PNG bytes regardless of extension; the format comes from the name.
			path := writeTestPNG(t, dir, "format"+tt.ext, img)

			info, err := LoadImageInfo(NewImageCache(), path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.Format != tt.format {
				t.Errorf("Format for %s: got %s, want %s", tt.ext, info.Format, tt.format)
			}
		})
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 300, 200, color.RGBA{100, 100, 100, 255})

	dims, err := GetDimensions(cache, imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("size: got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(cache, "/nonexistent/image.png"); err == nil {
		t.Error("GetDimensions should fail for non-existent file")
	}
	if _, err := LoadImageInfo(cache, "/nonexistent/image.png"); err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))

	for _, name := range []string{"nested/out/result.png", "result.jpg", "result.bmp", "result.tiff"} {
		t.Run(name, func(t *testing.T) {
			outPath := filepath.Join(dir, filepath.FromSlash(name))
			if err := Save(img, outPath); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := NewImageCache().Load(outPath)
			if err != nil {
				t.Fatalf("Load after Save failed: %v", err)
			}
			if b := loaded.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
				t.Errorf("unexpected dimensions: got %dx%d, want 40x30", b.Dx(), b.Dy())
			}
		})
	}
}

func TestSave_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "sub", "result.unknown")

	if err := Save(image.NewRGBA(image.Rect(0, 0, 10, 10)), outPath); err == nil {
		t.Error("Save should fail for an unsupported extension")
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); !os.IsNotExist(err) {
		t.Error("no directory should be created for an unsupported extension")
	}
}

// Package pipeline ties loading, detection, annotation and saving together
// for the CLI and the MCP server.
package pipeline

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/rectnest-mcp/internal/annotate"
	"github.com/ironsheep/rectnest-mcp/internal/config"
	"github.com/ironsheep/rectnest-mcp/internal/detection"
	"github.com/ironsheep/rectnest-mcp/internal/imaging"
	"github.com/ironsheep/rectnest-mcp/internal/logger"
)

// Stage names an intermediate image of the detector.
type Stage string

const (
	// StageEnhanced is the blurred, contrast-equalized grayscale image.
	StageEnhanced Stage = "enhanced"
	// StageBinary is the thresholded mask that contours are traced on.
	StageBinary Stage = "binary"
)

// DetectReport is the result of one detection run.
type DetectReport struct {
	RunID      string             `json:"run_id"`
	Path       string             `json:"path"`
	Backend    string             `json:"backend"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Count      int                `json:"count"`
	Rectangles []detection.Record `json:"rectangles"`
	DurationMs int64              `json:"duration_ms"`
}

// AnnotateReport is the result of detecting and drawing on one image.
type AnnotateReport struct {
	DetectReport
	OutputPath string                `json:"output_path,omitempty"`
	Image      *imaging.EncodedImage `json:"image,omitempty"`
}

// Pipeline runs detection with one backend and one set of options.
// It is safe for sequential use; the image cache is shared.
type Pipeline struct {
	cache     *imaging.ImageCache
	backend   detection.Backend
	opts      detection.Options
	style     annotate.Style
	outputDir string
}

// New builds a pipeline from cfg. A nil cache gets a fresh one.
func New(cfg *config.Config, cache *imaging.ImageCache) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	if err := cfg.Annotate.Validate(); err != nil {
		return nil, fmt.Errorf("invalid annotation style: %w", err)
	}

	backend, err := detection.NewBackend(cfg.Backend, cfg.Detection)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cache:     cache,
		backend:   backend,
		opts:      cfg.Detection,
		style:     cfg.Annotate,
		outputDir: cfg.OutputDir,
	}, nil
}

// Backend returns the name of the detection backend in use.
func (p *Pipeline) Backend() string {
	return p.backend.Name()
}

// Detect loads the image at path and finds its rectangles.
func (p *Pipeline) Detect(path string) (*DetectReport, error) {
	report, _, err := p.detect(path)
	return report, err
}

func (p *Pipeline) detect(path string) (*DetectReport, image.Image, error) {
	runID := uuid.NewString()
	start := time.Now()

	img, err := p.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}

	records, err := p.backend.Detect(img)
	if err != nil {
		logger.Log().Error("detection failed",
			zap.String("run_id", runID),
			zap.String("path", path),
			zap.String("backend", p.backend.Name()),
			zap.Error(err))
		return nil, nil, fmt.Errorf("detection failed for %s: %w", path, err)
	}

	elapsed := time.Since(start)
	logger.Log().Info("rectangles detected",
		zap.String("run_id", runID),
		zap.String("path", path),
		zap.String("backend", p.backend.Name()),
		zap.Int("count", len(records)),
		zap.Duration("duration", elapsed))

	b := img.Bounds()
	return &DetectReport{
		RunID:      runID,
		Path:       path,
		Backend:    p.backend.Name(),
		Width:      b.Dx(),
		Height:     b.Dy(),
		Count:      len(records),
		Rectangles: records,
		DurationMs: elapsed.Milliseconds(),
	}, img, nil
}

// Annotate detects rectangles in the image at path and draws them on a copy.
// The copy is written to outputPath when it is non-empty, and returned as a
// base64 PNG when encode is set. Any cached decoding of outputPath is dropped
// after the write, so annotating in place is seen by the next Detect.
func (p *Pipeline) Annotate(path, outputPath string, encode bool) (*AnnotateReport, error) {
	report, img, err := p.detect(path)
	if err != nil {
		return nil, err
	}

	annotated, err := annotate.Copy(img, report.Rectangles, p.style)
	if err != nil {
		return nil, fmt.Errorf("annotation failed: %w", err)
	}

	out := &AnnotateReport{DetectReport: *report}

	if outputPath != "" {
		if err := imaging.Save(annotated, outputPath); err != nil {
			return nil, err
		}
		p.cache.Evict(outputPath)
		out.OutputPath = outputPath
		logger.Log().Info("annotated image saved",
			zap.String("run_id", report.RunID),
			zap.String("output", outputPath))
	}

	if encode {
		enc, err := imaging.EncodePNG(annotated)
		if err != nil {
			return nil, err
		}
		out.Image = enc
	}
	return out, nil
}

// Preprocess returns an intermediate stage of the native detector for the
// image at path. Both backends share the same stages.
func (p *Pipeline) Preprocess(path string, stage Stage) (*imaging.EncodedImage, error) {
	stage = Stage(strings.ToLower(strings.TrimSpace(string(stage))))
	if stage == "" {
		stage = StageEnhanced
	}
	if stage != StageEnhanced && stage != StageBinary {
		return nil, fmt.Errorf("unknown stage %q (want %q or %q)", stage, StageEnhanced, StageBinary)
	}

	img, err := p.cache.Load(path)
	if err != nil {
		return nil, err
	}

	gray, err := imaging.Preprocess(img, p.opts.Preprocess)
	if err != nil {
		return nil, err
	}
	if stage == StageBinary {
		gray = detection.Binarize(gray, uint8(p.opts.BinaryThreshold))
	}
	return imaging.EncodePNG(gray)
}

// DefaultOutputPath returns where an annotated copy of input goes when no
// output path is given: <OutputDir>/<basename>_annotated.png.
func (p *Pipeline) DefaultOutputPath(input string) string {
	return OutputPath(p.outputDir, input)
}

// OutputPath joins dir with the annotated name of input.
func OutputPath(dir, input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"_annotated.png")
}

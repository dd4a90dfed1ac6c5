package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/rectnest-mcp/internal/annotate"
	"github.com/ironsheep/rectnest-mcp/internal/detection"
	"github.com/ironsheep/rectnest-mcp/internal/imaging"
)

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfigPath, EnvBackend, EnvLogLevel, EnvOutputDir, EnvTraceHoles, EnvNesting} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// noEnvFile points godotenv at a file that does not exist.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, detection.BackendNative, cfg.Backend)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, detection.DefaultBinaryThreshold, cfg.Detection.BinaryThreshold)
	require.Equal(t, detection.DefaultApproxEpsilon, cfg.Detection.ApproxEpsilon)
	require.Equal(t, imaging.DefaultBlurKernel, cfg.Detection.Preprocess.BlurKernel)
	require.Equal(t, imaging.DefaultClipLimit, cfg.Detection.Preprocess.ClipLimit)
	require.Equal(t, imaging.DefaultTileGrid, cfg.Detection.Preprocess.TileGrid)
	require.Equal(t, annotate.DefaultThickness, cfg.Annotate.Thickness)
	require.Equal(t, annotate.DefaultLabelOffset, cfg.Annotate.LabelOffset)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
backend: OpenCV
log_level: debug
detection:
  binary_threshold: 100
  nesting: rectangles
  preprocess:
    clip_limit: 2.5
annotate:
  box_color: "#ff0000"
`)

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	require.Equal(t, detection.BackendOpenCV, cfg.Backend)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, 100, cfg.Detection.BinaryThreshold)
	require.Equal(t, detection.NestingRectangles, cfg.Detection.Nesting)
	require.Equal(t, 2.5, cfg.Detection.Preprocess.ClipLimit)
	require.Equal(t, imaging.DefaultBlurKernel, cfg.Detection.Preprocess.BlurKernel)
	require.Equal(t, detection.DefaultApproxEpsilon, cfg.Detection.ApproxEpsilon)
	require.Equal(t, "#ff0000", cfg.Annotate.BoxColor)
	require.Equal(t, annotate.DefaultLabelColor, cfg.Annotate.LabelColor)
}

func TestLoad_EmptyYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "empty.yaml", "")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "backend: opencv\noutput_dir: from-yaml\n")
	t.Setenv(EnvBackend, "native")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvOutputDir, "from-env")
	t.Setenv(EnvTraceHoles, "true")
	t.Setenv(EnvNesting, "RECTANGLES")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	require.Equal(t, detection.BackendNative, cfg.Backend)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "from-env", cfg.OutputDir)
	require.True(t, cfg.Detection.TraceHoles)
	require.Equal(t, detection.NestingRectangles, cfg.Detection.Nesting)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "RECTNEST_OUTPUT_DIR=from-dotenv\nRECTNEST_TRACE_HOLES=1\n")
	t.Cleanup(func() {
		os.Unsetenv(EnvOutputDir)
		os.Unsetenv(EnvTraceHoles)
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.OutputDir)
	require.True(t, cfg.Detection.TraceHoles)
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "RECTNEST_OUTPUT_DIR=from-dotenv\n")
	t.Setenv(EnvOutputDir, "from-env")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.OutputDir)
}

func TestLoad_ConfigPathFromDotEnv(t *testing.T) {
	clearEnv(t)
	yamlPath := writeFile(t, "config.yaml", "backend: opencv\nlog_level: warn\n")
	envFile := writeFile(t, ".env", EnvConfigPath+"="+yamlPath+"\n")
	t.Cleanup(func() { os.Unsetenv(EnvConfigPath) })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	require.Equal(t, detection.BackendOpenCV, cfg.Backend)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, writeFile(t, "config.yaml", "backend: tensorflow\n"))

	_, err := Load("", noEnvFile(t))
	require.ErrorIs(t, err, ErrInvalidConfig)

	// An explicit path wins over the variable.
	cfg, err := Load(writeFile(t, "explicit.yaml", "log_level: debug\n"), noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		invalid bool
	}{
		{name: "malformed yaml", yaml: "backend: [native"},
		{name: "unknown key", yaml: "thresh: 5\n"},
		{name: "unknown backend", yaml: "backend: tensorflow\n", invalid: true},
		{name: "bad log level", yaml: "log_level: loud\n", invalid: true},
		{name: "empty output dir", yaml: "output_dir: \"\"\n", invalid: true},
		{name: "even blur kernel", yaml: "detection:\n  preprocess:\n    blur_kernel: 4\n", invalid: true},
		{name: "threshold out of range", yaml: "detection:\n  binary_threshold: 300\n", invalid: true},
		{name: "bad nesting", yaml: "detection:\n  nesting: siblings\n", invalid: true},
		{name: "bad color", yaml: "annotate:\n  label_color: blue\n", invalid: true},
		{name: "bad trace holes env", env: map[string]string{EnvTraceHoles: "sometimes"}, invalid: true},
		{name: "bad nesting env", env: map[string]string{EnvNesting: "deep"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "config.yaml", tt.yaml)
			}

			cfg, err := Load(path, noEnvFile(t))
			require.Error(t, err)
			require.Nil(t, cfg)
			if tt.invalid {
				require.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := Default()
	cfg.Backend = " NATIVE "
	cfg.Detection.Nesting = ""

	require.NoError(t, cfg.Validate())
	require.Equal(t, detection.BackendNative, cfg.Backend)
	require.Equal(t, detection.NestingAllCurves, cfg.Detection.Nesting)
}

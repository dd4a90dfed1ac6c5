// Package config loads runtime settings from a YAML file, a .env file and
// the process environment, in that order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/rectnest-mcp/internal/annotate"
	"github.com/ironsheep/rectnest-mcp/internal/detection"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment overrides.
const (
	EnvConfigPath = "RECTNEST_CONFIG"
	EnvBackend    = "RECTNEST_BACKEND"
	EnvLogLevel   = "RECTNEST_LOG_LEVEL"
	EnvOutputDir  = "RECTNEST_OUTPUT_DIR"
	EnvTraceHoles = "RECTNEST_TRACE_HOLES"
	EnvNesting    = "RECTNEST_NESTING"
)

const (
	DefaultLogLevel  = "info"
	DefaultOutputDir = "output"
)

// Config holds the settings shared by the CLI and the MCP server: which
// detection backend to run, logging, where annotated images go, and the
// detection and annotation parameters.
type Config struct {
	Backend   string            `yaml:"backend"`
	LogLevel  string            `yaml:"log_level"`
	OutputDir string            `yaml:"output_dir"`
	Detection detection.Options `yaml:"detection"`
	Annotate  annotate.Style    `yaml:"annotate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:   detection.BackendNative,
		LogLevel:  DefaultLogLevel,
		OutputDir: DefaultOutputDir,
		Detection: detection.DefaultOptions(),
		Annotate:  annotate.DefaultStyle(),
	}
}

// Load builds a Config from the defaults, a YAML file, the given .env files
// (".env" when none are named; missing files are ignored) and finally the
// RECTNEST_* environment variables. The YAML file is path, or RECTNEST_CONFIG
// when path is empty; the variable may itself come from a .env file.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	_ = godotenv.Load(envFiles...)

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Keys absent from data keep their values;
// unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvBackend); ok {
		c.Backend = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok {
		c.OutputDir = v
	}
	if v, ok := os.LookupEnv(EnvTraceHoles); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvTraceHoles, v)
		}
		c.Detection.TraceHoles = b
	}
	if v, ok := os.LookupEnv(EnvNesting); ok {
		c.Detection.Nesting = detection.NestingMode(v)
	}
	return nil
}

// Validate checks every section and normalizes the backend and nesting names.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case detection.BackendNative, detection.BackendOpenCV:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	}

	mode, err := detection.ParseNestingMode(string(c.Detection.Nesting))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.Detection.Nesting = mode

	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("%w: detection: %v", ErrInvalidConfig, err)
	}
	if err := c.Annotate.Validate(); err != nil {
		return fmt.Errorf("%w: annotate: %v", ErrInvalidConfig, err)
	}
	return nil
}

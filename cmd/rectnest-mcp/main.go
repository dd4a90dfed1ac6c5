package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/rectnest-mcp/internal/config"
	"github.com/ironsheep/rectnest-mcp/internal/logger"
	"github.com/ironsheep/rectnest-mcp/internal/pipeline"
	"github.com/ironsheep/rectnest-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "rectnest-mcp %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "serve", "detect", "annotate":
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return 2
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Log().Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("command", cmd))

	switch cmd {
	case "detect":
		err = runDetect(cfg, args, stdout)
	case "annotate":
		err = runAnnotate(cfg, args, stdout)
	default:
		err = runServe(cfg)
	}
	if err != nil {
		logger.Log().Error("command failed", zap.String("command", cmd), zap.Error(err))
		return 1
	}
	return 0
}

func runServe(cfg *config.Config) error {
	srv, err := server.New(cfg, Version)
	if err != nil {
		return err
	}
	return srv.Run()
}

func runDetect(cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rectnest-mcp detect <image>")
	}

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		return err
	}
	report, err := p.Detect(args[0])
	if err != nil {
		return err
	}

	for _, r := range report.Rectangles {
		fmt.Fprintln(stdout, r.String())
	}
	return nil
}

func runAnnotate(cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: rectnest-mcp annotate <image> [output]")
	}

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		return err
	}

	output := p.DefaultOutputPath(args[0])
	if len(args) == 2 {
		output = args[1]
	}

	report, err := p.Annotate(args[0], output, false)
	if err != nil {
		return err
	}

	for _, r := range report.Rectangles {
		fmt.Fprintln(stdout, r.String())
	}
	fmt.Fprintf(stdout, "Annotated image written to %s\n", report.OutputPath)
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "rectnest-mcp - nested rectangle detection as an MCP server and CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rectnest-mcp [serve]                     Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  rectnest-mcp detect <image>              Print detected rectangles and levels")
	fmt.Fprintln(w, "  rectnest-mcp annotate <image> [output]   Write an annotated copy of the image")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (also read from .env):")
	fmt.Fprintln(w, "  RECTNEST_CONFIG=path.yaml      YAML configuration file")
	fmt.Fprintln(w, "  RECTNEST_BACKEND=native        Detection backend (native, opencv)")
	fmt.Fprintln(w, "  RECTNEST_LOG_LEVEL=info        Log level (debug, info, warn, error)")
	fmt.Fprintln(w, "  RECTNEST_OUTPUT_DIR=output     Default directory for annotated images")
	fmt.Fprintln(w, "  RECTNEST_TRACE_HOLES=false     Also trace hole borders")
	fmt.Fprintln(w, "  RECTNEST_NESTING=all_curves    Level counting (all_curves, rectangles)")
}

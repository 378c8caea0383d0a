package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the resolved settings for one run.
type Config struct {
	// Dir holds colors.json and colors.schema.json.
	Dir      string
	Backend  string
	LogFile  string
	LogLevel slog.Level
}

// defaultDir returns the per-user configuration directory for pixelpick.
func defaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "pixelpick"), nil
}

// ParseConfig reads flags from args, falling back to PIXELPICK_* environment
// variables and then to defaults. It returns the remaining arguments.
func ParseConfig(args []string, stderr io.Writer) (Config, []string, error) {
	fs := flag.NewFlagSet("pixelpick", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }

	dir := fs.String("dir", os.Getenv("PIXELPICK_DIR"), "palette directory")
	backend := fs.String("backend", envOr("PIXELPICK_BACKEND", BackendAuto), "graphics backend: auto, native or screenshot")
	logFile := fs.String("log-file", os.Getenv("PIXELPICK_LOG_FILE"), "write logs to this file")
	logLevel := fs.String("log-level", envOr("PIXELPICK_LOG_LEVEL", "warn"), "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg := Config{
		Dir:     *dir,
		Backend: *backend,
		LogFile: *logFile,
	}

	switch cfg.Backend {
	case BackendAuto, BackendNative, BackendScreenshot:
	default:
		return Config{}, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToLower(*logLevel))); err != nil {
		return Config{}, nil, fmt.Errorf("log level: %w", err)
	}

	if cfg.Dir == "" {
		d, err := defaultDir()
		if err != nil {
			return Config{}, nil, fmt.Errorf("resolving palette directory: %w", err)
		}
		cfg.Dir = d
	}

	return cfg, fs.Args(), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newLogger builds the logger for cfg writing to w, or a silent one when w
// is nil.
func newLogger(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

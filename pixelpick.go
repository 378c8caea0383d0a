package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Version is set by ldflags during release builds.
var Version = "dev"

// openDevice is replaced in tests.
var openDevice = NewDevice

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprint(w, `pixelpick - sample screen colors and keep a named palette

Usage: pixelpick [flags] [command]

Commands:
  tui              interactive picker (default)
  pos              print the pointer position
  color [x y]      print the color at x,y (default: under the pointer)
  colors [x y]     print the 21x21 colors around x,y, row-major
  pick             pick a color through the desktop portal (Wayland)
  palette          print the palette document
  save             replace the palette with the document read from stdin
  schema           regenerate colors.schema.json

Flags:
  -dir DIR         palette directory (PIXELPICK_DIR)
  -backend NAME    auto, native or screenshot (PIXELPICK_BACKEND)
  -log-file FILE   write logs to FILE (PIXELPICK_LOG_FILE)
  -log-level LVL   debug, info, warn or error (PIXELPICK_LOG_LEVEL)
  -version         print version information
`)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-version", "-v", "version":
			fmt.Fprintf(stdout, "pixelpick %s\n", Version)
			return 0
		case "--help", "-help", "-h", "help":
			usage(stdout)
			return 0
		}
	}

	cfg, rest, err := ParseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cmd := "tui"
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	if cmd == "tui" {
		if err := runTUI(cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "Error: opening log file: %v\n", err)
			return 1
		}
		defer f.Close()
		SetLogger(newLogger(cfg, f))
	} else {
		SetLogger(newLogger(cfg, stderr))
	}
	defer SetLogger(nil)

	out, err := runCommand(cfg, cmd, rest, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if out == nil {
		return 0
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runCommand executes one request/response command and returns the value
// to print, or nil for commands without output.
func runCommand(cfg Config, cmd string, args []string, stdin io.Reader) (any, error) {
	store := PaletteStore{Dir: cfg.Dir}

	switch cmd {
	case "palette":
		return store.Read()

	case "save":
		var doc PaletteDocument
		dec := json.NewDecoder(stdin)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decoding stdin: %w", ErrDocument, err)
		}
		return nil, store.Write(doc)

	case "schema":
		wrote, err := store.WriteSchema()
		if err != nil {
			return nil, err
		}
		logger().Info("schema checked", "path", store.SchemaPath(), "written", wrote)
		return nil, nil

	case "pick":
		return PickColorPortal(context.Background())

	case "pos", "color", "colors":
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}

	dev, name, err := openDevice(cfg.Backend)
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	logger().Debug("device opened", "backend", name)
	s := NewSampler(dev)

	if cmd == "pos" {
		return s.PointerPosition()
	}

	p, err := pointArg(s, args)
	if err != nil {
		return nil, err
	}
	if cmd == "color" {
		return s.SamplePixel(p)
	}
	return s.SampleRegion(p)
}

// pointArg parses "x y" or, with no arguments, uses the pointer position.
func pointArg(s *Sampler, args []string) (Point, error) {
	switch len(args) {
	case 0:
		return s.PointerPosition()
	case 2:
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return Point{}, fmt.Errorf("x: %w", err)
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return Point{}, fmt.Errorf("y: %w", err)
		}
		return Point{X: x, Y: y}, nil
	default:
		return Point{}, fmt.Errorf("expected x and y, got %d arguments", len(args))
	}
}

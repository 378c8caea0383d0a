package main

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// regionSize is the edge length of the neighborhood sampled around a point.
const regionSize = 21

// regionRadius is the number of pixels sampled on each side of the point.
const regionRadius = regionSize / 2

// regionCenter is the row-major index of the sampled point within a region.
const regionCenter = regionRadius*regionSize + regionRadius

// Point is a screen-space coordinate in device pixels, origin top-left.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Rect is a sampling region in screen coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// within reports whether r is non-empty and lies entirely inside bounds.
func (r Rect) within(bounds Rect) bool {
	return r.W > 0 && r.H > 0 &&
		r.X >= bounds.X && r.Y >= bounds.Y &&
		r.X+r.W <= bounds.X+bounds.W &&
		r.Y+r.H <= bounds.Y+bounds.H
}

// regionRect returns the fixed 21x21 window centered on p.
func regionRect(p Point) Rect {
	return Rect{
		X: p.X - regionRadius,
		Y: p.Y - regionRadius,
		W: regionSize,
		H: regionSize,
	}
}

// RGB holds an 8-bit color value.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Hex returns the color in the upper-case #RRGGBB form stored in palettes.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex parses "#rrggbb" or "#rgb".
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 && len(s) != 4 {
		return RGB{}, fmt.Errorf("parsing color %q: want #rrggbb or #rgb", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// HSL holds a color in hue (0-360), saturation and lightness (0-100 percent).
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

func (h HSL) String() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", h.H, h.S, h.L)
}

// HSL converts c for display.
func (c RGB) HSL() HSL {
	h, s, l := c.colorful().Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return HSL{
		H: int(math.Round(h)) % 360,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// fromColorref decodes a packed 0x00BBGGRR value.
func fromColorref(v uint32) RGB {
	return RGB{
		R: uint8(v),
		G: uint8(v >> 8),
		B: uint8(v >> 16),
	}
}

// colorref packs c as 0x00BBGGRR.
func colorref(c RGB) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
}

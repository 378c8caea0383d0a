package main

import (
	"fmt"
	"log/slog"
)

// bitsPerPixel is the readback depth for region sampling: packed BGR, no alpha.
const bitsPerPixel = 24

// Sampler reads screen colors through a Device. It holds no state between
// calls, so one Sampler may be shared by concurrent callers as long as the
// Device is safe for concurrent use.
type Sampler struct {
	dev Device
}

// NewSampler returns a Sampler backed by dev.
func NewSampler(dev Device) *Sampler {
	return &Sampler{dev: dev}
}

// PointerPosition returns the pointer position at the time of the call.
func (s *Sampler) PointerPosition() (Point, error) {
	p, err := s.dev.CursorPos()
	if err != nil {
		return Point{}, fmt.Errorf("%w: %w", ErrPlatformQuery, err)
	}
	return p, nil
}

// SamplePixel reads the color of the single pixel at p.
func (s *Sampler) SamplePixel(p Point) (RGB, error) {
	dc, err := s.dev.ScreenDC()
	if err != nil {
		return RGB{}, fmt.Errorf("%w: acquiring screen context: %w", ErrSample, err)
	}
	defer s.release("screen context", dc, s.dev.ReleaseDC)

	v, err := s.dev.Pixel(dc, p)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: at %v: %w", ErrSample, p, err)
	}
	if v > 0xFFFFFF {
		return RGB{}, fmt.Errorf("%w: at %v: value %#x out of range", ErrSample, p, v)
	}

	c := fromColorref(v)
	logger().Debug("sampled pixel", "point", p, "color", c)
	return c, nil
}

// SampleRegion reads the 21x21 neighborhood centered on p with one block
// copy. Colors are row-major: index i is the pixel at
// (p.X-10+i%21, p.Y-10+i/21). The result is all-or-nothing.
func (s *Sampler) SampleRegion(p Point) ([]RGB, error) {
	r := regionRect(p)

	dc, err := s.dev.ScreenDC()
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring screen context: %w", ErrBlit, err)
	}
	defer s.release("screen context", dc, s.dev.ReleaseDC)

	memDC, err := s.dev.CreateCompatibleDC(dc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating memory context: %w", ErrBlit, err)
	}
	defer s.release("memory context", memDC, s.dev.DeleteDC)

	bmp, err := s.dev.CreateCompatibleBitmap(dc, r.W, r.H)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %dx%d bitmap: %w", ErrBlit, r.W, r.H, err)
	}
	defer s.release("bitmap", bmp, s.dev.DeleteBitmap)

	prev, err := s.dev.SelectBitmap(memDC, bmp)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting bitmap: %w", ErrBlit, err)
	}
	// A selected bitmap can be neither read back nor deleted.
	selected := prev != 0
	defer func() {
		if !selected {
			return
		}
		if _, err := s.dev.SelectBitmap(memDC, prev); err != nil {
			logger().Warn("restoring selection", "error", err)
		}
	}()

	if err := s.dev.BitBlt(memDC, Point{}, dc, r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlit, err)
	}
	if selected {
		if _, err := s.dev.SelectBitmap(memDC, prev); err != nil {
			return nil, fmt.Errorf("%w: deselecting bitmap: %w", ErrExtract, err)
		}
		selected = false
	}

	info := BitmapInfo{
		Width:    r.W,
		Height:   r.H,
		BitCount: bitsPerPixel,
		TopDown:  true,
	}
	buf := make([]byte, info.Size())
	lines, err := s.dev.DIBits(memDC, bmp, info, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}
	if lines != info.Height {
		return nil, fmt.Errorf("%w: copied %d of %d scan lines", ErrExtract, lines, info.Height)
	}

	colors, err := decodeBGR24(buf, r.W, r.H)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}
	logger().Debug("sampled region", "rect", r, "stride", info.Stride(), "center", colors[regionCenter])
	return colors, nil
}

// release frees h and logs, rather than returns, a failure so the caller's
// own result is not masked.
func (s *Sampler) release(what string, h Handle, free func(Handle) error) {
	if err := free(h); err != nil {
		logger().Warn("releasing "+what, slog.Any("handle", uintptr(h)), "error", err)
	}
}

// rowStride is the padded byte length of a 24-bit row w pixels wide.
func rowStride(w int) int {
	return ((w*bitsPerPixel + 31) / 32) * 4
}

// pixelOffset is the byte offset of the blue channel of pixel (col, row)
// in a top-down 24-bit buffer w pixels wide.
func pixelOffset(w, col, row int) int {
	return row*rowStride(w) + col*3
}

// decodeBGR24 converts a top-down, row-padded BGR buffer into RGB colors
// in row-major order. Pad bytes at the end of each row are skipped.
func decodeBGR24(buf []byte, w, h int) ([]RGB, error) {
	stride := rowStride(w)
	if len(buf) < stride*h {
		return nil, fmt.Errorf("buffer holds %d bytes, need %d for %dx%d", len(buf), stride*h, w, h)
	}
	colors := make([]RGB, 0, w*h)
	for row := 0; row < h; row++ {
		line := buf[row*stride : row*stride+w*3]
		for col := 0; col < w; col++ {
			i := col * 3
			colors = append(colors, RGB{R: line[i+2], G: line[i+1], B: line[i]})
		}
	}
	return colors, nil
}

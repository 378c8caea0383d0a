package main

import (
	"errors"
	"image"
	"testing"
)

func TestHandleTable(t *testing.T) {
	var tbl handleTable[string]

	a := tbl.put("a")
	b := tbl.put("b")
	if a == 0 || b == 0 || a == b {
		t.Fatalf("bad handles %d, %d", a, b)
	}

	if v, err := tbl.get(a); err != nil || v != "a" {
		t.Fatalf("get(a) = %q, %v", v, err)
	}
	if err := tbl.set(b, "bb"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := tbl.take(b); err != nil || v != "bb" {
		t.Fatalf("take(b) = %q, %v", v, err)
	}
	if _, err := tbl.take(b); err == nil {
		t.Error("expected error taking a released handle")
	}
	if err := tbl.set(b, "x"); err == nil {
		t.Error("expected error setting a released handle")
	}
	if n := tbl.len(); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
}

// gradient fills r so that pixel (x, y) is RGB (x, y, 200).
func gradient(r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off] = uint8(x)
			img.Pix[off+1] = uint8(y)
			img.Pix[off+2] = 200
			img.Pix[off+3] = 255
		}
	}
	return img
}

func TestPackBGR24(t *testing.T) {
	img := gradient(image.Rect(0, 0, 5, 2))

	t.Run("top-down", func(t *testing.T) {
		info := BitmapInfo{Width: 5, Height: 2, BitCount: 24, TopDown: true}
		buf := make([]byte, info.Size())
		if n := packBGR24(img.Pix, img.Stride, info, buf); n != 2 {
			t.Fatalf("packed %d lines, want 2", n)
		}
		// Row 1, column 3 sits after a 16-byte padded row.
		off := 16 + 3*3
		if buf[off] != 200 || buf[off+1] != 1 || buf[off+2] != 3 {
			t.Errorf("got % x, want c8 01 03", buf[off:off+3])
		}
	})

	t.Run("bottom-up", func(t *testing.T) {
		info := BitmapInfo{Width: 5, Height: 2, BitCount: 24}
		buf := make([]byte, info.Size())
		packBGR24(img.Pix, img.Stride, info, buf)
		// Image row 1 is stored first.
		if buf[1] != 1 || buf[16+1] != 0 {
			t.Errorf("rows not flipped: green %d then %d", buf[1], buf[16+1])
		}
	})
}

func TestCheckDIBInfo(t *testing.T) {
	ok := BitmapInfo{Width: 21, Height: 21, BitCount: 24}
	if err := checkDIBInfo(ok, make([]byte, ok.Size())); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checkDIBInfo(ok, make([]byte, 21*21*3)); err == nil {
		t.Error("expected error for a buffer without row padding")
	}
	if err := checkDIBInfo(BitmapInfo{Width: 21, Height: 21, BitCount: 32}, make([]byte, 4096)); err == nil {
		t.Error("expected error for 32 bpp")
	}
}

func newTestScreenshotDevice(screen image.Rectangle) (*screenshotDevice, *int) {
	captures := 0
	return &screenshotDevice{
		pointer: func() (Point, error) { return Point{X: 30, Y: 40}, nil },
		capture: func(r image.Rectangle) (*image.RGBA, error) {
			captures++
			src := gradient(screen)
			out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
			for y := 0; y < r.Dy(); y++ {
				copy(out.Pix[y*out.Stride:], src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):src.PixOffset(r.Max.X, r.Min.Y+y)])
			}
			return out, nil
		},
		bounds: func() (image.Rectangle, error) { return screen, nil },
	}, &captures
}

func TestScreenshotDevice_SampleRegion(t *testing.T) {
	dev, captures := newTestScreenshotDevice(image.Rect(0, 0, 100, 80))
	s := NewSampler(dev)

	p, err := s.PointerPosition()
	if err != nil {
		t.Fatalf("PointerPosition: %v", err)
	}
	colors, err := s.SampleRegion(p)
	if err != nil {
		t.Fatalf("SampleRegion: %v", err)
	}
	if *captures != 1 {
		t.Errorf("region took %d captures, want 1", *captures)
	}
	for i, c := range colors {
		x, y := p.X-10+i%21, p.Y-10+i/21
		want := RGB{R: uint8(x), G: uint8(y), B: 200}
		if c != want {
			t.Fatalf("index %d: got %v, want %v", i, c, want)
		}
	}

	pixel, err := s.SamplePixel(p)
	if err != nil {
		t.Fatalf("SamplePixel: %v", err)
	}
	if pixel != colors[regionCenter] {
		t.Errorf("pixel %v != center %v", pixel, colors[regionCenter])
	}
	if dev.dcs.len() != 0 || dev.bmps.len() != 0 {
		t.Errorf("leaked %d contexts and %d bitmaps", dev.dcs.len(), dev.bmps.len())
	}
}

func TestScreenshotDevice_OutsideDesktop(t *testing.T) {
	dev, _ := newTestScreenshotDevice(image.Rect(0, 0, 100, 80))
	s := NewSampler(dev)

	if _, err := s.SampleRegion(Point{X: 95, Y: 40}); !errors.Is(err, ErrBlit) {
		t.Errorf("expected ErrBlit, got %v", err)
	}
	if _, err := s.SamplePixel(Point{X: 100, Y: 0}); !errors.Is(err, ErrSample) {
		t.Errorf("expected ErrSample, got %v", err)
	}
	if dev.dcs.len() != 0 || dev.bmps.len() != 0 {
		t.Errorf("leaked %d contexts and %d bitmaps", dev.dcs.len(), dev.bmps.len())
	}
}

func TestNewDevice_UnknownBackend(t *testing.T) {
	if _, _, err := NewDevice("opengl"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

package main

import (
	"fmt"
	"sync"
)

// Handle is an opaque graphics handle: a device context or a bitmap.
// Zero is never a valid handle.
type Handle uintptr

// BitmapInfo describes the layout requested from DIBits.
type BitmapInfo struct {
	Width    int
	Height   int
	BitCount int
	// TopDown stores the first image row first. Otherwise rows are stored
	// bottom-up, the platform default.
	TopDown bool
}

// Stride is the byte length of one row, padded to a multiple of 4.
func (bi BitmapInfo) Stride() int {
	return ((bi.Width*bi.BitCount + 31) / 32) * 4
}

// Size is the buffer length needed for the whole bitmap.
func (bi BitmapInfo) Size() int {
	return bi.Stride() * bi.Height
}

// Device is the graphics capability the sampler runs against. It follows
// the GDI model: a device context on the whole screen, in-memory contexts
// with a selected bitmap, block transfers between them and raw readback of
// a bitmap's pixels.
//
// Every handle returned by ScreenDC, CreateCompatibleDC and
// CreateCompatibleBitmap must be released by the caller with ReleaseDC,
// DeleteDC and DeleteBitmap respectively.
type Device interface {
	// CursorPos reports the current pointer position.
	CursorPos() (Point, error)

	// ScreenDC acquires a device context on the desktop surface.
	ScreenDC() (Handle, error)
	ReleaseDC(dc Handle) error

	// Pixel reads one pixel as 0x00BBGGRR. A failed read is an error,
	// never a reserved value.
	Pixel(dc Handle, p Point) (uint32, error)

	CreateCompatibleDC(dc Handle) (Handle, error)
	DeleteDC(dc Handle) error
	CreateCompatibleBitmap(dc Handle, w, h int) (Handle, error)
	DeleteBitmap(bmp Handle) error

	// SelectBitmap makes bmp the render target of dc and returns the
	// previously selected bitmap, which may be zero.
	SelectBitmap(dc, bmp Handle) (Handle, error)

	// BitBlt copies src's block r into dst at dstAt, same size.
	BitBlt(dst Handle, dstAt Point, src Handle, r Rect) error

	// DIBits copies the pixels of bmp into buf in the layout described by
	// info and returns the number of scan lines copied.
	DIBits(dc, bmp Handle, info BitmapInfo, buf []byte) (int, error)

	Close() error
}

// handleTable hands out handles for devices whose resources are Go values
// rather than kernel handles. Safe for concurrent use.
type handleTable[T any] struct {
	mu   sync.Mutex
	next Handle
	m    map[Handle]T
}

func (t *handleTable[T]) put(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m == nil {
		t.m = make(map[Handle]T)
	}
	t.next++
	t.m[t.next] = v
	return t.next
}

func (t *handleTable[T]) get(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.m[h]
	if !ok {
		var zero T
		return zero, fmt.Errorf("invalid handle %#x", uintptr(h))
	}
	return v, nil
}

func (t *handleTable[T]) set(h Handle, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[h]; !ok {
		return fmt.Errorf("invalid handle %#x", uintptr(h))
	}
	t.m[h] = v
	return nil
}

func (t *handleTable[T]) take(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.m[h]
	if !ok {
		var zero T
		return zero, fmt.Errorf("invalid handle %#x", uintptr(h))
	}
	delete(t.m, h)
	return v, nil
}

func (t *handleTable[T]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// packBGR24 writes an RGBA pixel block (4 bytes per pixel, pixStride bytes
// per row) into buf as 24-bit BGR rows padded per info.
func packBGR24(pix []byte, pixStride int, info BitmapInfo, buf []byte) int {
	stride := info.Stride()
	lines := 0
	for y := 0; y < info.Height; y++ {
		dst := y
		if !info.TopDown {
			dst = info.Height - 1 - y
		}
		row := buf[dst*stride : dst*stride+info.Width*3]
		src := pix[y*pixStride:]
		for x := 0; x < info.Width; x++ {
			row[x*3] = src[x*4+2]
			row[x*3+1] = src[x*4+1]
			row[x*3+2] = src[x*4]
		}
		lines++
	}
	return lines
}

// checkDIBInfo validates the layout the devices know how to produce.
func checkDIBInfo(info BitmapInfo, buf []byte) error {
	if info.BitCount != 24 {
		return fmt.Errorf("unsupported bit count %d", info.BitCount)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("invalid bitmap size %dx%d", info.Width, info.Height)
	}
	if len(buf) < info.Size() {
		return fmt.Errorf("buffer too small: %d < %d", len(buf), info.Size())
	}
	return nil
}

//go:build windows

package main

import (
	"fmt"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

// clrInvalid is what GetPixel returns when the read fails.
const clrInvalid = 0xFFFFFFFF

var (
	gdi32        = windows.NewLazySystemDLL("gdi32.dll")
	procGetPixel = gdi32.NewProc("GetPixel")
)

// gdiDevice talks to user32/gdi32 directly. Handles are the native HDC and
// HBITMAP values.
type gdiDevice struct {
	desktop win.HWND
}

func newNativeDevice() (Device, string, error) {
	if err := procGetPixel.Find(); err != nil {
		return nil, "", fmt.Errorf("loading gdi32: %w", err)
	}
	return &gdiDevice{desktop: win.GetDesktopWindow()}, "GDI", nil
}

func (d *gdiDevice) Close() error { return nil }

func (d *gdiDevice) CursorPos() (Point, error) {
	return nativePointer()
}

func nativePointer() (Point, error) {
	var pt win.POINT
	if !win.GetCursorPos(&pt) {
		return Point{}, fmt.Errorf("GetCursorPos: %w", windows.GetLastError())
	}
	return Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (d *gdiDevice) ScreenDC() (Handle, error) {
	hdc := win.GetDC(d.desktop)
	if hdc == 0 {
		return 0, fmt.Errorf("GetDC failed")
	}
	return Handle(hdc), nil
}

func (d *gdiDevice) ReleaseDC(dc Handle) error {
	if !win.ReleaseDC(d.desktop, win.HDC(dc)) {
		return fmt.Errorf("ReleaseDC %#x failed", uintptr(dc))
	}
	return nil
}

func (d *gdiDevice) Pixel(dc Handle, p Point) (uint32, error) {
	r, _, callErr := procGetPixel.Call(uintptr(dc), uintptr(int32(p.X)), uintptr(int32(p.Y)))
	v := uint32(r)
	if v == clrInvalid {
		return 0, fmt.Errorf("GetPixel(%d, %d): %v", p.X, p.Y, callErr)
	}
	return v, nil
}

func (d *gdiDevice) CreateCompatibleDC(dc Handle) (Handle, error) {
	mem := win.CreateCompatibleDC(win.HDC(dc))
	if mem == 0 {
		return 0, fmt.Errorf("CreateCompatibleDC failed")
	}
	return Handle(mem), nil
}

func (d *gdiDevice) DeleteDC(dc Handle) error {
	if !win.DeleteDC(win.HDC(dc)) {
		return fmt.Errorf("DeleteDC %#x failed", uintptr(dc))
	}
	return nil
}

func (d *gdiDevice) CreateCompatibleBitmap(dc Handle, w, h int) (Handle, error) {
	bmp := win.CreateCompatibleBitmap(win.HDC(dc), int32(w), int32(h))
	if bmp == 0 {
		return 0, fmt.Errorf("CreateCompatibleBitmap(%d, %d) failed", w, h)
	}
	return Handle(bmp), nil
}

func (d *gdiDevice) DeleteBitmap(bmp Handle) error {
	if !win.DeleteObject(win.HGDIOBJ(bmp)) {
		return fmt.Errorf("DeleteObject %#x failed", uintptr(bmp))
	}
	return nil
}

func (d *gdiDevice) SelectBitmap(dc, bmp Handle) (Handle, error) {
	prev := win.SelectObject(win.HDC(dc), win.HGDIOBJ(bmp))
	if prev == 0 {
		return 0, fmt.Errorf("SelectObject failed")
	}
	return Handle(prev), nil
}

// virtualScreen is the bounding rectangle of all monitors.
func virtualScreen() Rect {
	return Rect{
		X: int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)),
		Y: int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)),
		W: int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)),
		H: int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)),
	}
}

// BitBlt from the desktop fills pixels outside every monitor with black
// instead of failing, so the source is checked here.
func (d *gdiDevice) BitBlt(dst Handle, dstAt Point, src Handle, r Rect) error {
	if vs := virtualScreen(); !r.within(vs) {
		return fmt.Errorf("%+v is outside the virtual screen %+v", r, vs)
	}
	ok := win.BitBlt(win.HDC(dst), int32(dstAt.X), int32(dstAt.Y), int32(r.W), int32(r.H),
		win.HDC(src), int32(r.X), int32(r.Y), win.SRCCOPY)
	if !ok {
		return fmt.Errorf("BitBlt %+v: %w", r, windows.GetLastError())
	}
	return nil
}

func (d *gdiDevice) DIBits(dc, bmp Handle, info BitmapInfo, buf []byte) (int, error) {
	if err := checkDIBInfo(info, buf); err != nil {
		return 0, err
	}
	height := int32(info.Height)
	if info.TopDown {
		height = -height
	}
	var bmi win.BITMAPINFO
	bmi.BmiHeader = win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(info.Width),
		BiHeight:      height,
		BiPlanes:      1,
		BiBitCount:    uint16(info.BitCount),
		BiCompression: win.BI_RGB,
	}
	n := win.GetDIBits(win.HDC(dc), win.HBITMAP(bmp), 0, uint32(info.Height),
		&buf[0], &bmi, win.DIB_RGB_COLORS)
	if n <= 0 {
		return 0, fmt.Errorf("GetDIBits returned %d", n)
	}
	return int(n), nil
}

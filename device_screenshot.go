package main

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/kbinani/screenshot"
)

type shotDC struct {
	bitmap Handle
	screen bool
}

// screenshotDevice emulates device contexts on top of kbinani/screenshot.
// Bitmaps are in-memory RGBA images and a block transfer is a screen
// capture of the source rectangle.
type screenshotDevice struct {
	pointer func() (Point, error)
	capture func(image.Rectangle) (*image.RGBA, error)
	bounds  func() (image.Rectangle, error)

	dcs  handleTable[shotDC]
	bmps handleTable[*image.RGBA]
}

func newScreenshotDevice() (Device, string, error) {
	if _, err := desktopBounds(); err != nil {
		return nil, "", err
	}
	return &screenshotDevice{
		pointer: nativePointer,
		capture: screenshot.CaptureRect,
		bounds:  desktopBounds,
	}, "screenshot", nil
}

// desktopBounds is the union of all active display bounds.
func desktopBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays")
	}
	var all image.Rectangle
	for i := 0; i < n; i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all, nil
}

func (d *screenshotDevice) Close() error { return nil }

func (d *screenshotDevice) CursorPos() (Point, error) {
	return d.pointer()
}

func (d *screenshotDevice) ScreenDC() (Handle, error) {
	return d.dcs.put(shotDC{screen: true}), nil
}

func (d *screenshotDevice) ReleaseDC(dc Handle) error {
	_, err := d.dcs.take(dc)
	return err
}

func (d *screenshotDevice) grab(r Rect) (*image.RGBA, error) {
	rect := image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
	all, err := d.bounds()
	if err != nil {
		return nil, err
	}
	if rect.Empty() || !rect.In(all) {
		return nil, fmt.Errorf("%v is outside the desktop %v", rect, all)
	}
	img, err := d.capture(rect)
	if err != nil {
		return nil, fmt.Errorf("capturing %v: %w", rect, err)
	}
	return img, nil
}

func (d *screenshotDevice) Pixel(dc Handle, p Point) (uint32, error) {
	c, err := d.dcs.get(dc)
	if err != nil {
		return 0, err
	}
	if !c.screen {
		return 0, fmt.Errorf("pixel reads need a screen context")
	}
	img, err := d.grab(Rect{X: p.X, Y: p.Y, W: 1, H: 1})
	if err != nil {
		return 0, err
	}
	if len(img.Pix) < 4 {
		return 0, fmt.Errorf("capture returned %d bytes", len(img.Pix))
	}
	return colorref(RGB{R: img.Pix[0], G: img.Pix[1], B: img.Pix[2]}), nil
}

func (d *screenshotDevice) CreateCompatibleDC(dc Handle) (Handle, error) {
	if _, err := d.dcs.get(dc); err != nil {
		return 0, err
	}
	return d.dcs.put(shotDC{}), nil
}

func (d *screenshotDevice) DeleteDC(dc Handle) error {
	_, err := d.dcs.take(dc)
	return err
}

func (d *screenshotDevice) CreateCompatibleBitmap(dc Handle, w, h int) (Handle, error) {
	if _, err := d.dcs.get(dc); err != nil {
		return 0, err
	}
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("invalid bitmap size %dx%d", w, h)
	}
	return d.bmps.put(image.NewRGBA(image.Rect(0, 0, w, h))), nil
}

func (d *screenshotDevice) DeleteBitmap(bmp Handle) error {
	_, err := d.bmps.take(bmp)
	return err
}

func (d *screenshotDevice) SelectBitmap(dc, bmp Handle) (Handle, error) {
	c, err := d.dcs.get(dc)
	if err != nil {
		return 0, err
	}
	if _, err := d.bmps.get(bmp); err != nil {
		return 0, err
	}
	prev := c.bitmap
	c.bitmap = bmp
	return prev, d.dcs.set(dc, c)
}

func (d *screenshotDevice) BitBlt(dst Handle, dstAt Point, src Handle, r Rect) error {
	s, err := d.dcs.get(src)
	if err != nil {
		return err
	}
	if !s.screen {
		return fmt.Errorf("source must be a screen context")
	}
	t, err := d.dcs.get(dst)
	if err != nil {
		return err
	}
	target, err := d.bmps.get(t.bitmap)
	if err != nil {
		return fmt.Errorf("no bitmap selected into destination: %w", err)
	}
	img, err := d.grab(r)
	if err != nil {
		return err
	}
	at := image.Pt(dstAt.X, dstAt.Y)
	draw.Draw(target, image.Rectangle{Min: at, Max: at.Add(img.Rect.Size())}, img, img.Rect.Min, draw.Src)
	return nil
}

func (d *screenshotDevice) DIBits(dc, bmp Handle, info BitmapInfo, buf []byte) (int, error) {
	if err := checkDIBInfo(info, buf); err != nil {
		return 0, err
	}
	if _, err := d.dcs.get(dc); err != nil {
		return 0, err
	}
	img, err := d.bmps.get(bmp)
	if err != nil {
		return 0, err
	}
	if info.Width > img.Rect.Dx() || info.Height > img.Rect.Dy() {
		return 0, fmt.Errorf("requested %dx%d from a %dx%d bitmap",
			info.Width, info.Height, img.Rect.Dx(), img.Rect.Dy())
	}
	return packBGR24(img.Pix, img.Stride, info, buf), nil
}

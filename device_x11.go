//go:build linux

package main

import (
	"fmt"
	"os"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

type x11DC struct {
	gc       xproto.Gcontext
	drawable xproto.Drawable
	bitmap   Handle
	screen   bool
}

type x11Bitmap struct {
	pixmap xproto.Pixmap
	w, h   int
}

// x11Device maps the GDI model onto core X requests: a device context is a
// graphics context plus the drawable it targets, a bitmap is a pixmap, and
// a block transfer is CopyArea.
type x11Device struct {
	conn     *xgb.Conn
	screen   *xproto.ScreenInfo
	msbFirst bool

	dcs  handleTable[x11DC]
	bmps handleTable[x11Bitmap]
}

func newNativeDevice() (Device, string, error) {
	d, err := newX11Device()
	if err != nil {
		return nil, "", err
	}
	return d, "X11", nil
}

func newX11Device() (*x11Device, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("DISPLAY not set")
	}
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connecting to X server: %w", err)
	}
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	bpp := 0
	for _, f := range setup.PixmapFormats {
		if f.Depth == screen.RootDepth {
			bpp = int(f.BitsPerPixel)
		}
	}
	if bpp != 32 {
		conn.Close()
		return nil, fmt.Errorf("root depth %d uses %d bits per pixel: %w", screen.RootDepth, bpp, ErrUnsupported)
	}

	return &x11Device{
		conn:     conn,
		screen:   screen,
		msbFirst: setup.ImageByteOrder == xproto.ImageOrderMSBFirst,
	}, nil
}

func (d *x11Device) Close() error {
	d.conn.Close()
	return nil
}

func (d *x11Device) CursorPos() (Point, error) {
	return queryPointer(d.conn, d.screen.Root)
}

// nativePointer queries the pointer over a short-lived connection. Unlike
// newX11Device it accepts any pixel format.
func nativePointer() (Point, error) {
	if os.Getenv("DISPLAY") == "" {
		return Point{}, fmt.Errorf("DISPLAY not set")
	}
	conn, err := xgb.NewConn()
	if err != nil {
		return Point{}, fmt.Errorf("connecting to X server: %w", err)
	}
	defer conn.Close()

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return queryPointer(conn, root)
}

func queryPointer(conn *xgb.Conn, root xproto.Window) (Point, error) {
	reply, err := xproto.QueryPointer(conn, root).Reply()
	if err != nil {
		return Point{}, fmt.Errorf("QueryPointer: %w", err)
	}
	return Point{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}

func (d *x11Device) newGC() (xproto.Gcontext, error) {
	gc, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		return 0, err
	}
	// Copies from the root window must include the windows on top of it.
	err = xproto.CreateGCChecked(d.conn, gc, xproto.Drawable(d.screen.Root),
		xproto.GcSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors}).Check()
	if err != nil {
		return 0, fmt.Errorf("CreateGC: %w", err)
	}
	return gc, nil
}

func (d *x11Device) ScreenDC() (Handle, error) {
	gc, err := d.newGC()
	if err != nil {
		return 0, err
	}
	return d.dcs.put(x11DC{gc: gc, drawable: xproto.Drawable(d.screen.Root), screen: true}), nil
}

func (d *x11Device) ReleaseDC(dc Handle) error {
	return d.DeleteDC(dc)
}

func (d *x11Device) inScreen(r Rect) bool {
	return r.within(Rect{W: int(d.screen.WidthInPixels), H: int(d.screen.HeightInPixels)})
}

func (d *x11Device) Pixel(dc Handle, p Point) (uint32, error) {
	c, err := d.dcs.get(dc)
	if err != nil {
		return 0, err
	}
	if c.screen && !d.inScreen(Rect{X: p.X, Y: p.Y, W: 1, H: 1}) {
		return 0, fmt.Errorf("%v is outside the %dx%d screen", p, d.screen.WidthInPixels, d.screen.HeightInPixels)
	}
	img, err := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap, c.drawable,
		int16(p.X), int16(p.Y), 1, 1, ^uint32(0)).Reply()
	if err != nil {
		return 0, fmt.Errorf("GetImage: %w", err)
	}
	if len(img.Data) < 4 {
		return 0, fmt.Errorf("GetImage returned %d bytes", len(img.Data))
	}
	px := zpixmapToRGBA(img.Data[:4], d.msbFirst)
	return colorref(RGB{R: px[0], G: px[1], B: px[2]}), nil
}

func (d *x11Device) CreateCompatibleDC(dc Handle) (Handle, error) {
	if _, err := d.dcs.get(dc); err != nil {
		return 0, err
	}
	gc, err := d.newGC()
	if err != nil {
		return 0, err
	}
	return d.dcs.put(x11DC{gc: gc}), nil
}

func (d *x11Device) DeleteDC(dc Handle) error {
	c, err := d.dcs.take(dc)
	if err != nil {
		return err
	}
	return xproto.FreeGCChecked(d.conn, c.gc).Check()
}

func (d *x11Device) CreateCompatibleBitmap(dc Handle, w, h int) (Handle, error) {
	if _, err := d.dcs.get(dc); err != nil {
		return 0, err
	}
	pid, err := xproto.NewPixmapId(d.conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreatePixmapChecked(d.conn, d.screen.RootDepth, pid,
		xproto.Drawable(d.screen.Root), uint16(w), uint16(h)).Check()
	if err != nil {
		return 0, fmt.Errorf("CreatePixmap: %w", err)
	}
	return d.bmps.put(x11Bitmap{pixmap: pid, w: w, h: h}), nil
}

func (d *x11Device) DeleteBitmap(bmp Handle) error {
	b, err := d.bmps.take(bmp)
	if err != nil {
		return err
	}
	return xproto.FreePixmapChecked(d.conn, b.pixmap).Check()
}

func (d *x11Device) SelectBitmap(dc, bmp Handle) (Handle, error) {
	c, err := d.dcs.get(dc)
	if err != nil {
		return 0, err
	}
	b, err := d.bmps.get(bmp)
	if err != nil {
		return 0, err
	}
	prev := c.bitmap
	c.bitmap = bmp
	c.drawable = xproto.Drawable(b.pixmap)
	return prev, d.dcs.set(dc, c)
}

func (d *x11Device) BitBlt(dst Handle, dstAt Point, src Handle, r Rect) error {
	s, err := d.dcs.get(src)
	if err != nil {
		return err
	}
	t, err := d.dcs.get(dst)
	if err != nil {
		return err
	}
	if t.drawable == 0 {
		return fmt.Errorf("no bitmap selected into destination")
	}
	if s.screen && !d.inScreen(r) {
		return fmt.Errorf("%+v is outside the %dx%d screen", r, d.screen.WidthInPixels, d.screen.HeightInPixels)
	}
	return xproto.CopyAreaChecked(d.conn, s.drawable, t.drawable, t.gc,
		int16(r.X), int16(r.Y), int16(dstAt.X), int16(dstAt.Y), uint16(r.W), uint16(r.H)).Check()
}

func (d *x11Device) DIBits(dc, bmp Handle, info BitmapInfo, buf []byte) (int, error) {
	if err := checkDIBInfo(info, buf); err != nil {
		return 0, err
	}
	if _, err := d.dcs.get(dc); err != nil {
		return 0, err
	}
	b, err := d.bmps.get(bmp)
	if err != nil {
		return 0, err
	}
	if info.Width > b.w || info.Height > b.h {
		return 0, fmt.Errorf("requested %dx%d from a %dx%d bitmap", info.Width, info.Height, b.w, b.h)
	}
	img, err := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap, xproto.Drawable(b.pixmap),
		0, 0, uint16(info.Width), uint16(info.Height), ^uint32(0)).Reply()
	if err != nil {
		return 0, fmt.Errorf("GetImage: %w", err)
	}
	if len(img.Data) < info.Width*info.Height*4 {
		return 0, fmt.Errorf("GetImage returned %d bytes for %dx%d", len(img.Data), info.Width, info.Height)
	}
	return packBGR24(zpixmapToRGBA(img.Data, d.msbFirst), info.Width*4, info, buf), nil
}

// zpixmapToRGBA reorders 32-bit ZPixmap pixels into R, G, B, A bytes.
// LSB-first servers send B, G, R, X; MSB-first servers send X, R, G, B.
func zpixmapToRGBA(data []byte, msbFirst bool) []byte {
	out := make([]byte, len(data)/4*4)
	for i := 0; i+4 <= len(data); i += 4 {
		if msbFirst {
			out[i], out[i+1], out[i+2] = data[i+1], data[i+2], data[i+3]
		} else {
			out[i], out[i+1], out[i+2] = data[i+2], data[i+1], data[i]
		}
		out[i+3] = 0xFF
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"

	portalTimeout = 120 * time.Second // the user picks the pixel by hand
)

// PickColorPortal asks the desktop portal to let the user click a pixel and
// returns its color. It works on Wayland sessions where neither the pointer
// position nor the screen contents are readable directly.
func PickColorPortal(ctx context.Context) (RGB, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return RGB{}, fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	portal := conn.Object(portalDest, dbus.ObjectPath(portalPath))
	sender := senderToToken(conn.Names()[0])

	reqToken := "pixelpick_pick"
	reqPath := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/portal/desktop/request/%s/%s", sender, reqToken))

	sigCh := subscribeSignal(conn, reqPath)
	defer conn.RemoveSignal(sigCh)

	call := portal.CallWithContext(ctx, screenshotIface+".PickColor", 0, "", map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(reqToken),
	})
	if call.Err != nil {
		return RGB{}, fmt.Errorf("PickColor: %w", call.Err)
	}

	ctx, cancel := context.WithTimeout(ctx, portalTimeout)
	defer cancel()
	resp, err := waitForResponse(ctx, sigCh)
	if err != nil {
		return RGB{}, fmt.Errorf("PickColor response: %w", err)
	}

	c, err := extractColor(resp)
	if err != nil {
		return RGB{}, err
	}
	logger().Debug("portal picked color", "color", c)
	return c, nil
}

// subscribeSignal registers a D-Bus signal match for the portal Response signal
// at the given path and returns a channel that receives matching signals.
func subscribeSignal(conn *dbus.Conn, path dbus.ObjectPath) chan *dbus.Signal {
	ch := make(chan *dbus.Signal, 1)
	conn.Signal(ch)
	conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0,
		fmt.Sprintf("type='signal',interface='%s',member='Response',path='%s'", requestIface, path))
	return ch
}

// waitForResponse waits for a portal Response signal and returns the results map.
// A non-zero response code indicates the user cancelled or the request failed.
func waitForResponse(ctx context.Context, ch chan *dbus.Signal) (map[string]dbus.Variant, error) {
	for {
		select {
		case sig := <-ch:
			if sig == nil {
				return nil, fmt.Errorf("signal channel closed")
			}
			if len(sig.Body) < 2 {
				continue
			}
			code, ok := sig.Body[0].(uint32)
			if !ok {
				continue
			}
			if code != 0 {
				return nil, fmt.Errorf("portal request denied (code %d)", code)
			}
			results, ok := sig.Body[1].(map[string]dbus.Variant)
			if !ok {
				return nil, fmt.Errorf("unexpected response type")
			}
			return results, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for portal response: %w", ctx.Err())
		}
	}
}

// senderToToken converts a D-Bus sender name like ":1.42" to "1_42" for use
// in request object paths.
func senderToToken(sender string) string {
	s := strings.TrimPrefix(sender, ":")
	return strings.ReplaceAll(s, ".", "_")
}

// extractColor pulls the picked color from the PickColor response. The
// color field is typed (ddd): red, green and blue in the range [0, 1].
func extractColor(resp map[string]dbus.Variant) (RGB, error) {
	v, ok := resp["color"]
	if !ok {
		return RGB{}, fmt.Errorf("no color in PickColor response")
	}

	var parts []float64
	switch raw := v.Value().(type) {
	case []interface{}:
		for _, p := range raw {
			f, ok := p.(float64)
			if !ok {
				return RGB{}, fmt.Errorf("unexpected channel type: %T", p)
			}
			parts = append(parts, f)
		}
	case []float64:
		parts = raw
	default:
		return RGB{}, fmt.Errorf("unexpected color type: %T", raw)
	}
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("color has %d channels, want 3", len(parts))
	}
	return RGB{R: channel8(parts[0]), G: channel8(parts[1]), B: channel8(parts[2])}, nil
}

func channel8(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}

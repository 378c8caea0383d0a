package main

import (
	"fmt"
)

// Backend names accepted by NewDevice.
const (
	BackendAuto       = "auto"
	BackendNative     = "native"
	BackendScreenshot = "screenshot"
)

// NewDevice opens the graphics device for backend. BackendAuto tries the
// native device (GDI or X11) and falls back to screen captures. It returns
// the device and a human-readable name of what was picked.
func NewDevice(backend string) (Device, string, error) {
	switch backend {
	case BackendNative:
		return newNativeDevice()
	case BackendScreenshot:
		return newScreenshotDevice()
	case BackendAuto, "":
	default:
		return nil, "", fmt.Errorf("unknown backend %q", backend)
	}

	d, name, err := newNativeDevice()
	if err == nil {
		return d, name, nil
	}
	logger().Warn("native device unavailable, falling back to screenshots", "error", err)

	d, name, err2 := newScreenshotDevice()
	if err2 != nil {
		return nil, "", fmt.Errorf("no usable graphics device: native: %v; screenshot: %w", err, err2)
	}
	return d, name, nil
}

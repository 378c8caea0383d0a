//go:build linux

package main

import "testing"

func TestNativePointer_NoDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	if _, err := nativePointer(); err == nil {
		t.Fatal("expected error without a display")
	}
}

func TestZpixmapToRGBA(t *testing.T) {
	lsb := zpixmapToRGBA([]byte{0x10, 0x20, 0x30, 0x00}, false)
	if lsb[0] != 0x30 || lsb[1] != 0x20 || lsb[2] != 0x10 {
		t.Errorf("LSB first: got % x", lsb[:3])
	}
	msb := zpixmapToRGBA([]byte{0x00, 0x30, 0x20, 0x10}, true)
	if msb[0] != 0x30 || msb[1] != 0x20 || msb[2] != 0x10 {
		t.Errorf("MSB first: got % x", msb[:3])
	}
}

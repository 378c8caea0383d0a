//go:build !linux && !windows

package main

import "fmt"

func newNativeDevice() (Device, string, error) {
	return nil, "", fmt.Errorf("no native graphics device: %w", ErrUnsupported)
}

func nativePointer() (Point, error) {
	return Point{}, fmt.Errorf("pointer position: %w", ErrUnsupported)
}

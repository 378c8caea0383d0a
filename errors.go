package main

import "errors"

// ErrPlatformQuery is returned when the operating environment refuses a
// pointer position query, e.g. when there is no display session.
var ErrPlatformQuery = errors.New("pointer query failed")

// ErrSample is returned when a single-pixel read did not produce a color.
var ErrSample = errors.New("pixel read failed")

// ErrBlit is returned when the block copy of a sampling region failed.
var ErrBlit = errors.New("block copy failed")

// ErrExtract is returned when the raw pixel buffer could not be read back
// from the in-memory bitmap.
var ErrExtract = errors.New("pixel buffer extraction failed")

// ErrDocument is returned when the palette document is missing, unreadable
// or malformed.
var ErrDocument = errors.New("palette document")

// ErrUnsupported is returned by a device that lacks a capability on the
// current platform.
var ErrUnsupported = errors.New("not supported by this backend")

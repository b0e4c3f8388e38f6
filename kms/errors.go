package kms

import "errors"

var (
	// ErrNoValidDisplay means no connected connector had a usable
	// encoder, CRTC and mode.
	ErrNoValidDisplay = errors.New("no valid crtc/connector/mode combination")

	// ErrCrtcNotFound means the active CRTC is missing from the card
	// resources.
	ErrCrtcNotFound = errors.New("crtc not found in resources")

	// ErrMissingFramebuffer is returned when posting a buffer that has
	// no framebuffer.
	ErrMissingFramebuffer = errors.New("buffer has no framebuffer")

	// ErrAllocation covers backend allocation failures.
	ErrAllocation = errors.New("buffer allocation failed")

	// ErrDriverCall wraps a failed display engine call.
	ErrDriverCall = errors.New("display driver call failed")

	// ErrUnsupportedFormat is returned when a buffer format cannot back
	// a framebuffer.
	ErrUnsupportedFormat = errors.New("pixel format cannot be scanned out")
)

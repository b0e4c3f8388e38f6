package kms

import (
	"fmt"

	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/gralloc"
)

// NeedsFB reports whether bo is a framebuffer target that is scanned
// out directly. In copy mode only the internal front buffer is.
func (d *Display) NeedsFB(bo *gralloc.Buffer) bool {
	return bo.Handle.Usage&gralloc.UsageHWFB != 0 &&
		d.features.SwapMode != gralloc.SwapCopy
}

// AddFB registers bo as a framebuffer. It does nothing when bo already
// has one; on failure bo.FBID stays 0.
func (d *Display) AddFB(bo *gralloc.Buffer) error {
	if bo.FBID != 0 {
		return nil
	}

	bpp := format.FormatBPP(bo.Handle.Format)
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, bo.Handle.Format)
	}

	id, err := d.dev.AddFB(uint16(bo.Handle.Width), uint16(bo.Handle.Height),
		uint8(bpp), uint8(bpp), uint32(bo.Handle.Stride), bo.FBHandle)
	if err != nil {
		return fmt.Errorf("%w: add fb for %s: %w", ErrDriverCall, bo, err)
	}
	bo.FBID = id
	return nil
}

// RmFB releases the framebuffer of bo, if any.
func (d *Display) RmFB(bo *gralloc.Buffer) {
	if bo.FBID == 0 {
		return
	}
	if err := d.dev.RmFB(bo.FBID); err != nil {
		d.log.Warn("failed to remove fb", "fb", bo.FBID, "err", err)
	}
	bo.FBID = 0
}

// CreateBuffer allocates a buffer through the backend and binds a
// framebuffer to it when it will be posted directly.
func (d *Display) CreateBuffer(width, height int, f format.Format, usage gralloc.Usage) (*gralloc.Buffer, error) {
	return d.ImportBuffer(&gralloc.Handle{
		Width:  width,
		Height: height,
		Format: f,
		Usage:  usage,
	})
}

// ImportBuffer is CreateBuffer for a prepared handle, eg.: one naming a
// buffer shared by another process.
func (d *Display) ImportBuffer(h *gralloc.Handle) (*gralloc.Buffer, error) {
	bo, err := d.backend.Allocate(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %dx%d %s: %w", ErrAllocation, h.Width, h.Height, h.Format, err)
	}

	if d.NeedsFB(bo) {
		if err := d.AddFB(bo); err != nil {
			d.log.Error("failed to add fb", "bo", bo.String(), "err", err)
			d.backend.Destroy(bo)
			return nil, err
		}
	}
	return bo, nil
}

// DestroyBuffer unbinds and frees bo.
func (d *Display) DestroyBuffer(bo *gralloc.Buffer) {
	d.RmFB(bo)
	d.backend.Destroy(bo)
}

package kms

import (
	"fmt"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/gralloc"
	"github.com/NeowayLabs/kmspost/mode"
)

// Post puts bo on screen using the display's swap mode. It must not be
// called concurrently.
//
// The first post always programs the CRTC. After that, flip mode queues
// a page flip, waiting for the previous one to land first; copy mode
// copies bo into the front buffer; set-crtc mode reprograms the CRTC.
func (d *Display) Post(bo *gralloc.Buffer) error {
	if bo.FBID == 0 && d.features.SwapMode != gralloc.SwapCopy {
		d.log.Error("unable to post bo without fb", "bo", bo.String())
		return fmt.Errorf("%w: %s", ErrMissingFramebuffer, bo)
	}

	if d.firstPost {
		if d.features.SwapMode == gralloc.SwapCopy {
			dst := d.nextFront
			if dst == nil {
				dst = d.currentFront
			}
			if dst == nil {
				return fmt.Errorf("%w: no front buffer", ErrAllocation)
			}
			d.backend.Copy(dst, bo, 0, 0, bo.Handle.Width, bo.Handle.Height)
			bo = dst
		}

		if err := d.setCrtc(bo.FBID); err != nil {
			return err
		}
		d.firstPost = false
		d.currentFront = bo
		if d.nextFront == bo {
			d.setNextFront(nil)
		}
		return nil
	}

	switch d.features.SwapMode {
	case gralloc.SwapFlip:
		if d.features.SwapInterval > 1 {
			d.waitForPost(true)
		}
		err := d.pageFlip(bo)
		if d.nextFront != nil {
			// wait if the driver says so or the current front will be
			// written by CPU
			if d.features.SyncFlip ||
				(d.currentFront != nil && d.currentFront.Handle.Usage.CPUWrite()) {
				d.pageFlip(nil)
			}
		}
		return err

	case gralloc.SwapCopy:
		d.waitForPost(false)
		d.backend.Copy(d.currentFront, bo, 0, 0, bo.Handle.Width, bo.Handle.Height)
		if d.features.QuirkVMWGFX {
			// the refresh is best effort, the copy already happened
			if err := d.dev.DirtyFB(d.currentFront.FBID, []mode.ClipRect{d.clip}); err != nil {
				d.log.Debug("dirty fb failed", "fb", d.currentFront.FBID, "err", err)
			}
		}
		return nil

	case gralloc.SwapSetCrtc:
		d.waitForPost(false)
		err := d.setCrtc(bo.FBID)
		d.currentFront = bo
		return err
	}

	return nil
}

// setCrtc scans fbID out with the chosen mode.
func (d *Display) setCrtc(fbID uint32) error {
	err := d.dev.SetCrtc(d.crtcID, fbID, []uint32{d.connectorID}, &d.mode)
	if err != nil {
		d.log.Error("failed to set crtc", "crtc", d.crtcID, "fb", fbID, "err", err)
		return fmt.Errorf("%w: set crtc %d: %w", ErrDriverCall, d.crtcID, err)
	}

	if d.features.QuirkVMWGFX {
		if err := d.dev.DirtyFB(fbID, []mode.ClipRect{d.clip}); err != nil {
			return fmt.Errorf("%w: dirty fb %d: %w", ErrDriverCall, fbID, err)
		}
	}
	return nil
}

func (d *Display) setNextFront(bo *gralloc.Buffer) {
	d.nextFront = bo
	d.flipPending.Store(bo != nil)
}

// onPageFlip acknowledges the last scheduled flip. It runs inside
// Device.HandleEvent.
func (d *Display) onPageFlip(sequence, sec, usec uint32, data uint64) {
	d.currentFront = d.nextFront
	d.setNextFront(nil)
}

// pageFlip waits for the pending flip, if any, then schedules a flip to
// bo. A nil bo only drains.
func (d *Display) pageFlip(bo *gralloc.Buffer) error {
	for d.nextFront != nil {
		d.waitingFlip.Store(true)
		err := d.dev.HandleEvent(&d.evctx)
		d.waitingFlip.Store(false)
		if d.nextFront != nil {
			// record an error and move on
			d.log.Error("HandleEvent returned without flipping", "err", err)
			d.currentFront = d.nextFront
			d.setNextFront(nil)
		}
	}

	if bo == nil {
		return nil
	}

	err := d.dev.PageFlip(d.crtcID, bo.FBID, mode.PageFlipEvent, 0)
	if err != nil {
		d.log.Error("failed to perform page flip", "crtc", d.crtcID, "fb", bo.FBID, "err", err)
		return fmt.Errorf("%w: page flip: %w", ErrDriverCall, err)
	}
	d.setNextFront(bo)
	return nil
}

// waitForPost paces posting to the swap interval. flip tells whether a
// page flip follows, which itself lands one vblank later. Failures only
// cost the pacing and are logged.
func (d *Display) waitForPost(flip bool) {
	if d.features.QuirkVMWGFX {
		return
	}

	var f uint32
	if flip {
		f = 1
	}

	typ := drm.VBlankRelative
	if d.features.VBlankSecondary {
		typ |= drm.VBlankSecondary
	}

	// get the current vblank
	vbl, err := d.dev.WaitVBlank(drm.VBlank{Type: typ})
	if err != nil {
		d.log.Warn("failed to get vblank", "err", err)
		return
	}

	current := vbl.Sequence
	var target uint32
	if !d.paced {
		target = current
	} else {
		target = d.lastSwap + uint32(d.features.SwapInterval) - f
	}

	if current < target || !flip {
		typ := drm.VBlankAbsolute
		if d.features.VBlankSecondary {
			typ |= drm.VBlankSecondary
		}
		if !flip {
			typ |= drm.VBlankNextOnMiss
			if target < current {
				target = current
			}
		}

		vbl, err = d.dev.WaitVBlank(drm.VBlank{Type: typ, Sequence: target})
		if err != nil {
			d.log.Warn("failed to wait vblank", "target", target, "err", err)
			return
		}
	}

	d.lastSwap = vbl.Sequence + f
	d.paced = true
}

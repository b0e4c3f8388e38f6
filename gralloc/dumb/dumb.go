// Package dumb is an allocator backend built on KMS dumb buffers. It
// works on any driver with the dumb buffer capability; copies are done
// by the CPU.
package dumb

import (
	"errors"
	"fmt"
	"os"

	"launchpad.net/gommap"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/gralloc"
	"github.com/NeowayLabs/kmspost/logging"
	"github.com/NeowayLabs/kmspost/mode"
)

const Name = "dumb"

var ErrNoDumbBuffers = errors.New("drm device does not support dumb buffers")

type (
	Backend struct {
		file   *os.File
		driver string
	}

	native struct {
		handle   uint32
		size     uint64
		imported bool

		data gommap.MMap
	}
)

// New returns a backend allocating from the card behind file.
func New(file *os.File) (*Backend, error) {
	if !drm.HasDumbBuffer(file) {
		return nil, ErrNoDumbBuffers
	}

	b := &Backend{file: file}
	if v, err := drm.GetVersion(file); err == nil {
		b.driver = v.Name
		logging.Info(logging.ComponentGralloc, "using DRM", "driver", v.String())
	}
	return b, nil
}

func (b *Backend) Name() string {
	return Name
}

func nativeOf(bo *gralloc.Buffer) *native {
	nb, _ := bo.Native.(*native)
	return nb
}

func (b *Backend) Allocate(h *gralloc.Handle) (*gralloc.Buffer, error) {
	bpp := format.FormatBPP(h.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("dumb: unsupported format %s", h.Format)
	}

	nb := &native{}
	if h.Name != 0 {
		handle, size, err := drm.GemOpen(b.file, h.Name)
		if err != nil {
			logging.Error(logging.ComponentGralloc, "failed to create bo from name", "name", h.Name, "err", err)
			return nil, err
		}
		nb.handle = handle
		nb.size = size
		nb.imported = true
		if h.Stride == 0 {
			h.Stride = h.Width * bpp / 8
		}
	} else {
		fb, err := mode.CreateFB(b.file, uint16(h.Width), uint16(h.Height), uint32(bpp))
		if err != nil {
			logging.Error(logging.ComponentGralloc, "failed to allocate bo",
				"width", h.Width, "height", h.Height, "format", h.Format, "err", err)
			return nil, err
		}
		nb.handle = fb.Handle
		nb.size = fb.Size
		h.Stride = int(fb.Pitch)
	}

	bo := &gralloc.Buffer{Handle: h, Native: nb}
	if h.Usage&gralloc.UsageHWFB != 0 {
		bo.FBHandle = nb.handle
	}
	return bo, nil
}

func (b *Backend) Destroy(bo *gralloc.Buffer) {
	nb := nativeOf(bo)
	if nb == nil {
		return
	}
	b.Unmap(bo)

	var err error
	if nb.imported {
		err = drm.GemClose(b.file, nb.handle)
	} else {
		err = mode.DestroyDumb(b.file, nb.handle)
	}
	if err != nil {
		logging.Warn(logging.ComponentGralloc, "failed to free bo", "handle", nb.handle, "err", err)
	}
	bo.Native = nil
}

// Map maps the whole buffer read-write once and hands out the
// requested region. Every slice returned stays valid until Unmap or
// Destroy, whatever write asked for.
func (b *Backend) Map(bo *gralloc.Buffer, x, y, w, h int, write bool) ([]byte, error) {
	nb := nativeOf(bo)
	if nb == nil {
		return nil, fmt.Errorf("dumb: %s was not allocated here", bo)
	}

	if nb.data == nil {
		offset, err := mode.MapDumb(b.file, nb.handle)
		if err != nil {
			return nil, err
		}
		data, err := gommap.MapAt(0, b.file.Fd(), int64(offset), int64(nb.size),
			gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("dumb: mmap bo: %w", err)
		}
		nb.data = data
	}

	start, end := region(bo.Handle, x, y, w, h)
	if end > len(nb.data) {
		end = len(nb.data)
	}
	if start > end {
		start = end
	}
	return nb.data[start:end], nil
}

func (b *Backend) Unmap(bo *gralloc.Buffer) {
	nb := nativeOf(bo)
	if nb == nil || nb.data == nil {
		return
	}
	if err := nb.data.UnsafeUnmap(); err != nil {
		logging.Warn(logging.ComponentGralloc, "failed to munmap bo", "handle", nb.handle, "err", err)
	}
	nb.data = nil
}

// Export publishes bo under a global name and records it in the
// handle, so another process can Allocate the same memory.
func (b *Backend) Export(bo *gralloc.Buffer) (uint32, error) {
	nb := nativeOf(bo)
	if nb == nil {
		return 0, fmt.Errorf("dumb: %s was not allocated here", bo)
	}
	if bo.Handle.Name != 0 {
		return bo.Handle.Name, nil
	}
	name, err := drm.GemFlink(b.file, nb.handle)
	if err != nil {
		return 0, fmt.Errorf("dumb: flink bo: %w", err)
	}
	bo.Handle.Name = name
	return name, nil
}

// Copy blits with the CPU. Both buffers need the same depth.
func (b *Backend) Copy(dst, src *gralloc.Buffer, x1, y1, x2, y2 int) {
	cpp := format.BytesPerPixel(src.Handle.Format)
	if cpp == 0 || cpp != format.BytesPerPixel(dst.Handle.Format) {
		logging.Error(logging.ComponentGralloc, "cannot copy between formats",
			"src", src.Handle.Format, "dst", dst.Handle.Format)
		return
	}

	s, err := b.Map(src, 0, 0, 0, 0, false)
	if err != nil {
		logging.Error(logging.ComponentGralloc, "failed to map copy source", "err", err)
		return
	}
	d, err := b.Map(dst, 0, 0, 0, 0, true)
	if err != nil {
		logging.Error(logging.ComponentGralloc, "failed to map copy destination", "err", err)
		return
	}

	x2 = min(x2, src.Handle.Width, dst.Handle.Width)
	y2 = min(y2, src.Handle.Height, dst.Handle.Height)
	copyRect(d, dst.Handle.Stride, s, src.Handle.Stride, cpp, x1, y1, x2, y2)
}

func (b *Backend) InitKMSFeatures(f *gralloc.Features) {
	switch f.FBFormat {
	case format.BGRA8888, format.RGB565:
	default:
		f.FBFormat = format.BGRA8888
	}

	switch b.driver {
	case "vmwgfx":
		// the virtual device only updates the screen on dirty rects
		f.SwapMode = gralloc.SwapCopy
		f.QuirkVMWGFX = true
		f.SwapInterval = 0
	default:
		f.SwapMode = gralloc.SwapFlip
		f.SwapInterval = 1
	}
	f.VBlankSecondary = false
}

// region returns the byte range covering the rectangle at (x, y) of
// size w x h; w or h of 0 selects the whole buffer.
func region(h *gralloc.Handle, x, y, w, hh int) (start, end int) {
	if w == 0 || hh == 0 {
		return 0, h.Stride * h.Height
	}
	cpp := format.BytesPerPixel(h.Format)
	start = y*h.Stride + x*cpp
	end = (y+hh-1)*h.Stride + (x+w)*cpp
	return start, end
}

func copyRect(dst []byte, dstStride int, src []byte, srcStride int, cpp, x1, y1, x2, y2 int) {
	if x2 <= x1 || y2 <= y1 {
		return
	}
	n := (x2 - x1) * cpp
	for y := y1; y < y2; y++ {
		so := y*srcStride + x1*cpp
		do := y*dstStride + x1*cpp
		if so+n > len(src) || do+n > len(dst) {
			return
		}
		copy(dst[do:do+n], src[so:so+n])
	}
}

// Package gralloc defines the buffer objects handed between the
// allocator backends and the display posting code, and the contract a
// backend implements.
package gralloc

import (
	"fmt"

	"github.com/NeowayLabs/kmspost/format"
)

// Usage are the allocation usage bits of a buffer.
type Usage uint32

const (
	UsageSWReadNever  Usage = 0x0
	UsageSWReadRarely Usage = 0x2
	UsageSWReadOften  Usage = 0x3
	UsageSWReadMask   Usage = 0xf

	UsageSWWriteNever  Usage = 0x00
	UsageSWWriteRarely Usage = 0x20
	UsageSWWriteOften  Usage = 0x30
	UsageSWWriteMask   Usage = 0xf0

	UsageHWTexture Usage = 0x100
	UsageHWRender  Usage = 0x200
	UsageHW2D      Usage = 0x400
	UsageHWFB      Usage = 0x1000
)

// CPUWrite reports whether the buffer may be written by the CPU.
func (u Usage) CPUWrite() bool {
	return u&UsageSWWriteMask != 0
}

// Handle describes a buffer: what was asked for at allocation time
// plus the stride the backend chose.
type Handle struct {
	Width, Height int
	Stride        int // bytes
	Format        format.Format
	Usage         Usage

	// Name is a global (flink) name to import instead of allocating.
	Name uint32
}

// Buffer is an allocated buffer object. FBID is the framebuffer the
// display engine knows the buffer as, 0 while unbound.
type Buffer struct {
	Handle *Handle

	// FBHandle is the GEM handle scanout uses, 0 when the buffer
	// cannot be scanned out.
	FBHandle uint32
	FBID     uint32

	// Native is owned by the backend that allocated the buffer.
	Native any
}

func (b *Buffer) String() string {
	return fmt.Sprintf("bo{%dx%d stride %d %s usage %#x gem %#x fb %#x}",
		b.Handle.Width, b.Handle.Height, b.Handle.Stride, b.Handle.Format,
		uint32(b.Handle.Usage), b.FBHandle, b.FBID)
}

// SwapMode is how frames reach the screen.
type SwapMode int

const (
	SwapNoOp SwapMode = iota
	SwapFlip
	SwapCopy
	SwapSetCrtc
)

func (m SwapMode) String() string {
	switch m {
	case SwapFlip:
		return "flip"
	case SwapCopy:
		return "copy"
	case SwapSetCrtc:
		return "set-crtc"
	}
	return "no-op"
}

// ParseSwapMode is the inverse of SwapMode.String, also accepting
// "setcrtc" and "noop".
func ParseSwapMode(s string) (SwapMode, error) {
	switch s {
	case "flip":
		return SwapFlip, nil
	case "copy":
		return SwapCopy, nil
	case "set-crtc", "setcrtc":
		return SwapSetCrtc, nil
	case "no-op", "noop":
		return SwapNoOp, nil
	}
	return SwapNoOp, fmt.Errorf("unknown swap mode %q", s)
}

// Features is what a backend decides about posting once the display
// mode is known.
type Features struct {
	SwapMode     SwapMode
	SwapInterval int

	// VBlankSecondary selects the second CRTC's vblank counter.
	VBlankSecondary bool

	// SyncFlip makes every flip wait for completion before returning.
	SyncFlip bool

	// QuirkVMWGFX disables vblank pacing and flushes the framebuffer
	// with dirty rectangles after every update.
	QuirkVMWGFX bool

	// FBFormat is the negotiated framebuffer format; backends may
	// override it.
	FBFormat format.Format
}

// Backend is the device specific half of the allocator.
type Backend interface {
	Name() string

	Allocate(h *Handle) (*Buffer, error)
	Destroy(b *Buffer)

	// Map returns the pixels of the region, the whole buffer when w
	// or h is 0.
	Map(b *Buffer, x, y, w, h int, write bool) ([]byte, error)
	Unmap(b *Buffer)

	// Copy copies the rectangle (x1,y1)-(x2,y2) of src into dst.
	Copy(dst, src *Buffer, x1, y1, x2, y2 int)

	// InitKMSFeatures is called once after the display mode has been
	// chosen.
	InitKMSFeatures(f *Features)
}

// ModuleName is the name other modules look the allocator up by.
const ModuleName = "DRM Memory Allocator"

// Module is the allocator as seen by the other display modules: a
// backend on an open card.
type Module struct {
	backend Backend
	fd      uintptr
}

func NewModule(backend Backend, fd uintptr) *Module {
	return &Module{backend: backend, fd: fd}
}

func (m *Module) Name() string {
	return ModuleName
}

func (m *Module) Version() (major, minor int) {
	return 1, 0
}

// FD is the card the backend allocates from.
func (m *Module) FD() uintptr {
	return m.fd
}

func (m *Module) Backend() Backend {
	return m.backend
}

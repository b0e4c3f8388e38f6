package drm

import (
	"os"
	"unsafe"

	"github.com/NeowayLabs/kmspost/ioctl"
)

// VBlankType are the request flags of the vblank wait ioctl.
type VBlankType uint32

const (
	VBlankAbsolute   VBlankType = 0x0
	VBlankRelative   VBlankType = 0x1
	VBlankNextOnMiss VBlankType = 0x10000000
	VBlankSecondary  VBlankType = 0x20000000
)

type (
	// union drm_wait_vblank: the request's signal field shares the
	// storage of the reply's tval_sec.
	sysWaitVBlank struct {
		typ      uint32
		sequence uint32
		sec      int64
		usec     int64
	}

	VBlank struct {
		Type     VBlankType
		Sequence uint32
		Signal   uint64
	}

	VBlankReply struct {
		Type     VBlankType
		Sequence uint32
		Sec      int64
		Usec     int64
	}
)

// WaitVBlank blocks until the vblank described by req and returns the
// sequence the kernel woke up on. A relative request with sequence 0
// returns immediately with the current count.
func WaitVBlank(file *os.File, req VBlank) (VBlankReply, error) {
	vbl := &sysWaitVBlank{
		typ:      uint32(req.Type),
		sequence: req.Sequence,
		sec:      int64(req.Signal),
	}
	err := ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLWaitVBlank),
		uintptr(unsafe.Pointer(vbl)))
	if err != nil {
		return VBlankReply{}, err
	}
	return VBlankReply{
		Type:     VBlankType(vbl.typ),
		Sequence: vbl.sequence,
		Sec:      vbl.sec,
		Usec:     vbl.usec,
	}, nil
}

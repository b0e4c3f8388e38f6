package drm

import (
	"os"
	"unsafe"

	"github.com/NeowayLabs/kmspost/ioctl"
)

type (
	sysGemClose struct {
		handle uint32
		pad    uint32
	}

	sysGemFlink struct {
		handle uint32
		name   uint32
	}

	sysGemOpen struct {
		name   uint32
		handle uint32
		size   uint64
	}
)

// GemFlink publishes a GEM handle under a global name so that other
// processes can import the same buffer.
func GemFlink(file *os.File, handle uint32) (uint32, error) {
	req := &sysGemFlink{handle: handle}
	err := ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLGemFlink),
		uintptr(unsafe.Pointer(req)))
	if err != nil {
		return 0, err
	}
	return req.name, nil
}

// GemOpen imports a buffer by global name, returning its local handle
// and size.
func GemOpen(file *os.File, name uint32) (handle uint32, size uint64, err error) {
	req := &sysGemOpen{name: name}
	err = ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLGemOpen),
		uintptr(unsafe.Pointer(req)))
	if err != nil {
		return 0, 0, err
	}
	return req.handle, req.size, nil
}

func GemClose(file *os.File, handle uint32) error {
	return ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLGemClose),
		uintptr(unsafe.Pointer(&sysGemClose{handle: handle})))
}

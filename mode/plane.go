package mode

import (
	"os"
	"runtime"
	"unsafe"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/ioctl"
)

// PageFlipEvent asks for a flip-complete event on the card descriptor.
const PageFlipEvent = 0x01

type (
	sysPlaneRes struct {
		planeIDPtr  uintptr
		countPlanes uint32
	}

	sysGetPlane struct {
		planeID          uint32
		crtcID           uint32
		fbID             uint32
		possibleCrtcs    uint32
		gammaSize        uint32
		countFormatTypes uint32
		formatTypePtr    uintptr
	}

	sysPageFlip struct {
		crtcID   uint32
		fbID     uint32
		flags    uint32
		reserved uint32
		userData uint64
	}

	// Plane is an overlay (or, with universal planes, any) hardware
	// plane and the fourcc formats it can scan out.
	Plane struct {
		ID            uint32
		CrtcID        uint32
		FBID          uint32
		PossibleCrtcs uint32
		GammaSize     uint32
		Formats       []uint32
	}
)

var (
	// DRM_IOWR(0xB0, struct drm_mode_crtc_page_flip)
	IOCTLModePageFlip = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysPageFlip{})), drm.IOCTLBase, 0xB0)

	// DRM_IOWR(0xB5, struct drm_mode_get_plane_res)
	IOCTLModeGetPlaneResources = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysPlaneRes{})), drm.IOCTLBase, 0xB5)

	// DRM_IOWR(0xB6, struct drm_mode_get_plane)
	IOCTLModeGetPlane = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetPlane{})), drm.IOCTLBase, 0xB6)
)

// GetPlaneResources returns the ids of the planes of the card.
func GetPlaneResources(file *os.File) ([]uint32, error) {
	res := &sysPlaneRes{}
	err := ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLModeGetPlaneResources),
		uintptr(unsafe.Pointer(res)))
	if err != nil {
		return nil, err
	}
	if res.countPlanes == 0 {
		return nil, nil
	}

	ids := make([]uint32, res.countPlanes)
	res.planeIDPtr = uintptr(unsafe.Pointer(&ids[0]))
	err = ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLModeGetPlaneResources),
		uintptr(unsafe.Pointer(res)))
	runtime.KeepAlive(ids)
	if err != nil {
		return nil, err
	}
	return ids[:min(len(ids), int(res.countPlanes))], nil
}

func GetPlane(file *os.File, id uint32) (*Plane, error) {
	p := &sysGetPlane{planeID: id}
	err := ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLModeGetPlane),
		uintptr(unsafe.Pointer(p)))
	if err != nil {
		return nil, err
	}

	var formats []uint32
	if p.countFormatTypes > 0 {
		formats = make([]uint32, p.countFormatTypes)
		p.formatTypePtr = uintptr(unsafe.Pointer(&formats[0]))
		err = ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLModeGetPlane),
			uintptr(unsafe.Pointer(p)))
		runtime.KeepAlive(formats)
		if err != nil {
			return nil, err
		}
		formats = formats[:min(len(formats), int(p.countFormatTypes))]
	}

	return &Plane{
		ID:            p.planeID,
		CrtcID:        p.crtcID,
		FBID:          p.fbID,
		PossibleCrtcs: p.possibleCrtcs,
		GammaSize:     p.gammaSize,
		Formats:       formats,
	}, nil
}

// PageFlip schedules bufferid to be scanned out on crtcid at the next
// vblank. With PageFlipEvent set, completion is reported on the card
// descriptor carrying userData, see drm.HandleEvent.
func PageFlip(file *os.File, crtcid, bufferid, flags uint32, userData uint64) error {
	req := &sysPageFlip{
		crtcID:   crtcid,
		fbID:     bufferid,
		flags:    flags,
		userData: userData,
	}
	return ioctl.Do(uintptr(file.Fd()), uintptr(IOCTLModePageFlip),
		uintptr(unsafe.Pointer(req)))
}

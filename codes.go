package drm

import (
	"unsafe"

	"github.com/NeowayLabs/kmspost/ioctl"
)

const IOCTLBase = 'd'

var (
	// DRM_IOWR(0x00, struct drm_version)
	IOCTLVersion = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(version{})), IOCTLBase, 0)

	// DRM_IOW(0x09, struct drm_gem_close)
	IOCTLGemClose = ioctl.NewCode(ioctl.Write,
		uint16(unsafe.Sizeof(sysGemClose{})), IOCTLBase, 0x09)

	// DRM_IOWR(0x0a, struct drm_gem_flink)
	IOCTLGemFlink = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGemFlink{})), IOCTLBase, 0x0a)

	// DRM_IOWR(0x0b, struct drm_gem_open)
	IOCTLGemOpen = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGemOpen{})), IOCTLBase, 0x0b)

	// DRM_IOWR(0x0c, struct drm_get_cap)
	IOCTLGetCap = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(capability{})), IOCTLBase, 0x0c)

	// DRM_IOWR(0x3a, union drm_wait_vblank)
	IOCTLWaitVBlank = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysWaitVBlank{})), IOCTLBase, 0x3a)
)

// Package drm provides a library to interact with DRM
// (Direct Rendering Manager) and KMS (Kernel Mode Setting) interfaces.
// DRM is a low level interface for the graphics card (gpu) and this package
// enables the creation of graphics library on top of the kernel drm/kms
// subsystem.
//
// Besides card discovery and capability queries, the package exposes the
// vblank wait ioctl and the event reader used to receive page flip
// completions. The display posting layer built on top of it lives in the
// kms package.
package drm

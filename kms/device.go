package kms

import (
	"os"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/mode"
)

// Device is the kernel mode-setting interface the display needs. Card
// implements it on top of a DRM card; tests provide fakes.
type Device interface {
	Resources() (*mode.Resources, error)
	Connector(id uint32) (*mode.Connector, error)
	Encoder(id uint32) (*mode.Encoder, error)
	PlaneResources() ([]uint32, error)
	Plane(id uint32) (*mode.Plane, error)

	AddFB(width, height uint16, depth, bpp uint8, pitch, handle uint32) (uint32, error)
	RmFB(fbID uint32) error
	DirtyFB(fbID uint32, clips []mode.ClipRect) error

	SetCrtc(crtcID, fbID uint32, connectors []uint32, m *mode.Info) error
	PageFlip(crtcID, fbID, flags uint32, userData uint64) error

	WaitVBlank(req drm.VBlank) (drm.VBlankReply, error)

	// HandleEvent blocks until the card reports at least one event and
	// runs the matching handler of ctx before returning.
	HandleEvent(ctx *drm.EventContext) error
}

// Card is a Device backed by an open DRM card node.
type Card struct {
	file *os.File
}

func NewCard(file *os.File) *Card {
	return &Card{file: file}
}

// OpenCard opens /dev/dri/card<n>.
func OpenCard(n int) (*Card, error) {
	file, err := drm.OpenCard(n)
	if err != nil {
		return nil, err
	}
	return NewCard(file), nil
}

// File returns the card node. The allocator backends share it.
func (c *Card) File() *os.File {
	return c.file
}

func (c *Card) Close() error {
	return c.file.Close()
}

func (c *Card) Resources() (*mode.Resources, error) {
	return mode.GetResources(c.file)
}

func (c *Card) Connector(id uint32) (*mode.Connector, error) {
	return mode.GetConnector(c.file, id)
}

func (c *Card) Encoder(id uint32) (*mode.Encoder, error) {
	return mode.GetEncoder(c.file, id)
}

func (c *Card) PlaneResources() ([]uint32, error) {
	return mode.GetPlaneResources(c.file)
}

func (c *Card) Plane(id uint32) (*mode.Plane, error) {
	return mode.GetPlane(c.file, id)
}

func (c *Card) AddFB(width, height uint16, depth, bpp uint8, pitch, handle uint32) (uint32, error) {
	return mode.AddFB(c.file, width, height, depth, bpp, pitch, handle)
}

func (c *Card) RmFB(fbID uint32) error {
	return mode.RmFB(c.file, fbID)
}

func (c *Card) DirtyFB(fbID uint32, clips []mode.ClipRect) error {
	return mode.DirtyFB(c.file, fbID, clips)
}

func (c *Card) SetCrtc(crtcID, fbID uint32, connectors []uint32, m *mode.Info) error {
	return mode.SetCrtc(c.file, crtcID, fbID, 0, 0, connectors, m)
}

func (c *Card) PageFlip(crtcID, fbID, flags uint32, userData uint64) error {
	return mode.PageFlip(c.file, crtcID, fbID, flags, userData)
}

func (c *Card) WaitVBlank(req drm.VBlank) (drm.VBlankReply, error) {
	return drm.WaitVBlank(c.file, req)
}

func (c *Card) HandleEvent(ctx *drm.EventContext) error {
	return drm.HandleEvent(c.file, ctx)
}

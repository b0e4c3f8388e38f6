// Package hwc is a minimal hardware composer: it never composes
// anything itself. Every layer is left to the windowing system, which
// renders into the framebuffer, and Set just swaps.
package hwc

import (
	"errors"
	"fmt"
	"log/slog"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/gralloc"
	"github.com/NeowayLabs/kmspost/logging"
	"github.com/NeowayLabs/kmspost/mode"
)

// DeviceName is the only device Open knows how to open.
const DeviceName = "composer"

var (
	ErrInvalidName   = errors.New("hwc: unknown device name")
	ErrWrongModule   = errors.New("hwc: wrong allocator module")
	ErrEGL           = errors.New("hwc: swap buffers failed")
	ErrDriverVersion = errors.New("hwc: failed to get DRM version")
)

type (
	// Module is the allocator module the composer shares the card
	// with.
	Module interface {
		Name() string
		Version() (major, minor int)
		FD() uintptr
	}

	// Swapper is the windowing system's buffer swap, eg.:
	// eglSwapBuffers.
	Swapper interface {
		SwapBuffers(display, surface uintptr) bool
	}

	// Lister is the part of the card used to log its KMS inventory.
	Lister interface {
		Resources() (*mode.Resources, error)
		PlaneResources() ([]uint32, error)
		Plane(id uint32) (*mode.Plane, error)
	}

	Composition int

	Rect struct {
		Left, Top, Right, Bottom int
	}

	Layer struct {
		Composition  Composition
		Flags        uint32
		Buffer       *gralloc.Buffer
		Transform    uint32
		Blending     uint32
		SourceCrop   Rect
		DisplayFrame Rect
	}

	ListFlags uint32

	LayerList struct {
		Flags  ListFlags
		Layers []Layer
	}

	Composer struct {
		module  Module
		swapper Swapper
		fd      uintptr
		log     *slog.Logger
	}
)

const (
	CompositionFramebuffer Composition = iota
	CompositionOverlay
)

// GeometryChanged is set on a list whose layers changed since the last
// Prepare.
const GeometryChanged ListFlags = 1 << 0

var getVersion = drm.GetVersionFd

func (c Composition) String() string {
	switch c {
	case CompositionFramebuffer:
		return "framebuffer"
	case CompositionOverlay:
		return "overlay"
	}
	return fmt.Sprintf("composition(%d)", int(c))
}

func (r Rect) String() string {
	return fmt.Sprintf("{%d,%d,%d,%d}", r.Left, r.Top, r.Right, r.Bottom)
}

// Open opens the composer device called name on the card of module.
// The card inventory is logged from kms; failing to list it is not
// an error.
func Open(name string, module Module, kms Lister, swapper Swapper) (*Composer, error) {
	if name != DeviceName {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	c := &Composer{
		module:  module,
		swapper: swapper,
		log:     logging.Logger(logging.ComponentHWC),
	}
	if err := c.open(); err != nil {
		return nil, err
	}

	if err := c.listKMS(kms); err != nil {
		c.log.Error("failed to list KMS resources", "err", err)
	}
	return c, nil
}

func (c *Composer) open() error {
	if name := c.module.Name(); name != gralloc.ModuleName {
		c.log.Error("wrong gralloc module", "name", name)
		return fmt.Errorf("%w: %q", ErrWrongModule, name)
	}

	major, minor := c.module.Version()
	c.log.Info("using gralloc module", "name", c.module.Name(), "version", fmt.Sprintf("%d.%d", major, minor))

	c.fd = c.module.FD()

	version, err := getVersion(c.fd)
	if err != nil {
		c.log.Error("failed to get DRM version", "err", err)
		return fmt.Errorf("%w: %w", ErrDriverVersion, err)
	}
	c.log.Info("using DRM", "name", version.Name, "date", version.Date, "desc", version.Desc)
	return nil
}

func (c *Composer) listKMS(kms Lister) error {
	res, err := kms.Resources()
	if err != nil {
		return fmt.Errorf("get resources: %w", err)
	}
	planes, err := kms.PlaneResources()
	if err != nil {
		return fmt.Errorf("get plane resources: %w", err)
	}

	c.log.Info("KMS resources",
		"dimensions", fmt.Sprintf("(%d, %d) -> (%d, %d)", res.MinWidth, res.MinHeight, res.MaxWidth, res.MaxHeight),
		"fbs", res.Fbs,
		"crtcs", res.Crtcs,
		"encoders", res.Encoders,
		"connectors", res.Connectors)

	for _, id := range planes {
		p, err := kms.Plane(id)
		if err != nil {
			c.log.Warn("failed to get plane", "plane", id, "err", err)
			continue
		}
		formats := make([]string, len(p.Formats))
		for i, f := range p.Formats {
			formats[i] = format.Fourcc(f).String()
		}
		c.log.Info("plane", "id", p.ID, "possible_crtcs", fmt.Sprintf("%#x", p.PossibleCrtcs), "formats", formats)
	}
	return nil
}

func (c *Composer) dumpLayer(l *Layer) {
	buf := "nil"
	if l.Buffer != nil {
		buf = l.Buffer.String()
	}
	c.log.Info("layer",
		"type", l.Composition.String(),
		"flags", fmt.Sprintf("%08x", l.Flags),
		"buffer", buf,
		"tr", fmt.Sprintf("%02x", l.Transform),
		"blend", fmt.Sprintf("%04x", l.Blending),
		"crop", l.SourceCrop.String(),
		"frame", l.DisplayFrame.String())
}

// Prepare hands every layer of a changed list to the framebuffer.
func (c *Composer) Prepare(list *LayerList) error {
	if list == nil || list.Flags&GeometryChanged == 0 {
		return nil
	}

	c.log.Info("prepare", "layers", len(list.Layers))
	for i := range list.Layers {
		c.dumpLayer(&list.Layers[i])
		list.Layers[i].Composition = CompositionFramebuffer
	}
	return nil
}

// Set swaps the surface of display. The layers were all rendered by
// the windowing system already.
func (c *Composer) Set(display, surface uintptr, list *LayerList) error {
	if list != nil {
		c.log.Info("set", "layers", len(list.Layers))
		for i := range list.Layers {
			c.dumpLayer(&list.Layers[i])
		}
	}

	if !c.swapper.SwapBuffers(display, surface) {
		return ErrEGL
	}
	return nil
}

func (c *Composer) Close() error {
	c.log.Debug("closing composer")
	c.module = nil
	c.swapper = nil
	return nil
}

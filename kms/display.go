// Package kms drives a single display through kernel mode setting. It
// selects the connector, CRTC and mode, binds allocator buffers to
// framebuffers and posts them with page flips, copies into a front
// buffer or plain CRTC reprogramming.
//
// A Display is not safe for concurrent use: callers post from a single
// goroutine. The only exception is the signal hook installed by
// HandleSignals.
package kms

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/gralloc"
	"github.com/NeowayLabs/kmspost/logging"
	"github.com/NeowayLabs/kmspost/mode"
)

type (
	// Display is the display engine handle: the chosen output and the
	// posting state.
	Display struct {
		dev      Device
		backend  gralloc.Backend
		log      *slog.Logger
		plog     *slog.Logger
		hint     mode.Hint
		override func(*gralloc.Features)

		resources   *mode.Resources
		mode        mode.Info
		connectorID uint32
		crtcID      uint32
		xdpi, ydpi  float32
		features    gralloc.Features
		clip        mode.ClipRect
		planes      []Plane

		firstPost    bool
		paced        bool
		lastSwap     uint32
		currentFront *gralloc.Buffer
		nextFront    *gralloc.Buffer
		evctx        drm.EventContext

		// read by the signal hook
		flipPending atomic.Bool
		waitingFlip atomic.Bool

		stopSignals func()
		exit        func(code int)
		sleep       func(d time.Duration)
	}

	Option func(*Display)

	// FBInfo describes the display for framebuffer device clients.
	FBInfo struct {
		Width, Height int
		Stride        int // pixels
		FPS           float32
		Format        format.Format
		XDPI, YDPI    float32

		MinSwapInterval, MaxSwapInterval int
	}
)

// WithModeHint sets the preferred "<w>x<h>[@<bpp>]" resolution.
func WithModeHint(hint string) Option {
	return func(d *Display) {
		d.hint = mode.ParseHint(hint)
	}
}

// WithLogger sends the display and plane inventory logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(d *Display) {
		d.log = l
		d.plog = l
	}
}

// WithFeatureOverride runs fn on the backend's feature choice before
// it takes effect.
func WithFeatureOverride(fn func(*gralloc.Features)) Option {
	return func(d *Display) {
		d.override = fn
	}
}

// NewDisplay returns an uninitialized display, see Init.
func NewDisplay(dev Device, backend gralloc.Backend, opts ...Option) *Display {
	d := &Display{
		dev:     dev,
		backend: backend,
		log:     logging.Logger(logging.ComponentKMS),
		plog:    logging.Logger(logging.ComponentPlanes),
		exit:    os.Exit,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init picks the connector, CRTC and mode, then lets the backend choose
// how frames are posted. It is a no-op on an initialized display.
func (d *Display) Init() error {
	if d.resources != nil {
		return nil
	}

	res, err := d.dev.Resources()
	if err != nil {
		d.log.Error("failed to get modeset resources", "err", err)
		return fmt.Errorf("%w: get resources: %w", ErrDriverCall, err)
	}
	d.resources = res

	found := false
	for _, id := range res.Connectors {
		conn, err := d.dev.Connector(id)
		if err != nil {
			d.log.Warn("failed to get connector", "connector", id, "err", err)
			continue
		}
		if conn.Connection != mode.Connected {
			continue
		}
		if err := d.initWithConnector(conn); err != nil {
			d.log.Debug("skipping connector", "connector", id, "err", err)
			continue
		}
		found = true
		break
	}
	if !found {
		d.log.Error("failed to find a valid crtc/connector/mode combination")
		d.resources = nil
		return ErrNoValidDisplay
	}

	d.initFeatures()
	d.firstPost = true
	return nil
}

func (d *Display) initWithConnector(conn *mode.Connector) error {
	if len(conn.Modes) == 0 {
		return fmt.Errorf("connector %d has no modes", conn.ID)
	}
	if len(conn.Encoders) == 0 {
		return fmt.Errorf("connector %d has no encoders", conn.ID)
	}

	encoder, err := d.dev.Encoder(conn.Encoders[0])
	if err != nil {
		return fmt.Errorf("get encoder %d: %w", conn.Encoders[0], err)
	}
	crtc, ok := mode.FirstPossibleCrtc(d.resources, encoder.PossibleCrtcs)
	if !ok {
		return fmt.Errorf("no crtc for encoder %d", encoder.ID)
	}

	d.crtcID = crtc
	d.connectorID = conn.ID

	d.log.Info("connector modes", "connector", conn.ID, "count", len(conn.Modes))
	for i := range conn.Modes {
		d.log.Info("  mode", "name", conn.Modes[i].String(), "refresh", conn.Modes[i].Vrefresh)
	}

	if d.hint.HasResolution() || d.hint.BPP != 0 {
		d.log.Info("will find the closest match", "hint", d.hint.String())
	}
	best := mode.Pick(conn.Modes, d.hint)
	d.mode = conn.Modes[best]
	d.log.Info("the best mode is", "mode", d.mode.String())

	if d.hint.BPP == 16 {
		d.features.FBFormat = format.RGB565
	} else {
		d.features.FBFormat = format.BGRA8888
	}

	d.xdpi, d.ydpi = mode.DPI(&d.mode, conn.Width, conn.Height)
	d.clip = mode.ClipRect{X2: d.mode.Hdisplay, Y2: d.mode.Vdisplay}
	return nil
}

func (d *Display) initFeatures() {
	d.backend.InitKMSFeatures(&d.features)
	if d.override != nil {
		d.override(&d.features)
	}

	switch d.features.SwapMode {
	case gralloc.SwapFlip:
		d.evctx = drm.EventContext{PageFlipHandler: d.onPageFlip}
	case gralloc.SwapCopy:
		front, err := d.createFront()
		if err != nil {
			d.log.Warn("failed to create the front buffer", "err", err)
			d.features.SwapMode = gralloc.SwapSetCrtc
			break
		}
		// the first post copies into it and promotes it
		d.nextFront = front
	}

	d.log.Info("will use "+d.features.SwapMode.String()+" for fb posting",
		"interval", d.features.SwapInterval, "format", d.features.FBFormat)
}

// createFront allocates the buffer the copy mode scans out from.
func (d *Display) createFront() (*gralloc.Buffer, error) {
	front, err := d.backend.Allocate(&gralloc.Handle{
		Width:  int(d.mode.Hdisplay),
		Height: int(d.mode.Vdisplay),
		Format: d.features.FBFormat,
		Usage:  gralloc.UsageHWFB,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if err := d.AddFB(front); err != nil {
		d.backend.Destroy(front)
		return nil, err
	}
	return front, nil
}

// Close drains or frees the posting state and forgets the resources.
// The CRTC keeps scanning out whatever was last posted.
func (d *Display) Close() error {
	if d.resources == nil {
		return nil
	}

	switch d.features.SwapMode {
	case gralloc.SwapFlip:
		d.pageFlip(nil)
	case gralloc.SwapCopy:
		bo := &d.currentFront
		if *bo == nil {
			bo = &d.nextFront
		}
		if *bo != nil {
			d.RmFB(*bo)
			d.backend.Destroy(*bo)
		}
		*bo = nil
	}

	d.resources = nil
	d.planes = nil
	if d.stopSignals != nil {
		d.stopSignals()
		d.stopSignals = nil
	}
	return nil
}

// Initialized reports whether Init succeeded and Close was not called.
func (d *Display) Initialized() bool {
	return d.resources != nil
}

// Pipelined reports whether posting returns before the frame is on
// screen.
func (d *Display) Pipelined() bool {
	return d.features.SwapMode != gralloc.SwapSetCrtc
}

// Info describes the chosen mode.
func (d *Display) Info() FBInfo {
	return FBInfo{
		Width:           int(d.mode.Hdisplay),
		Height:          int(d.mode.Vdisplay),
		Stride:          int(d.mode.Hdisplay),
		FPS:             float32(d.mode.Vrefresh),
		Format:          d.features.FBFormat,
		XDPI:            d.xdpi,
		YDPI:            d.ydpi,
		MinSwapInterval: d.features.SwapInterval,
		MaxSwapInterval: d.features.SwapInterval,
	}
}

func (d *Display) Mode() mode.Info {
	return d.mode
}

func (d *Display) CrtcID() uint32 {
	return d.crtcID
}

func (d *Display) ConnectorID() uint32 {
	return d.connectorID
}

func (d *Display) Features() gralloc.Features {
	return d.features
}

func (d *Display) SwapMode() gralloc.SwapMode {
	return d.features.SwapMode
}

func (d *Display) CurrentFront() *gralloc.Buffer {
	return d.currentFront
}

func (d *Display) NextFront() *gralloc.Buffer {
	return d.nextFront
}

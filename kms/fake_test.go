package kms

import (
	"errors"
	"fmt"
	"os"
	"time"

	drm "github.com/NeowayLabs/kmspost"
	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/gralloc"
	"github.com/NeowayLabs/kmspost/mode"
)

var errFake = errors.New("fake failure")

// fakeDevice is an in-memory card. Every driver call is recorded in
// calls as a short string.
type fakeDevice struct {
	res        *mode.Resources
	connectors map[uint32]*mode.Connector
	encoders   map[uint32]*mode.Encoder
	planes     map[uint32]*mode.Plane
	planeIDs   []uint32

	resErr      error
	planeResErr error
	addFBErr    error
	setCrtcErr  error
	flipErr     error
	vblankErr   error

	// lostFlips makes HandleEvent return without running the flip
	// handler.
	lostFlips bool

	vblank      uint32
	nextFB      uint32
	flipPending bool

	calls []string
}

func mkMode(w, h uint16, refresh uint32, preferred bool) mode.Info {
	m := mode.Info{Hdisplay: w, Vdisplay: h, Vrefresh: refresh}
	copy(m.Name[:], fmt.Sprintf("%dx%d", w, h))
	if preferred {
		m.Type |= mode.TypePreferred
	}
	return m
}

// newFakeDevice has a disconnected connector 20 and a connected one, 21,
// whose only encoder can drive the second CRTC, 11.
func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		res: &mode.Resources{
			Crtcs:      []uint32{10, 11},
			Connectors: []uint32{20, 21},
			Encoders:   []uint32{30},
		},
		connectors: map[uint32]*mode.Connector{
			20: {
				ID:         20,
				Connection: mode.Disconnected,
			},
			21: {
				ID:         21,
				Connection: mode.Connected,
				Width:      508,
				Height:     286,
				Encoders:   []uint32{30},
				Modes: []mode.Info{
					mkMode(1024, 768, 60, false),
					mkMode(1920, 1080, 60, true),
					mkMode(1280, 720, 50, false),
				},
			},
		},
		encoders: map[uint32]*mode.Encoder{
			30: {ID: 30, PossibleCrtcs: 0x2},
		},
		planes: map[uint32]*mode.Plane{
			40: {ID: 40, PossibleCrtcs: 0x1, Formats: []uint32{uint32(format.FourccXRGB8888)}},
			41: {ID: 41, PossibleCrtcs: 0x3, Formats: []uint32{uint32(format.FourccXRGB8888), uint32(format.FourccRGB565)}},
			42: {ID: 42, PossibleCrtcs: 0x2},
		},
		planeIDs: []uint32{40, 41, 42},
		vblank:   100,
		nextFB:   100,
	}
}

func (f *fakeDevice) record(msg string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(msg, args...))
}

func (f *fakeDevice) reset() {
	f.calls = nil
}

func (f *fakeDevice) Resources() (*mode.Resources, error) {
	if f.resErr != nil {
		return nil, f.resErr
	}
	return f.res, nil
}

func (f *fakeDevice) Connector(id uint32) (*mode.Connector, error) {
	c, ok := f.connectors[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return c, nil
}

func (f *fakeDevice) Encoder(id uint32) (*mode.Encoder, error) {
	e, ok := f.encoders[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return e, nil
}

func (f *fakeDevice) PlaneResources() ([]uint32, error) {
	if f.planeResErr != nil {
		return nil, f.planeResErr
	}
	return f.planeIDs, nil
}

func (f *fakeDevice) Plane(id uint32) (*mode.Plane, error) {
	p, ok := f.planes[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return p, nil
}

func (f *fakeDevice) AddFB(width, height uint16, depth, bpp uint8, pitch, handle uint32) (uint32, error) {
	if f.addFBErr != nil {
		return 0, f.addFBErr
	}
	f.nextFB++
	f.record("AddFB %dx%d bpp=%d pitch=%d handle=%d -> %d", width, height, bpp, pitch, handle, f.nextFB)
	return f.nextFB, nil
}

func (f *fakeDevice) RmFB(fbID uint32) error {
	f.record("RmFB %d", fbID)
	return nil
}

func (f *fakeDevice) DirtyFB(fbID uint32, clips []mode.ClipRect) error {
	f.record("DirtyFB %d %v", fbID, clips)
	return nil
}

func (f *fakeDevice) SetCrtc(crtcID, fbID uint32, connectors []uint32, m *mode.Info) error {
	f.record("SetCrtc crtc=%d fb=%d conn=%v mode=%s", crtcID, fbID, connectors, m.String())
	return f.setCrtcErr
}

func (f *fakeDevice) PageFlip(crtcID, fbID, flags uint32, userData uint64) error {
	f.record("PageFlip crtc=%d fb=%d flags=%d", crtcID, fbID, flags)
	if f.flipErr != nil {
		return f.flipErr
	}
	f.flipPending = true
	return nil
}

// WaitVBlank answers relative requests from the counter and moves the
// counter forward to absolute targets.
func (f *fakeDevice) WaitVBlank(req drm.VBlank) (drm.VBlankReply, error) {
	f.record("WaitVBlank type=%#x seq=%d", uint32(req.Type), req.Sequence)
	if f.vblankErr != nil {
		return drm.VBlankReply{}, f.vblankErr
	}

	if req.Type&drm.VBlankRelative != 0 {
		f.vblank += req.Sequence
	} else if req.Sequence > f.vblank {
		f.vblank = req.Sequence
	}
	return drm.VBlankReply{Type: req.Type, Sequence: f.vblank}, nil
}

func (f *fakeDevice) HandleEvent(ctx *drm.EventContext) error {
	f.record("HandleEvent")
	if f.lostFlips || !f.flipPending {
		return nil
	}
	f.flipPending = false
	f.vblank++
	if ctx.PageFlipHandler != nil {
		ctx.PageFlipHandler(f.vblank, 0, 0, 0)
	}
	return nil
}

// fakeBackend allocates plain byte slices.
type fakeBackend struct {
	features func(*gralloc.Features)

	allocErr error
	handle   uint32

	allocated []*gralloc.Buffer
	imported  []uint32
	destroyed []*gralloc.Buffer
	copies    []string
}

func (b *fakeBackend) Name() string {
	return "fake"
}

func (b *fakeBackend) Allocate(h *gralloc.Handle) (*gralloc.Buffer, error) {
	if b.allocErr != nil {
		return nil, b.allocErr
	}
	cpp := format.BytesPerPixel(h.Format)
	if cpp == 0 {
		cpp = 1
	}
	h.Stride = h.Width * cpp

	// a shared buffer keeps its name as the local handle
	handle := h.Name
	if handle != 0 {
		b.imported = append(b.imported, h.Name)
	} else {
		b.handle++
		handle = b.handle
	}
	bo := &gralloc.Buffer{
		Handle: h,
		Native: make([]byte, h.Stride*h.Height),
	}
	if h.Usage&gralloc.UsageHWFB != 0 {
		bo.FBHandle = handle
	}
	b.allocated = append(b.allocated, bo)
	return bo, nil
}

func (b *fakeBackend) Destroy(bo *gralloc.Buffer) {
	b.destroyed = append(b.destroyed, bo)
}

func (b *fakeBackend) Map(bo *gralloc.Buffer, x, y, w, h int, write bool) ([]byte, error) {
	return bo.Native.([]byte), nil
}

func (b *fakeBackend) Unmap(bo *gralloc.Buffer) {}

func (b *fakeBackend) Copy(dst, src *gralloc.Buffer, x1, y1, x2, y2 int) {
	b.copies = append(b.copies, fmt.Sprintf("%d<-%d %d,%d-%d,%d", dst.FBID, src.FBID, x1, y1, x2, y2))
	copy(dst.Native.([]byte), src.Native.([]byte))
}

func (b *fakeBackend) InitKMSFeatures(f *gralloc.Features) {
	f.SwapMode = gralloc.SwapFlip
	f.SwapInterval = 1
	if b.features != nil {
		b.features(f)
	}
}

// newTestDisplay returns an initialized display posting with swap.
func newTestDisplay(swap gralloc.SwapMode, interval int) (*Display, *fakeDevice, *fakeBackend) {
	dev := newFakeDevice()
	be := &fakeBackend{
		features: func(f *gralloc.Features) {
			f.SwapMode = swap
			f.SwapInterval = interval
		},
	}
	d := NewDisplay(dev, be)
	d.exit = func(int) {}
	d.sleep = func(time.Duration) {}
	if err := d.Init(); err != nil {
		panic(err)
	}
	dev.reset()
	return d, dev, be
}

// scanout allocates a bound framebuffer target of the display size.
func scanout(d *Display, usage gralloc.Usage) *gralloc.Buffer {
	bo, err := d.CreateBuffer(int(d.mode.Hdisplay), int(d.mode.Vdisplay), format.BGRA8888, gralloc.UsageHWFB|usage)
	if err != nil {
		panic(err)
	}
	return bo
}

// Command kmspost puts frames on the first connected display through
// kernel mode setting, exercising the posting path end to end: mode
// selection, buffer allocation, the composer and the swap mode the
// driver supports.
package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/NeowayLabs/kmspost/config"
	"github.com/NeowayLabs/kmspost/gralloc"
	"github.com/NeowayLabs/kmspost/gralloc/dumb"
	"github.com/NeowayLabs/kmspost/hwc"
	"github.com/NeowayLabs/kmspost/kms"
	"github.com/NeowayLabs/kmspost/logging"
	"github.com/NeowayLabs/kmspost/mode"
)

// poster is the composer's swap call: surface n posts buffer n.
type poster struct {
	display *kms.Display
	buffers []*gralloc.Buffer
	log     *slog.Logger
}

func (p *poster) SwapBuffers(display, surface uintptr) bool {
	if surface >= uintptr(len(p.buffers)) {
		p.log.Error("unknown surface", "surface", surface)
		return false
	}
	if err := p.display.Post(p.buffers[surface]); err != nil {
		p.log.Error("failed to post", "surface", surface, "err", err)
		return false
	}
	return true
}

func setupLogging(cfg *config.Config) {
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	f := logging.FormatJSON
	switch cfg.LogFormat {
	case "text":
		f = logging.FormatText
	case "":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			f = logging.FormatText
		}
	}
	logging.SetFormat(os.Stderr, f)
}

func newBackend(cfg *config.Config, card *kms.Card) (gralloc.Backend, error) {
	switch cfg.Backend {
	case dumb.Name:
		return dumb.New(card.File())
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func run(cfg *config.Config) error {
	log := logging.Logger(logging.ComponentCmd)

	card, err := kms.OpenCard(cfg.Card)
	if err != nil {
		return err
	}
	defer card.Close()

	backend, err := newBackend(cfg, card)
	if err != nil {
		return err
	}

	display := kms.NewDisplay(card, backend,
		kms.WithModeHint(cfg.ModeHint()),
		kms.WithFeatureOverride(cfg.FeatureOverride()))
	if err := display.Init(); err != nil {
		return err
	}
	if err := display.InitPlanes(); err != nil {
		log.Warn("no plane inventory", "err", err)
	}
	display.HandleSignals()

	// save the current CRTC to restore at exit
	saved, err := mode.GetCrtc(card.File(), display.CrtcID())
	if err != nil {
		log.Warn("cannot get crtc", "crtc", display.CrtcID(), "err", err)
	}

	info := display.Info()
	var buffers []*gralloc.Buffer
	defer func() {
		if saved != nil {
			err := mode.SetCrtc(card.File(), saved.ID, saved.BufferID, saved.X, saved.Y,
				[]uint32{display.ConnectorID()}, &saved.Mode)
			if err != nil {
				log.Warn("failed to restore crtc", "err", err)
			}
		}
		display.Close()
		for _, bo := range buffers {
			display.DestroyBuffer(bo)
		}
	}()

	for i := 0; i < 2; i++ {
		bo, err := display.CreateBuffer(info.Width, info.Height, info.Format,
			gralloc.UsageHWFB|gralloc.UsageSWWriteOften)
		if err != nil {
			return err
		}
		buffers = append(buffers, bo)
	}

	swapper := &poster{display: display, buffers: buffers, log: log}
	composer, err := hwc.Open(hwc.DeviceName, gralloc.NewModule(backend, card.File().Fd()), card, swapper)
	if err != nil {
		return err
	}
	defer composer.Close()

	var picture *image.RGBA
	if cfg.Image != "" {
		picture, err = loadPicture(cfg.Image, info.Width, info.Height)
		if err != nil {
			return err
		}
	}

	log.Info("posting", "frames", cfg.Frames, "mode", display.Mode().String(),
		"swap", display.SwapMode().String(), "pipelined", display.Pipelined())

	for i := 0; i < cfg.Frames; i++ {
		surface := i % len(buffers)
		bo := buffers[surface]

		at := gradient(info.Width, info.Height, i)
		if picture != nil {
			at = scroll(picture, i, 8)
		}

		pixels, err := backend.Map(bo, 0, 0, 0, 0, true)
		if err != nil {
			return err
		}
		if err := paint(pixels, bo.Handle.Stride, info.Width, info.Height, bo.Handle.Format, at); err != nil {
			return err
		}

		list := &hwc.LayerList{
			Layers: []hwc.Layer{{
				Buffer:       bo,
				SourceCrop:   hwc.Rect{Right: info.Width, Bottom: info.Height},
				DisplayFrame: hwc.Rect{Right: info.Width, Bottom: info.Height},
			}},
		}
		if i == 0 {
			list.Flags |= hwc.GeometryChanged
		}
		if err := composer.Prepare(list); err != nil {
			return err
		}
		if err := composer.Set(0, uintptr(surface), list); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		imagePath  = flag.String("image", "", "picture to show instead of the gradient")
		frames     = flag.Int("frames", -1, "frames to post, overrides the configuration")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			os.Exit(1)
		}
	}
	if *imagePath != "" {
		cfg.Image = *imagePath
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}

	setupLogging(cfg)

	if err := run(cfg); err != nil {
		logging.Error(logging.ComponentCmd, "kmspost failed", "err", err)
		os.Exit(1)
	}
}

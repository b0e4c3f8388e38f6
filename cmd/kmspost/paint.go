package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/NeowayLabs/kmspost/format"
)

// frameFunc gives the color of pixel (x, y) in a frame.
type frameFunc func(x, y int) color.RGBA

// loadPicture decodes the picture at path and scales it to w x h.
func loadPicture(path string, w, h int) (*image.RGBA, error) {
	reader, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	src, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// scroll shows the picture moving left by step pixels a frame.
func scroll(picture *image.RGBA, frame, step int) frameFunc {
	w := picture.Bounds().Dx()
	shift := (frame * step) % w
	return func(x, y int) color.RGBA {
		return picture.RGBAAt((x+shift)%w, y)
	}
}

// gradient is a diagonal color ramp whose hue moves with frame.
func gradient(w, h, frame int) frameFunc {
	return func(x, y int) color.RGBA {
		return color.RGBA{
			R: uint8(x * 255 / max(w-1, 1)),
			G: uint8(y * 255 / max(h-1, 1)),
			B: uint8(frame * 4),
			A: 0xff,
		}
	}
}

// paint renders a w x h frame into the mapped pixels of a buffer.
func paint(dst []byte, stride, w, h int, f format.Format, at frameFunc) error {
	cpp := format.BytesPerPixel(f)
	switch f {
	case format.BGRA8888, format.RGBA8888, format.RGBX8888, format.RGB565:
	default:
		return fmt.Errorf("cannot paint %s buffers", f)
	}

	for y := 0; y < h; y++ {
		row := y * stride
		if row+w*cpp > len(dst) {
			return fmt.Errorf("buffer too small for %dx%d at stride %d", w, h, stride)
		}
		for x := 0; x < w; x++ {
			putPixel(dst[row+x*cpp:], f, at(x, y))
		}
	}
	return nil
}

func putPixel(p []byte, f format.Format, c color.RGBA) {
	switch f {
	case format.BGRA8888:
		p[0], p[1], p[2], p[3] = c.B, c.G, c.R, c.A
	case format.RGBA8888:
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
	case format.RGBX8888:
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, 0xff
	case format.RGB565:
		v := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
		binary.LittleEndian.PutUint16(p, v)
	}
}

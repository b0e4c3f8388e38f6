// Package format maps the allocator's pixel formats to the fourcc
// codes and depths understood by the display engine.
package format

import "fmt"

// Format is an allocator (HAL) pixel format.
type Format int

// Fourcc is a DRM fourcc pixel format code.
type Fourcc uint32

const (
	RGBA8888 Format = 1
	RGBX8888 Format = 2
	RGB888   Format = 3
	RGB565   Format = 4
	BGRA8888 Format = 5
	RGBA5551 Format = 6
	RGBA4444 Format = 7

	// legacy YUV formats still requested by camera/video clients
	YCbCr422SP Format = 0x10
	YCrCb420SP Format = 0x11

	YV12 Format = 0x32315659
)

func fourcc(a, b, c, d byte) Fourcc {
	return Fourcc(a) | Fourcc(b)<<8 | Fourcc(c)<<16 | Fourcc(d)<<24
}

var (
	FourccABGR8888 = fourcc('A', 'B', '2', '4')
	FourccARGB8888 = fourcc('A', 'R', '2', '4')
	FourccXRGB8888 = fourcc('X', 'R', '2', '4')
	FourccRGBX8888 = fourcc('R', 'X', '2', '4')
	FourccRGB888   = fourcc('R', 'G', '2', '4')
	FourccRGB565   = fourcc('R', 'G', '1', '6')
	FourccRGBA5551 = fourcc('R', 'A', '1', '5')
	FourccRGBA4444 = fourcc('R', 'A', '1', '2')
	FourccYVU420   = fourcc('Y', 'V', '1', '2')
	FourccNV16     = fourcc('N', 'V', '1', '6')
	FourccNV21     = fourcc('N', 'V', '2', '1')
)

// Entry is one row of the mapping table. BPP is 0 for planar formats,
// which cannot back a single-plane framebuffer.
type Entry struct {
	Format Format
	Fourcc Fourcc
	BPP    int
}

var table = []Entry{
	{RGBA8888, FourccABGR8888, 32},
	{RGBX8888, FourccRGBX8888, 32},
	{RGB888, FourccRGB888, 24},
	{RGB565, FourccRGB565, 16},
	{BGRA8888, FourccARGB8888, 32},
	{RGBA5551, FourccRGBA5551, 16},
	{RGBA4444, FourccRGBA4444, 16},
	{YV12, FourccYVU420, 0},

	{YCbCr422SP, FourccNV16, 0},
	{YCrCb420SP, FourccNV21, 0},
}

// Table returns a copy of the mapping table.
func Table() []Entry {
	return append([]Entry(nil), table...)
}

// Lookup returns the table row of f.
func Lookup(f Format) (Entry, bool) {
	for _, e := range table {
		if e.Format == f {
			return e, true
		}
	}
	return Entry{}, false
}

// ToFourcc returns the fourcc of f, or 0 when f has no mapping.
func ToFourcc(f Format) Fourcc {
	e, _ := Lookup(f)
	return e.Fourcc
}

// FromFourcc is the reverse of ToFourcc.
func FromFourcc(c Fourcc) (Format, bool) {
	for _, e := range table {
		if e.Fourcc == c {
			return e.Format, true
		}
	}
	return 0, false
}

// BPP returns the bits per pixel of fourcc c, 0 when unknown.
func BPP(c Fourcc) int {
	for _, e := range table {
		if e.Fourcc == c {
			return e.BPP
		}
	}
	return 0
}

// FormatBPP returns the bits per pixel of f, 0 when unknown or planar.
func FormatBPP(f Format) int {
	e, _ := Lookup(f)
	return e.BPP
}

// BytesPerPixel is FormatBPP rounded up to whole bytes.
func BytesPerPixel(f Format) int {
	return (FormatBPP(f) + 7) / 8
}

func (c Fourcc) String() string {
	return string([]byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)})
}

func (f Format) String() string {
	switch f {
	case RGBA8888:
		return "RGBA_8888"
	case RGBX8888:
		return "RGBX_8888"
	case RGB888:
		return "RGB_888"
	case RGB565:
		return "RGB_565"
	case BGRA8888:
		return "BGRA_8888"
	case RGBA5551:
		return "RGBA_5551"
	case RGBA4444:
		return "RGBA_4444"
	case YV12:
		return "YV12"
	case YCbCr422SP:
		return "YCbCr_422_SP"
	case YCrCb420SP:
		return "YCrCb_420_SP"
	}
	return fmt.Sprintf("Format(%#x)", int(f))
}

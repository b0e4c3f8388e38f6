package mode

import (
	"fmt"
	"math"
)

// Hint is an operator supplied resolution and depth, "<w>x<h>[@<bpp>]".
// Zero fields are unset.
type Hint struct {
	Width, Height int
	BPP           int
}

// ParseHint parses "<w>x<h>@<bpp>" or "<w>x<h>". A string matching
// neither yields the empty hint; a depth alone is kept only when the
// full form parsed.
func ParseHint(s string) Hint {
	var h Hint
	if s == "" {
		return h
	}

	var rest string
	if n, _ := fmt.Sscanf(s, "%dx%d@%d%s", &h.Width, &h.Height, &h.BPP, &rest); n >= 3 {
		return h
	}

	h = Hint{}
	if n, _ := fmt.Sscanf(s, "%dx%d%s", &h.Width, &h.Height, &rest); n < 2 {
		return Hint{}
	}
	return h
}

// HasResolution reports whether both width and height were given.
func (h Hint) HasResolution() bool {
	return h.Width != 0 && h.Height != 0
}

func (h Hint) String() string {
	return fmt.Sprintf("%dx%d@%d", h.Width, h.Height, h.BPP)
}

// Pick chooses the display mode of a connector. With a resolution hint
// it returns the first mode with the smallest squared distance to it;
// otherwise the first preferred mode, falling back to the first mode.
// It returns -1 for an empty list.
func Pick(modes []Info, hint Hint) int {
	if len(modes) == 0 {
		return -1
	}

	best := -1
	dist := math.MaxInt
	for i := range modes {
		m := &modes[i]
		var d int
		if hint.HasResolution() {
			dx := int(m.Hdisplay) - hint.Width
			dy := int(m.Vdisplay) - hint.Height
			d = dx*dx + dy*dy
		} else if m.Preferred() {
			d = 0
		} else {
			d = dist
		}

		if d < dist {
			best = i
			dist = d
			if dist == 0 {
				break
			}
		}
	}

	if best < 0 {
		best = 0
	}
	return best
}

// DPI derives the dots per inch of a mode on a panel of the given
// physical size. Unknown sizes report 75x75.
func DPI(m *Info, mmWidth, mmHeight uint32) (xdpi, ydpi float32) {
	if mmWidth == 0 || mmHeight == 0 {
		return 75, 75
	}
	xdpi = float32(float64(m.Hdisplay) * 25.4 / float64(mmWidth))
	ydpi = float32(float64(m.Vdisplay) * 25.4 / float64(mmHeight))
	return xdpi, ydpi
}

// CrtcIndex returns the position of crtcid in the card's CRTC list,
// the bit it occupies in the possible_crtcs masks, or -1.
func CrtcIndex(res *Resources, crtcid uint32) int {
	for i, id := range res.Crtcs {
		if id == crtcid {
			return i
		}
	}
	return -1
}

// FirstPossibleCrtc returns the first CRTC whose bit is set in mask.
func FirstPossibleCrtc(res *Resources, mask uint32) (uint32, bool) {
	for i, id := range res.Crtcs {
		if i < 32 && mask&(1<<uint(i)) != 0 {
			return id, true
		}
	}
	return 0, false
}

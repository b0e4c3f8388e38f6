package mode

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newInfo(w, h uint16, preferred bool, name string) Info {
	m := Info{Hdisplay: w, Vdisplay: h}
	if preferred {
		m.Type |= TypePreferred
	}
	copy(m.Name[:], name)
	return m
}

func TestParseHint(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Hint
	}{
		{"", Hint{}},
		{"1024x768", Hint{Width: 1024, Height: 768}},
		{"1280x720@16", Hint{Width: 1280, Height: 720, BPP: 16}},
		{"1920x1080@32", Hint{Width: 1920, Height: 1080, BPP: 32}},
		{"800x600@", Hint{Width: 800, Height: 600}},
		{"1024x768@16junk", Hint{Width: 1024, Height: 768, BPP: 16}},
		{"1024x768junk", Hint{Width: 1024, Height: 768}},
		{"garbage", Hint{}},
		{"640", Hint{}},
	} {
		if diff := cmp.Diff(tc.want, ParseHint(tc.in)); diff != "" {
			t.Errorf("ParseHint(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestInfoValueMethods(t *testing.T) {
	modeOf := func() Info { return newInfo(640, 480, true, "640x480") }
	if got := modeOf().String(); got != "640x480" {
		t.Errorf("String() = %q, want 640x480", got)
	}
	if !modeOf().Preferred() {
		t.Error("preferred flag lost")
	}
}

func TestPickPreferred(t *testing.T) {
	modes := []Info{
		newInfo(1920, 1080, false, "1920x1080"),
		newInfo(1280, 720, true, "1280x720"),
	}
	i := Pick(modes, Hint{})
	if got := modes[i].String(); got != "1280x720" {
		t.Errorf("Pick without hint = %s, want 1280x720", got)
	}
}

func TestPickFirstWhenNonePreferred(t *testing.T) {
	modes := []Info{
		newInfo(1920, 1080, false, "1920x1080"),
		newInfo(1280, 720, false, "1280x720"),
	}
	if i := Pick(modes, Hint{}); i != 0 {
		t.Errorf("Pick = %d, want 0", i)
	}
}

func TestPickExactHint(t *testing.T) {
	modes := []Info{
		newInfo(1920, 1080, true, "1920x1080"),
		newInfo(1280, 720, false, "1280x720"),
		newInfo(1024, 768, false, "1024x768"),
	}
	i := Pick(modes, ParseHint("1024x768"))
	if got := modes[i].String(); got != "1024x768" {
		t.Errorf("Pick with hint = %s, want 1024x768", got)
	}
}

func TestPickTieFirstWins(t *testing.T) {
	modes := []Info{
		newInfo(1000, 700, false, "a"),
		newInfo(1000, 900, false, "b"),
	}
	if i := Pick(modes, Hint{Width: 1000, Height: 800}); i != 0 {
		t.Errorf("Pick = %d, want first of the tied modes", i)
	}
}

func TestPickEmpty(t *testing.T) {
	if i := Pick(nil, Hint{}); i != -1 {
		t.Errorf("Pick(nil) = %d", i)
	}
}

func TestPickMinimumDistance(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 500; iter++ {
		modes := make([]Info, 1+r.Intn(12))
		for i := range modes {
			modes[i] = newInfo(uint16(320+r.Intn(3500)), uint16(200+r.Intn(2000)), r.Intn(4) == 0, "")
		}
		hint := Hint{Width: 320 + r.Intn(3500), Height: 200 + r.Intn(2000)}

		got := Pick(modes, hint)
		dist := func(m Info) int {
			dx := int(m.Hdisplay) - hint.Width
			dy := int(m.Vdisplay) - hint.Height
			return dx*dx + dy*dy
		}
		for i, m := range modes {
			if dist(m) < dist(modes[got]) {
				t.Fatalf("iteration %d: mode %d is closer than picked mode %d", iter, i, got)
			}
			if i < got && dist(m) == dist(modes[got]) {
				t.Fatalf("iteration %d: tie not broken by order (%d before %d)", iter, i, got)
			}
		}

		got = Pick(modes, Hint{})
		want := 0
		for i, m := range modes {
			if m.Preferred() {
				want = i
				break
			}
		}
		if got != want {
			t.Fatalf("iteration %d: Pick without hint = %d, want %d", iter, got, want)
		}
	}
}

func TestDPI(t *testing.T) {
	m := newInfo(1920, 1080, false, "")
	x, y := DPI(&m, 0, 300)
	if x != 75 || y != 75 {
		t.Errorf("DPI with unknown size = %v,%v", x, y)
	}
	x, y = DPI(&m, 508, 254)
	if x < 95.9 || x > 96.1 || y < 107.9 || y > 108.1 {
		t.Errorf("DPI(508mm x 254mm) = %v,%v", x, y)
	}
}

func TestCrtcIndex(t *testing.T) {
	res := &Resources{Crtcs: []uint32{31, 42, 57}}
	if i := CrtcIndex(res, 57); i != 2 {
		t.Errorf("CrtcIndex(57) = %d", i)
	}
	if i := CrtcIndex(res, 99); i != -1 {
		t.Errorf("CrtcIndex(99) = %d", i)
	}
	if id, ok := FirstPossibleCrtc(res, 0x6); !ok || id != 42 {
		t.Errorf("FirstPossibleCrtc(0x6) = %d, %v", id, ok)
	}
	if _, ok := FirstPossibleCrtc(res, 0x8); ok {
		t.Error("FirstPossibleCrtc(0x8) should find nothing")
	}
}

func TestInfoString(t *testing.T) {
	m := newInfo(800, 600, true, "800x600")
	if m.String() != "800x600" || !m.Preferred() {
		t.Errorf("got %q preferred=%v", m.String(), m.Preferred())
	}
}

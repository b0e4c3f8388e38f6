package dumb

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/gralloc"
)

func TestRegion(t *testing.T) {
	h := &gralloc.Handle{Width: 4, Height: 3, Stride: 20, Format: format.BGRA8888}

	for _, tc := range []struct {
		name       string
		x, y, w, h int
		start, end int
	}{
		{"whole", 0, 0, 0, 0, 0, 60},
		{"first pixel", 0, 0, 1, 1, 0, 4},
		{"second row", 0, 1, 4, 1, 20, 36},
		{"inner", 1, 1, 2, 2, 24, 52},
	} {
		start, end := region(h, tc.x, tc.y, tc.w, tc.h)
		if start != tc.start || end != tc.end {
			t.Errorf("%s: region = [%d, %d), want [%d, %d)", tc.name, start, end, tc.start, tc.end)
		}
	}
}

func TestCopyRect(t *testing.T) {
	// 3x3 at 1 byte per pixel; src stride 3, dst stride 4
	src := []byte{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	dst := make([]byte, 12)

	copyRect(dst, 4, src, 3, 1, 1, 0, 3, 2)

	want := []byte{
		0, 2, 3, 0,
		0, 5, 6, 0,
		0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("copyRect mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyRectEmpty(t *testing.T) {
	dst := make([]byte, 4)
	copyRect(dst, 2, []byte{1, 2, 3, 4}, 2, 1, 1, 1, 1, 2)
	copyRect(dst, 2, []byte{1, 2, 3, 4}, 2, 1, 2, 0, 1, 2)
	if diff := cmp.Diff(make([]byte, 4), dst); diff != "" {
		t.Errorf("empty rects wrote pixels:\n%s", diff)
	}
}

func TestCopyRectShortBuffers(t *testing.T) {
	dst := make([]byte, 4)
	// second row does not fit in src, first one is still copied
	copyRect(dst, 2, []byte{1, 2, 3}, 2, 1, 0, 0, 2, 2)
	if diff := cmp.Diff([]byte{1, 2, 0, 0}, dst); diff != "" {
		t.Errorf("copyRect mismatch (-want +got):\n%s", diff)
	}
}

func TestInitKMSFeatures(t *testing.T) {
	for _, tc := range []struct {
		driver string
		in     gralloc.Features
		want   gralloc.Features
	}{
		{
			driver: "i915",
			in:     gralloc.Features{FBFormat: format.RGB565},
			want: gralloc.Features{
				SwapMode:     gralloc.SwapFlip,
				SwapInterval: 1,
				FBFormat:     format.RGB565,
			},
		},
		{
			driver: "vmwgfx",
			in:     gralloc.Features{FBFormat: format.BGRA8888, VBlankSecondary: true},
			want: gralloc.Features{
				SwapMode:    gralloc.SwapCopy,
				QuirkVMWGFX: true,
				FBFormat:    format.BGRA8888,
			},
		},
		{
			driver: "virtio_gpu",
			in:     gralloc.Features{FBFormat: format.YV12},
			want: gralloc.Features{
				SwapMode:     gralloc.SwapFlip,
				SwapInterval: 1,
				FBFormat:     format.BGRA8888,
			},
		},
	} {
		b := &Backend{driver: tc.driver}
		got := tc.in
		b.InitKMSFeatures(&got)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: features mismatch (-want +got):\n%s", tc.driver, diff)
		}
	}
}

func TestForeignBuffer(t *testing.T) {
	b := &Backend{}
	bo := &gralloc.Buffer{Handle: &gralloc.Handle{Width: 1, Height: 1}}
	if _, err := b.Map(bo, 0, 0, 0, 0, false); err == nil {
		t.Error("mapping a buffer from another backend should fail")
	}
	if _, err := b.Export(bo); err == nil {
		t.Error("exporting a buffer from another backend should fail")
	}
	// must not panic
	b.Unmap(bo)
	b.Destroy(bo)
}

package drm_test

import (
	"testing"

	drm "github.com/NeowayLabs/kmspost"
)

type (
	cardDetail struct {
		version      drm.Version
		capabilities map[uint64]uint64
	}
)

var (
	card, errCard = drm.Available()
	cards         = map[string]cardDetail{
		"i915": cardDetail{
			version: drm.Version{
				Major: 1,
				Minor: 6,
				Patch: 1,
				Name:  "i915",
				Desc:  "i915",
				Date:  "20160425",
			},
			capabilities: map[uint64]uint64{
				drm.CapDumbBuffer:         1,
				drm.CapVBlankHighCRTC:     1,
				drm.CapDumbPreferredDepth: 24,
				drm.CapDumbPreferShadow:   1,
				drm.CapPrime:              3,
				drm.CapTimestampMonotonic: 1,
				drm.CapAsyncPageFlip:      0,
				drm.CapCursorWidth:        256,
				drm.CapCursorHeight:       256,

				drm.CapAddFB2Modifiers: 1,
			},
		},
	}
)

// requireCard skips hardware tests on machines without a known card.
func requireCard(t *testing.T) cardDetail {
	t.Helper()
	if errCard != nil {
		t.Skipf("No graphics card available to test: %v", errCard)
	}
	info, ok := cards[card.Name]
	if !ok {
		t.Skipf("No tests for card '%s'", card.Name)
	}
	return info
}

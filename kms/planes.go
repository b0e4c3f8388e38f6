package kms

import (
	"fmt"
	"strings"

	"github.com/NeowayLabs/kmspost/format"
	"github.com/NeowayLabs/kmspost/mode"
)

// Plane is an overlay plane usable with the display's CRTC.
type Plane struct {
	ID      uint32
	Formats []format.Fourcc
}

// InitPlanes records the overlay planes that can be attached to the
// chosen CRTC. The list is only informational, posting never uses it.
func (d *Display) InitPlanes() error {
	// the plane's possible_crtcs bits follow the CRTC order of the
	// card resources
	res, err := d.dev.Resources()
	if err != nil {
		d.plog.Error("failed to get KMS resources", "err", err)
		return fmt.Errorf("%w: get resources: %w", ErrDriverCall, err)
	}

	order := mode.CrtcIndex(res, d.crtcID)
	if order < 0 || order >= 32 {
		d.plog.Error("failed to find crtc in KMS resources", "crtc", d.crtcID)
		return fmt.Errorf("%w: crtc %d", ErrCrtcNotFound, d.crtcID)
	}

	ids, err := d.dev.PlaneResources()
	if err != nil {
		d.plog.Error("failed to get KMS plane resources", "err", err)
		return fmt.Errorf("%w: get plane resources: %w", ErrDriverCall, err)
	}

	var planes []Plane
	for _, id := range ids {
		p, err := d.dev.Plane(id)
		if err != nil {
			d.plog.Error("failed to get plane", "plane", id, "err", err)
			return fmt.Errorf("%w: get plane %d: %w", ErrDriverCall, id, err)
		}
		if p.PossibleCrtcs&(1<<uint(order)) == 0 {
			continue
		}

		formats := make([]format.Fourcc, len(p.Formats))
		for i, f := range p.Formats {
			formats[i] = format.Fourcc(f)
		}
		planes = append(planes, Plane{ID: p.ID, Formats: formats})
	}
	d.planes = planes

	d.plog.Info("planes", "crtc", d.crtcID, "count", len(planes))
	for _, p := range planes {
		d.plog.Info("  plane", "id", p.ID, "formats", fourccList(p.Formats))
	}
	return nil
}

// Planes returns the inventory built by InitPlanes.
func (d *Display) Planes() []Plane {
	return d.planes
}

func fourccList(formats []format.Fourcc) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

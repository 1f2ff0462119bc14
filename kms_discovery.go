//go:build linux

// kms_discovery.go - plane enumeration and primary framebuffer selection

package main

import "fmt"

// planeInfo is a lightweight summary of one plane's binding, used by
// both --list and primary-framebuffer selection.
type planeInfo struct {
	planeID uint32
	fbID    uint32
}

// listPlanes enumerates every plane on the device along with the
// framebuffer id currently bound to it (0 if unbound).
func listPlanes(d *drmDevice) ([]planeInfo, error) {
	ids, err := listPlaneIDs(d.Fd())
	if err != nil {
		return nil, fmt.Errorf("list planes: %w", err)
	}

	planes := make([]planeInfo, 0, len(ids))
	for _, id := range ids {
		fbID, err := getPlaneFB(d.Fd(), id)
		if err != nil {
			return nil, fmt.Errorf("list planes: %w", err)
		}
		planes = append(planes, planeInfo{planeID: id, fbID: fbID})
	}
	return planes, nil
}

// pickPrimaryFB chooses the bound framebuffer with the largest
// width*height among all active planes, querying FB2 metadata for
// each candidate. Ties are broken by first-seen order, per §4.C.
func pickPrimaryFB(d *drmDevice, planes []planeInfo) (*fbMetadata, error) {
	candidates := make([]*fbMetadata, 0, len(planes))
	for _, p := range planes {
		if p.fbID == 0 {
			continue
		}
		meta, err := getFB2(d.Fd(), p.fbID)
		if err != nil {
			diagSub("GETFB2(%d) failed, skipping: %v", p.fbID, err)
			continue
		}
		candidates = append(candidates, meta)
	}
	return pickLargest(candidates)
}

// pickLargest is the pure selection rule behind pickPrimaryFB: the
// candidate with maximum width*height wins, first-seen breaks ties.
// Split out so the selection policy is testable without a DRM device.
func pickLargest(candidates []*fbMetadata) (*fbMetadata, error) {
	var best *fbMetadata
	for _, meta := range candidates {
		if best == nil || meta.width*meta.height > best.width*best.height {
			best = meta
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no active framebuffer found on any plane")
	}
	return best, nil
}

// resolveTargetFB resolves the --fb argument: fbID 0 means
// auto-detect the primary framebuffer via pickPrimaryFB, any other
// value is fetched directly via FB2.
func resolveTargetFB(d *drmDevice, fbID uint32) (*fbMetadata, error) {
	if fbID == 0 {
		planes, err := listPlanes(d)
		if err != nil {
			return nil, err
		}
		return pickPrimaryFB(d, planes)
	}
	return getFB2(d.Fd(), fbID)
}

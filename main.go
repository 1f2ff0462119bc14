//go:build linux

// main.go - CLI entrypoint. Argument parsing, the uid-0 check, and
// exit codes are thin shells around the capture pipeline; see §4
// (spec's scope note on out-of-scope external collaborators).

package main

import (
	"flag"
	"fmt"
	"os"
)

const (
	defaultDevice   = "/dev/dri/card1"
	defaultOutput   = "screenshot.ppm"
	defaultExposure = 1.0
	defaultTonemap  = 2
)

var tonemapNames = map[uint32]string{
	modeReinhard:         "reinhard",
	modeACESNarkowicz:    "aces-narkowicz",
	modeACESHill:         "aces-hill",
	modeACESDay:          "aces-day",
	modeACESFullRRT:      "aces-full-rrt",
	modeHable:            "hable",
	modeReinhardExtended: "reinhard-extended",
	modeUchimura:         "uchimura",
}

func main() {
	device := flag.String("device", defaultDevice, "DRM character device")
	output := flag.String("output", defaultOutput, "output path")
	fbID := flag.Uint("fb", 0, "numeric framebuffer id; 0 = auto-detect primary")
	exposure := flag.Float64("exposure", defaultExposure, "HDR exposure multiplier, must be > 0")
	tonemap := flag.Int("tonemap", defaultTonemap, "tone-curve mode, 0-7 (see --tonemap-list)")
	list := flag.Bool("list", false, "list planes and their bound framebuffers, then exit")
	tonemapList := flag.Bool("tonemap-list", false, "list tone-curve modes, then exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kmsshot [options]\n\nCapture the current KMS scanout to a PPM file.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kmsshot --list\n")
		fmt.Fprintf(os.Stderr, "  kmsshot --output frame.ppm\n")
		fmt.Fprintf(os.Stderr, "  kmsshot --fb 40 --tonemap 2 --exposure 1.5\n")
	}
	flag.Parse()

	if *tonemapList {
		printTonemapList()
		os.Exit(0)
	}

	if os.Getuid() != 0 {
		fmt.Fprintf(os.Stderr, "error: kmsshot requires uid 0\n")
		os.Exit(1)
	}

	if *exposure <= 0 {
		fmt.Fprintf(os.Stderr, "error: -exposure must be > 0\n")
		os.Exit(1)
	}
	if *tonemap < 0 || *tonemap > 7 {
		fmt.Fprintf(os.Stderr, "error: -tonemap must be 0..7\n")
		os.Exit(1)
	}

	drm, err := openDRMDevice(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer drm.Close()

	if *list {
		if err := runList(drm); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	fb, err := resolveTargetFB(drm, uint32(*fbID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opts := captureOptions{exposure: float32(*exposure), tonemapMode: uint32(*tonemap)}
	raster, err := acquireFramebuffer(drm, fb, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := writePPMFile(*output, fb.width, fb.height, raster); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printCaptureSummary(*output, fb, opts)
}

func runList(drm *drmDevice) error {
	planes, err := listPlanes(drm)
	if err != nil {
		return err
	}
	fmt.Printf("%-10s %-10s %-10s %-10s %s\n", "PLANE", "FB", "WIDTH", "HEIGHT", "FORMAT")
	for _, p := range planes {
		if p.fbID == 0 {
			fmt.Printf("%-10d %-10s\n", p.planeID, "-")
			continue
		}
		meta, err := getFB2(drm.Fd(), p.fbID)
		if err != nil {
			// GETFB2 can fail on a driver that only implements the
			// legacy query; fall back to the format-less listing
			// rather than hiding the plane entirely (§4.C).
			width, height, ferr := getFB1Listing(drm.Fd(), p.fbID)
			if ferr != nil {
				fmt.Printf("%-10d %-10d %v\n", p.planeID, p.fbID, err)
				continue
			}
			fmt.Printf("%-10d %-10d %-10d %-10d %s\n", p.planeID, p.fbID, width, height, "unknown (legacy query)")
			continue
		}
		fmt.Printf("%-10d %-10d %-10d %-10d %s\n", p.planeID, p.fbID, meta.width, meta.height, formatName(meta.format))
	}
	return nil
}

func printTonemapList() {
	for mode := uint32(0); mode <= 7; mode++ {
		fmt.Printf("%d: %-18s normalize=%.0f\n", mode, tonemapNames[mode], normalizeFactors[mode])
	}
}

// printCaptureSummary prints a one-line summary after a successful
// capture: output path, fb id, dimensions, format name, and the
// requested tone-map settings if the format is HDR. The acquisition
// strategy that produced the raster is not reported.
func printCaptureSummary(output string, fb *fbMetadata, opts captureOptions) {
	summary := fmt.Sprintf("wrote %s (fb %d, %dx%d, %s)", output, fb.id, fb.width, fb.height, formatName(fb.format))
	if isHDR(fb.format) {
		summary += fmt.Sprintf(" [tonemap=%s exposure=%.2f]", tonemapNames[opts.tonemapMode], opts.exposure)
	}
	fmt.Println(summary)
}

// image_ppm.go - portable bitmap (P6) serialization

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// writePPM serializes a linear RGB raster (row-major, R,G,B per pixel,
// length w*h*3) as a binary PPM ("P6") file: header
// "P6\n<w> <h>\n255\n" followed by the raw raster bytes.
func writePPM(w io.Writer, width, height int, raster []byte) error {
	if len(raster) != width*height*3 {
		return fmt.Errorf("writePPM: raster length %d does not match %dx%dx3", len(raster), width, height)
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", width, height); err != nil {
		return fmt.Errorf("writePPM: header: %w", err)
	}
	if _, err := bw.Write(raster); err != nil {
		return fmt.Errorf("writePPM: raster: %w", err)
	}
	return bw.Flush()
}

// writePPMFile creates path and serializes the raster to it directly,
// with no temporary file. Callers only reach it once a complete raster
// is in hand, so the file is never created for a failed capture; a
// write error part-way through can still leave a truncated file.
func writePPMFile(path string, width, height int, raster []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := writePPM(f, width, height, raster); err != nil {
		return err
	}
	return nil
}

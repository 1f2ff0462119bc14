// Command spirvdump inspects a SPIR-V binary's header: magic number,
// version, generator magic, and ID bound. It exists to sanity-check
// the output of `glslc` against the placeholder format documented in
// vulkan_shaders.go before a real shader blob replaces it.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
)

const spirvMagic = 0x07230203

func main() {
	hexDump := flag.Bool("hex", false, "also print the first words as hex")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spirvdump [options] file.spv\n\nPrint a SPIR-V binary's header fields.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spirvdump tonemap.spv\n")
		fmt.Fprintf(os.Stderr, "  spirvdump -hex tonemap.spv\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	header, err := parseHeader(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d bytes\n", path, len(data))
	fmt.Printf("  magic:     0x%08x\n", header.magic)
	fmt.Printf("  version:   %d.%d\n", header.version>>16&0xff, header.version>>8&0xff)
	fmt.Printf("  generator: 0x%08x\n", header.generator)
	fmt.Printf("  bound:     %d\n", header.bound)

	if *hexDump {
		fmt.Printf("  words:     ")
		for i := 0; i+4 <= len(data) && i < 20; i += 4 {
			fmt.Printf("%08x ", binary.LittleEndian.Uint32(data[i:i+4]))
		}
		fmt.Println()
	}
}

type spirvHeader struct {
	magic     uint32
	version   uint32
	generator uint32
	bound     uint32
	schema    uint32
}

// parseHeader reads SPIR-V's fixed 5-word header (magic, version,
// generator, bound, schema) and rejects anything too short or with
// the wrong magic number, little-endian or big-endian.
func parseHeader(data []byte) (spirvHeader, error) {
	if len(data) < 20 {
		return spirvHeader{}, fmt.Errorf("file too short for a SPIR-V header (%d bytes)", len(data))
	}

	order := binary.ByteOrder(binary.LittleEndian)
	magic := order.Uint32(data[0:4])
	if magic != spirvMagic {
		order = binary.BigEndian
		magic = order.Uint32(data[0:4])
	}
	if magic != spirvMagic {
		return spirvHeader{}, fmt.Errorf("bad magic number 0x%08x (want 0x%08x)", magic, uint32(spirvMagic))
	}

	return spirvHeader{
		magic:     magic,
		version:   order.Uint32(data[4:8]),
		generator: order.Uint32(data[8:12]),
		bound:     order.Uint32(data[12:16]),
		schema:    order.Uint32(data[16:20]),
	}, nil
}

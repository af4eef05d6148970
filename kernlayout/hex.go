package kernlayout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/marcinbor85/gohex"
)

// WriteHex writes the rom bytes owned by the layout itself, the manifest
// and the app placeholder, as Intel HEX. The start address record holds
// _stext.
func (l *Layout) WriteHex(w io.Writer) error {
	mem := gohex.NewMemory()
	if l.Manifest != nil {
		b, err := l.Manifest.MarshalBinary()
		if err != nil {
			return err
		}
		if err := addSegment(mem, l.Symbols.Addr(SymManifest), b); err != nil {
			return err
		}
	}
	if apps, ok := l.Section(".apps"); ok && apps.Size > 0 {
		fill := bytes.Repeat([]byte{apps.Fill}, int(apps.Size))
		if err := addSegment(mem, apps.VMA, fill); err != nil {
			return err
		}
	}
	stext := l.Symbols.Addr(SymTextStart)
	if stext > math.MaxUint32 {
		return fmt.Errorf("hex: start address %#x does not fit in 32 bits", stext)
	}
	mem.SetStartAddress(uint32(stext))
	return mem.DumpIntelHex(w, 16)
}

func addSegment(mem *gohex.Memory, addr uint64, b []byte) error {
	if addr+uint64(len(b)) > math.MaxUint32+1 {
		return fmt.Errorf("hex: segment %#x+%#x does not fit in 32 bits", addr, len(b))
	}
	return mem.AddBinary(uint32(addr), b)
}

// ReadManifestHex decodes the manifest stored at addr in an Intel HEX image.
func ReadManifestHex(r io.Reader, addr uint64) (*Manifest, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	if !covers(mem, addr, ManifestSize) {
		return nil, errors.New("hex: image has no manifest at the given address")
	}
	b := mem.ToBinary(uint32(addr), ManifestSize, 0xFF)
	return ParseManifest(b)
}

func covers(mem *gohex.Memory, addr, size uint64) bool {
	for _, segment := range mem.GetDataSegments() {
		start := uint64(segment.Address)
		end := start + uint64(len(segment.Data))
		if addr >= start && addr+size <= end {
			return true
		}
	}
	return false
}

package kernlayout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marcinbor85/gohex"
)

var ErrImageMismatch = errors.New("image does not match the layout")

// Image is a flash image whose first byte sits at Base.
type Image struct {
	r    io.ReaderAt
	size int64
	Base uint64
}

// OpenImage reads a raw binary, or an Intel HEX file when name ends in
// .hex. HEX images are flattened from base with erased-flash padding.
func OpenImage(name string, base uint64) (*Image, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(name) == ".hex" {
		b, err = hexToBinary(bytes.NewReader(b), base)
		if err != nil {
			return nil, err
		}
	}
	return NewImage(b, base), nil
}

func NewImage(b []byte, base uint64) *Image {
	return &Image{r: bytes.NewReader(b), size: int64(len(b)), Base: base}
}

func hexToBinary(r io.Reader, base uint64) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	var end uint64
	for _, segment := range mem.GetDataSegments() {
		if e := uint64(segment.Address) + uint64(len(segment.Data)); e > end {
			end = e
		}
	}
	if end <= base {
		return nil, errors.New("hex: no data above the image base")
	}
	return mem.ToBinary(uint32(base), uint32(end-base), 0xFF), nil
}

func (img *Image) read(addr, size uint64) ([]byte, error) {
	if addr < img.Base || addr-img.Base+size > uint64(img.size) {
		return nil, fmt.Errorf("%w: [%#x, %#x) outside image", ErrImageMismatch, addr, addr+size)
	}
	out := make([]byte, size)
	if _, err := img.r.ReadAt(out, int64(addr-img.Base)); err != nil {
		return nil, err
	}
	return out, nil
}

// Manifest decodes the manifest at the _manifest address of l.
func (img *Image) Manifest(l *Layout) (*Manifest, error) {
	addr, ok := l.Symbols.Lookup(SymManifest)
	if !ok {
		return nil, errors.New("layout has no manifest")
	}
	b, err := img.read(addr, ManifestSize)
	if err != nil {
		return nil, err
	}
	return ParseManifest(b)
}

// ExtractRelocate returns the flash copy of the initialized data, the
// bytes the reset handler copies to _srelocate.
func (img *Image) ExtractRelocate(l *Layout) ([]byte, error) {
	return img.read(l.Symbols.Addr(SymTextEnd), span(l.Symbols, SymRelocateStart, SymRelocateEnd))
}

// Check compares the image manifest with the one l describes.
func (img *Image) Check(l *Layout) error {
	if l.Manifest == nil {
		return nil
	}
	m, err := img.Manifest(l)
	if err != nil {
		return err
	}
	if m.EntryPoint != l.Manifest.EntryPoint {
		return fmt.Errorf("%w: entry point %#x, layout has %#x", ErrImageMismatch, m.EntryPoint, l.Manifest.EntryPoint)
	}
	if m.CodeStart != l.Manifest.CodeStart || m.CodeEnd != l.Manifest.CodeEnd {
		return fmt.Errorf("%w: code [%#x, %#x), layout has [%#x, %#x)", ErrImageMismatch,
			m.CodeStart, m.CodeEnd, l.Manifest.CodeStart, l.Manifest.CodeEnd)
	}
	return nil
}

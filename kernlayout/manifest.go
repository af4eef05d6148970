package kernlayout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ManifestSize is the size of the secure-boot manifest header.
const ManifestSize = 1024

// UsageConstraints restrict which devices may boot the image.
type UsageConstraints struct {
	SelectorBits      uint32
	DeviceID          [32]byte
	ManufStateCreator uint32
	ManufStateOwner   uint32
	LifeCycleState    uint32
}

// Manifest is the fixed-layout header placed at the start of rom on
// secure-boot boards. Field order and widths follow the boot ROM's
// published format and must not change.
type Manifest struct {
	Signature          [384]byte
	Usage              UsageConstraints
	Modulus            [384]byte
	AddressTranslation uint32
	Identifier         uint32
	Length             uint32
	VersionMajor       uint32
	VersionMinor       uint32
	SecurityVersion    uint32
	Timestamp          uint64
	BindingValue       [32]byte
	MaxKeyVersion      uint32
	CodeStart          uint32
	CodeEnd            uint32
	EntryPoint         uint32
	Padding            [128]byte
}

func init() {
	if n := binary.Size(Manifest{}); n != ManifestSize {
		panic(fmt.Sprintf("kernlayout: manifest is %d bytes, want %d", n, ManifestSize))
	}
}

// manifestAddr encodes the addresses stored in the manifest.
type manifestAddr struct {
	base uint64
	mode EntryPointMode
}

func (a manifestAddr) encode(name string, addr uint64) (uint32, error) {
	v := addr
	if a.mode == EntryRelative {
		if addr < a.base {
			return 0, fmt.Errorf("%w: manifest: %s %#x is below the manifest at %#x", ErrConfig, name, addr, a.base)
		}
		v = addr - a.base
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: manifest: %s %#x does not fit in 32 bits", ErrConfig, name, addr)
	}
	return uint32(v), nil
}

// NewManifest fills a manifest from the board fields and the planned
// symbols. It only reads the symbol table.
func NewManifest(fields ManifestFields, syms *SymbolTable, mode EntryPointMode) (*Manifest, error) {
	base, ok := syms.Lookup(SymManifest)
	if !ok {
		return nil, errors.New("manifest: layout has no manifest section")
	}
	stext, ok := syms.Lookup(SymTextStart)
	if !ok {
		return nil, errors.New("manifest: layout has no text start")
	}
	etext := syms.Addr(SymTextEnd)
	enc := manifestAddr{base: base, mode: mode}
	m := &Manifest{
		AddressTranslation: fields.AddressTranslation,
		Identifier:         fields.Identifier,
		VersionMajor:       fields.VersionMajor,
		VersionMinor:       fields.VersionMinor,
		SecurityVersion:    fields.SecurityVersion,
		Timestamp:          fields.Timestamp,
		MaxKeyVersion:      fields.MaxKeyVersion,
	}
	if etext > base {
		if etext-base > math.MaxUint32 {
			return nil, fmt.Errorf("%w: manifest: image length %#x does not fit in 32 bits", ErrConfig, etext-base)
		}
		m.Length = uint32(etext - base)
	}
	var err error
	if m.CodeStart, err = enc.encode(SymTextStart, stext); err != nil {
		return nil, err
	}
	if m.CodeEnd, err = enc.encode(SymTextEnd, etext); err != nil {
		return nil, err
	}
	m.EntryPoint = m.CodeStart
	return m, nil
}

// EntryAddress resolves the entry point of a manifest placed at base.
func (m *Manifest) EntryAddress(base uint64, mode EntryPointMode) uint64 {
	if mode == EntryRelative {
		return base + uint64(m.EntryPoint)
	}
	return uint64(m.EntryPoint)
}

func (m *Manifest) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(ManifestSize)
	if err := binary.Write(&buf, binary.LittleEndian, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Manifest) UnmarshalBinary(b []byte) error {
	if len(b) != ManifestSize {
		return fmt.Errorf("manifest: invalid size %#x", len(b))
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, m)
}

// ParseManifest decodes the header at the start of b.
func ParseManifest(b []byte) (*Manifest, error) {
	if len(b) < ManifestSize {
		return nil, errors.New("manifest: image is shorter than the header")
	}
	var m Manifest
	if err := m.UnmarshalBinary(b[:ManifestSize]); err != nil {
		return nil, err
	}
	return &m, nil
}

package kernlayout

import (
	"fmt"

	"github.com/q0jt/go-kernlayout/kernlayout/config/arch"
)

// DefaultPageSize is the storage alignment used when a board does not set one.
const DefaultPageSize = 512

type EntryPointMode int

const (
	// EntryAbsolute stores _stext as an absolute address.
	EntryAbsolute EntryPointMode = iota
	// EntryRelative stores _stext as an offset from the manifest start.
	EntryRelative
)

func (m EntryPointMode) String() string {
	if m == EntryRelative {
		return "relative"
	}
	return "absolute"
}

// Capabilities are the board-conditional layout features.
type Capabilities struct {
	Manifest   bool
	TrapVector bool
	EntryPoint EntryPointMode
}

// Fragment is one input section of a kernel object.
type Fragment struct {
	Name         string
	Object       string
	Size         uint64
	Align        uint64
	Unreferenced bool
}

func (f Fragment) align() uint64 {
	if f.Align == 0 {
		return 1
	}
	return f.Align
}

func (f Fragment) String() string {
	if f.Object == "" {
		return f.Name
	}
	return f.Object + "(" + f.Name + ")"
}

// ManifestFields are the board-supplied scalars of the secure-boot manifest.
type ManifestFields struct {
	Identifier         uint32
	VersionMajor       uint32
	VersionMinor       uint32
	SecurityVersion    uint32
	Timestamp          uint64
	AddressTranslation uint32
	MaxKeyVersion      uint32
}

// Board describes one build target.
type Board struct {
	Name         string
	Arch         arch.Arch
	Regions      []MemoryRegion
	Reservation  *Reservation
	PageSize     uint64
	Capabilities Capabilities
	GCSections   bool
	Manifest     ManifestFields
	Fragments    []Fragment
}

func (b *Board) pageSize() uint64 {
	if b.PageSize == 0 {
		return DefaultPageSize
	}
	return b.PageSize
}

func (b *Board) validate() error {
	if b.Arch != arch.CortexM && b.Arch != arch.RiscV {
		return fmt.Errorf("%w: board %q has unsupported arch %q", ErrConfig, b.Name, b.Arch)
	}
	if ps := b.pageSize(); ps&(ps-1) != 0 {
		return fmt.Errorf("%w: page size %#x is not a power of two", ErrConfig, ps)
	}
	for _, f := range b.Fragments {
		if a := f.align(); a&(a-1) != 0 {
			return fmt.Errorf("%w: fragment %s alignment %#x is not a power of two", ErrConfig, f, a)
		}
	}
	return nil
}

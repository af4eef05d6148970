package kernlayout

import (
	"fmt"
	"math"
	"slices"
)

const (
	RegionROM  = "rom"
	RegionProg = "prog"
	RegionRAM  = "ram"
	RegionCCFG = "ccfg"
)

type Attributes struct {
	Executable bool
	Writable   bool
}

type MemoryRegion struct {
	Name   string
	Origin uint64
	Length uint64
	Attrs  Attributes
}

// End returns the first address past the region.
func (r MemoryRegion) End() uint64 {
	return r.Origin + r.Length
}

// Contains reports whether [start, end) lies within the region.
func (r MemoryRegion) Contains(start, end uint64) bool {
	return start >= r.Origin && end <= r.End() && start <= end
}

func (r MemoryRegion) overlaps(o MemoryRegion) bool {
	return r.Origin < o.End() && o.Origin < r.End()
}

func (r MemoryRegion) String() string {
	return fmt.Sprintf("%s [%#x, %#x)", r.Name, r.Origin, r.End())
}

// Reservation shrinks the board regions for targets where a boot ROM
// runs before the kernel and owns the bottom of ram.
type Reservation struct {
	// ProgLength replaces the length of prog when non-zero.
	ProgLength uint64
	// RAMOffset moves the ram origin up, keeping its end.
	RAMOffset uint64
}

func defaultAttributes(name string) Attributes {
	switch name {
	case RegionRAM:
		return Attributes{Writable: true}
	default:
		return Attributes{Executable: true}
	}
}

// RegionTable is the immutable set of memory regions of a board.
type RegionTable struct {
	regions map[string]MemoryRegion
}

// NewRegionTable validates regions and applies the reservation.
func NewRegionTable(regions []MemoryRegion, res *Reservation) (*RegionTable, error) {
	t := &RegionTable{regions: make(map[string]MemoryRegion, len(regions))}
	for _, r := range regions {
		switch r.Name {
		case RegionROM, RegionProg, RegionRAM, RegionCCFG:
		default:
			return nil, fmt.Errorf("%w: unknown region %q", ErrConfig, r.Name)
		}
		if _, ok := t.regions[r.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate region %q", ErrConfig, r.Name)
		}
		if r.Length == 0 {
			return nil, fmt.Errorf("%w: region %q has non-positive length", ErrConfig, r.Name)
		}
		if r.Origin > math.MaxUint64-r.Length {
			return nil, fmt.Errorf("%w: region %q wraps the address space", ErrConfig, r.Name)
		}
		if r.Attrs == (Attributes{}) {
			r.Attrs = defaultAttributes(r.Name)
		}
		t.regions[r.Name] = r
	}
	for _, name := range []string{RegionROM, RegionRAM} {
		if _, ok := t.regions[name]; !ok {
			return nil, fmt.Errorf("%w: missing required region %q", ErrConfig, name)
		}
	}
	if res != nil {
		if err := t.reserve(res); err != nil {
			return nil, err
		}
	}
	all := t.Regions()
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].overlaps(all[j]) {
				return nil, fmt.Errorf("%w: region %s overlaps %s", ErrConfig, all[i], all[j])
			}
		}
	}
	return t, nil
}

func (t *RegionTable) reserve(res *Reservation) error {
	if res.ProgLength != 0 {
		prog, ok := t.regions[RegionProg]
		if !ok {
			return fmt.Errorf("%w: prog length reserved without a prog region", ErrConfig)
		}
		if res.ProgLength > prog.Length {
			return fmt.Errorf("%w: reserved prog length %#x exceeds region length %#x",
				ErrConfig, res.ProgLength, prog.Length)
		}
		prog.Length = res.ProgLength
		t.regions[RegionProg] = prog
	}
	if res.RAMOffset != 0 {
		ram := t.regions[RegionRAM]
		if res.RAMOffset >= ram.Length {
			return fmt.Errorf("%w: ram offset %#x leaves no ram", ErrConfig, res.RAMOffset)
		}
		ram.Origin += res.RAMOffset
		ram.Length -= res.RAMOffset
		t.regions[RegionRAM] = ram
	}
	return nil
}

func (t *RegionTable) Lookup(name string) (MemoryRegion, bool) {
	r, ok := t.regions[name]
	return r, ok
}

func (t *RegionTable) Has(name string) bool {
	_, ok := t.regions[name]
	return ok
}

// Regions returns the regions ordered by origin.
func (t *RegionTable) Regions() []MemoryRegion {
	out := make([]MemoryRegion, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b MemoryRegion) int {
		switch {
		case a.Origin < b.Origin:
			return -1
		case a.Origin > b.Origin:
			return 1
		}
		return 0
	})
	return out
}

func (t *RegionTable) rom() MemoryRegion { return t.regions[RegionROM] }
func (t *RegionTable) ram() MemoryRegion { return t.regions[RegionRAM] }

package kernlayout

import (
	"cmp"
	"path"
	"slices"

	"github.com/q0jt/go-kernlayout/kernlayout/config/arch"
)

const (
	// TrapVectorAlign is the alignment of the trap handler when the board
	// uses vectored trap mode.
	TrapVectorAlign = 256
	// AppPlaceholderMinSize keeps the apps output section non-empty.
	AppPlaceholderMinSize = 4
	// AppPlaceholderFill is the erased-flash value of the placeholder bytes.
	AppPlaceholderFill = 0xff
)

// cursor is the location counter of one region. Placement steps take a
// cursor and return the advanced one; it never moves backwards.
type cursor struct {
	addr uint64
}

func alignUp(addr, n uint64) uint64 {
	if n <= 1 {
		return addr
	}
	return (addr + n - 1) &^ (n - 1)
}

func (c cursor) align(n uint64) cursor {
	return cursor{addr: alignUp(c.addr, n)}
}

func (c cursor) advance(n uint64) cursor {
	return cursor{addr: c.addr + n}
}

// SectionGroup collects the input fragments matching Patterns into one
// contiguous block of an output section.
type SectionGroup struct {
	Name       string
	Output     string
	Region     string
	LoadRegion string
	Rank       int
	Align      uint64
	EndAlign   uint64
	Patterns   []string
	Keep       bool
	NoLoad     bool
	MinSize    uint64
	Fill       byte

	StartSymbol string
	EndSymbol   string
}

// match returns the index of the first pattern matching name.
func (g *SectionGroup) match(name string) (int, bool) {
	for i, p := range g.Patterns {
		if ok, _ := path.Match(p, name); ok {
			return i, true
		}
	}
	return 0, false
}

var (
	codePatterns = []string{
		".text", ".text.*", ".gnu.linkonce.t.*",
		".rodata", ".rodata.*", ".gnu.linkonce.r.*",
		".ARM.extab*", ".gnu.linkonce.armextab.*", ".eh_frame*",
	}
	relocatePatterns = []string{
		".ramfunc", ".ramfunc.*",
		".srodata", ".srodata.*",
		".sdata", ".sdata.*", ".gnu.linkonce.s.*",
		".data", ".data.*", ".gnu.linkonce.d.*",
	}
	zeroPatterns = []string{
		".sbss", ".sbss.*", ".gnu.linkonce.sb.*",
		".bss", ".bss.*", ".gnu.linkonce.b.*",
		"COMMON",
	}
)

func entryPatterns(a arch.Arch) []string {
	if a == arch.RiscV {
		return []string{".riscv.start", ".riscv.start.*"}
	}
	return []string{".start", ".start.*"}
}

func trapPatterns(a arch.Arch) []string {
	if a == arch.RiscV {
		return []string{".riscv.trap_vectored", ".riscv.trap", ".riscv.trap.*"}
	}
	return []string{".trap", ".trap.*"}
}

// Group ranks. Placement within a region and pattern precedence between
// groups both follow rank order.
const (
	rankVectors = iota
	rankIRQs
	rankEntry
	rankTrap
	rankCode
	rankPreinitArray
	rankInitArray
	rankFiniArray
	rankCtors
	rankDtors
	rankExidx
	rankStorage
	rankApps
	rankStack
	rankRelocate
	rankZero
	rankAppMemory
	rankCCFG
)

// sortGroups orders groups by Rank, keeping the relative order of equal ranks.
func sortGroups(groups []SectionGroup) {
	slices.SortStableFunc(groups, func(a, b SectionGroup) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
}

// sectionGroups returns the groups of a board in rank order.
func sectionGroups(b *Board, t *RegionTable) []SectionGroup {
	page := b.pageSize()
	trapAlign := uint64(1)
	if b.Capabilities.TrapVector {
		trapAlign = TrapVectorAlign
	}
	groups := []SectionGroup{
		{Name: "vectors", Output: ".text", Region: RegionROM, Rank: rankVectors, Align: 4,
			Patterns: []string{".vectors", ".vectors.*"}, Keep: true},
		{Name: "irqs", Output: ".text", Region: RegionROM, Rank: rankIRQs, Align: 4,
			Patterns: []string{".irqs"}, Keep: true},
		{Name: "entry", Output: ".text", Region: RegionROM, Rank: rankEntry, Align: 1,
			Patterns: entryPatterns(b.Arch), Keep: true},
		{Name: "trap", Output: ".text", Region: RegionROM, Rank: rankTrap, Align: trapAlign,
			Patterns: trapPatterns(b.Arch), Keep: true, StartSymbol: SymTrapStart},
		{Name: "code", Output: ".text", Region: RegionROM, Rank: rankCode, Align: 4,
			Patterns: codePatterns},
		ctorGroup("preinit_array", ".preinit_array", rankPreinitArray),
		ctorGroup("init_array", ".init_array", rankInitArray),
		ctorGroup("fini_array", ".fini_array", rankFiniArray),
		ctorGroup("ctors", ".ctors", rankCtors),
		ctorGroup("dtors", ".dtors", rankDtors),
		{Name: "exidx", Output: ".ARM.exidx", Region: RegionROM, Rank: rankExidx, Align: 4,
			Patterns:    []string{".ARM.exidx", ".ARM.exidx.*", ".gnu.linkonce.armexidx.*"},
			StartSymbol: SymExidxStart, EndSymbol: SymExidxEnd},
		{Name: "storage", Output: ".storage", Region: RegionROM, Rank: rankStorage, Align: page, EndAlign: page,
			Patterns: []string{".storage", ".storage.*"}, Keep: true,
			StartSymbol: SymStorageStart, EndSymbol: SymStorageEnd},
		{Name: "stack", Output: ".stack", Region: RegionRAM, Rank: rankStack, Align: 8, EndAlign: 8,
			Patterns: []string{".stack_buffer", ".stack_buffer.*"}, Keep: true, NoLoad: true,
			StartSymbol: SymStackStart, EndSymbol: SymStackEnd},
		{Name: "relocate", Output: ".relocate", Region: RegionRAM, LoadRegion: RegionROM,
			Rank: rankRelocate, Align: 4, EndAlign: 4, Patterns: relocatePatterns,
			StartSymbol: SymRelocateStart, EndSymbol: SymRelocateEnd},
		{Name: "zero", Output: ".sram", Region: RegionRAM, Rank: rankZero, Align: 4, EndAlign: 4,
			Patterns: zeroPatterns, NoLoad: true,
			StartSymbol: SymZeroStart, EndSymbol: SymZeroEnd},
		{Name: "app_memory", Output: ".app_memory", Region: RegionRAM, Rank: rankAppMemory, Align: 4,
			Patterns: []string{".app_memory"}, Keep: true, NoLoad: true,
			StartSymbol: SymAppMemStart},
	}
	apps := SectionGroup{Name: "apps", Output: ".apps", Region: RegionProg, Rank: rankApps,
		Patterns: []string{".app_placeholder"}, Keep: true,
		MinSize: AppPlaceholderMinSize, Fill: AppPlaceholderFill, StartSymbol: SymAppsStart}
	if !t.Has(RegionProg) {
		apps.Region = RegionROM
		apps.Align = page
	}
	groups = append(groups, apps)
	if t.Has(RegionCCFG) {
		groups = append(groups, SectionGroup{Name: "ccfg", Output: ".ccfg", Region: RegionCCFG, Rank: rankCCFG,
			Patterns: []string{".ccfg"}, Keep: true,
			StartSymbol: SymCCFGStart, EndSymbol: SymCCFGEnd})
	}
	sortGroups(groups)
	return groups
}

func ctorGroup(name, section string, rank int) SectionGroup {
	return SectionGroup{
		Name:        name,
		Output:      ".text",
		Region:      RegionROM,
		Rank:        rank,
		Align:       4,
		Patterns:    []string{section + ".*", section},
		Keep:        true,
		StartSymbol: "__" + name + "_start",
		EndSymbol:   "__" + name + "_end",
	}
}

package kernlayout

import (
	"github.com/q0jt/go-kernlayout/kernlayout/config/arch"
)

type PlacedFragment struct {
	Fragment
	Addr uint64
}

// Section is one output section. LMA differs from VMA only for
// sections loaded from another region.
type Section struct {
	Name       string
	Region     string
	LoadRegion string
	VMA        uint64
	LMA        uint64
	Size       uint64
	NoLoad     bool
	Keep       bool
	Fill       byte
	Fragments  []PlacedFragment
}

func (s Section) End() uint64 {
	return s.VMA + s.Size
}

func (s Section) LoadEnd() uint64 {
	return s.LMA + s.Size
}

// Layout is the result of planning a board.
type Layout struct {
	Board        string
	Arch         arch.Arch
	PageSize     uint64
	Capabilities Capabilities
	Regions      *RegionTable
	Sections     []Section
	Symbols      *SymbolTable
	Manifest     *Manifest
	// Discarded holds unreferenced fragments dropped by section GC.
	Discarded []Fragment
	// Orphans holds fragments no group matched.
	Orphans []Fragment
}

// Section returns the output section called name.
func (l *Layout) Section(name string) (Section, bool) {
	for _, s := range l.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

type planner struct {
	board  *Board
	table  *RegionTable
	groups []SectionGroup
	inputs [][]Fragment
}

func newPlanner(b *Board, t *RegionTable) *planner {
	groups := sectionGroups(b, t)
	return &planner{
		board:  b,
		table:  t,
		groups: groups,
		inputs: make([][]Fragment, len(groups)),
	}
}

// assign distributes the board fragments over the groups. A fragment
// goes to the first group with a matching pattern; inside a group the
// pattern order wins over the input order.
func (p *planner) assign() (discarded, orphans []Fragment) {
	type hit struct {
		pattern int
		f       Fragment
	}
	hits := make([][]hit, len(p.groups))
	for _, f := range p.board.Fragments {
		matched := false
		for gi := range p.groups {
			g := &p.groups[gi]
			pi, ok := g.match(f.Name)
			if !ok {
				continue
			}
			matched = true
			if p.board.GCSections && f.Unreferenced && !g.Keep {
				discarded = append(discarded, f)
				break
			}
			hits[gi] = append(hits[gi], hit{pattern: pi, f: f})
			break
		}
		if !matched {
			orphans = append(orphans, f)
		}
	}
	for gi, hs := range hits {
		for pi := range p.groups[gi].Patterns {
			for _, h := range hs {
				if h.pattern == pi {
					p.inputs[gi] = append(p.inputs[gi], h.f)
				}
			}
		}
	}
	return discarded, orphans
}

// placed is the outcome of one placement step.
type placed struct {
	fragments []PlacedFragment
	symbols   []Symbol
}

// place lays out group gi at c and returns the advanced cursor.
func (p *planner) place(c cursor, gi int) (cursor, placed) {
	g := p.groups[gi]
	var out placed
	c = c.align(g.Align)
	start := c.addr
	if g.StartSymbol != "" {
		out.symbols = append(out.symbols, Symbol{Name: g.StartSymbol, Addr: c.addr, Align: g.Align})
	}
	for _, f := range p.inputs[gi] {
		c = c.align(f.align())
		out.fragments = append(out.fragments, PlacedFragment{Fragment: f, Addr: c.addr})
		c = c.advance(f.Size)
	}
	if used := c.addr - start; used < g.MinSize {
		c = c.advance(g.MinSize - used)
	}
	c = c.align(g.EndAlign)
	if g.EndSymbol != "" {
		out.symbols = append(out.symbols, Symbol{Name: g.EndSymbol, Addr: c.addr, Align: g.EndAlign})
	}
	return c, out
}

func (p *planner) group(name string) int {
	for i, g := range p.groups {
		if g.Name == name {
			return i
		}
	}
	return -1
}

// output places consecutive groups sharing an output section name,
// starting with group first, and returns the section they form.
func (p *planner) output(c cursor, first int, syms *SymbolTable) (cursor, Section) {
	g := p.groups[first]
	c = c.align(g.Align)
	sec := Section{
		Name:       g.Output,
		Region:     g.Region,
		LoadRegion: g.LoadRegion,
		VMA:        c.addr,
		LMA:        c.addr,
		NoLoad:     g.NoLoad,
		Fill:       g.Fill,
		Keep:       true,
	}
	for gi := first; gi < len(p.groups) && p.groups[gi].Output == g.Output; gi++ {
		var out placed
		c, out = p.place(c, gi)
		sec.Fragments = append(sec.Fragments, out.fragments...)
		for _, s := range out.symbols {
			syms.define(s.Name, s.Addr, s.Align)
		}
		sec.Keep = sec.Keep && p.groups[gi].Keep
	}
	sec.Size = c.addr - sec.VMA
	return c, sec
}

// Plan computes addresses for every section of b. It never fails: a
// layout that does not fit is reported by Validate.
func Plan(b *Board, t *RegionTable) *Layout {
	p := newPlanner(b, t)
	l := &Layout{
		Board:        b.Name,
		Arch:         b.Arch,
		PageSize:     b.pageSize(),
		Capabilities: b.Capabilities,
		Regions:      t,
		Symbols:      newSymbolTable(),
	}
	l.Discarded, l.Orphans = p.assign()

	rom := cursor{addr: t.rom().Origin}
	if b.Capabilities.Manifest {
		rom = p.planManifest(l, rom)
	}
	rom = p.planText(l, rom)
	etext := rom.addr

	ram := cursor{addr: t.ram().Origin}
	ram = p.planStack(l, ram)
	ram, reloc := p.planRelocate(l, ram, etext)
	ram = p.planZero(l, ram)
	p.planAppMemory(l, ram)

	p.planApps(l, cursor{addr: etext + reloc.Size})
	if t.Has(RegionCCFG) {
		p.planCCFG(l)
	}
	return l
}

func (p *planner) planManifest(l *Layout, c cursor) cursor {
	l.Sections = append(l.Sections, Section{
		Name:   ".manifest",
		Region: RegionROM,
		VMA:    c.addr,
		LMA:    c.addr,
		Size:   ManifestSize,
		Keep:   true,
	})
	l.Symbols.define(SymManifest, c.addr, 1)
	c = c.advance(ManifestSize)
	l.Symbols.define(SymManifestEnd, c.addr, 1)
	return c
}

// planText places the .text, .ARM.exidx and .storage output sections and
// page-aligns the end of the text region.
func (p *planner) planText(l *Layout, c cursor) cursor {
	c = c.align(4)
	l.Symbols.define(SymTextStartAlias, c.addr, 4)
	l.Symbols.define(SymTextStart, c.addr, 4)

	c, text := p.output(c, p.group("vectors"), l.Symbols)
	c = c.align(4)
	text.Size = c.addr - text.VMA
	l.Symbols.define(SymTextEndAlias, c.addr, 4)
	l.Sections = append(l.Sections, text)

	c, exidx := p.output(c, p.group("exidx"), l.Symbols)
	l.Sections = append(l.Sections, exidx)

	c, storage := p.output(c, p.group("storage"), l.Symbols)
	l.Sections = append(l.Sections, storage)

	c = c.align(l.PageSize)
	l.Symbols.define(SymRodataEnd, c.addr, l.PageSize)
	l.Symbols.define(SymTextEnd, c.addr, l.PageSize)
	return c
}

func (p *planner) planStack(l *Layout, c cursor) cursor {
	c, stack := p.output(c, p.group("stack"), l.Symbols)
	l.Sections = append(l.Sections, stack)
	return c
}

// planRelocate places initialized data in ram with its load image
// directly after the text region in rom.
func (p *planner) planRelocate(l *Layout, c cursor, etext uint64) (cursor, Section) {
	c, reloc := p.output(c, p.group("relocate"), l.Symbols)
	reloc.LMA = etext
	if l.Arch == arch.RiscV {
		l.Symbols.define(SymGlobalPointer, reloc.VMA+GlobalPointerOffset, 1)
	}
	l.Sections = append(l.Sections, reloc)
	return c, reloc
}

func (p *planner) planZero(l *Layout, c cursor) cursor {
	c, zero := p.output(c, p.group("zero"), l.Symbols)
	l.Sections = append(l.Sections, zero)
	return c
}

// planAppMemory hands the rest of ram to processes.
func (p *planner) planAppMemory(l *Layout, c cursor) {
	_, mem := p.output(c, p.group("app_memory"), l.Symbols)
	l.Sections = append(l.Sections, mem)
	l.Symbols.define(SymAppMemEnd, p.table.ram().End(), 1)
}

// planApps reserves the whole prog region for applications. Boards
// without prog get what is left of rom after the relocation image.
func (p *planner) planApps(l *Layout, romEnd cursor) {
	c := romEnd
	end := p.table.rom().End()
	if prog, ok := p.table.Lookup(RegionProg); ok {
		c = cursor{addr: prog.Origin}
		end = prog.End()
	}
	_, apps := p.output(c, p.group("apps"), l.Symbols)
	l.Sections = append(l.Sections, apps)
	l.Symbols.define(SymAppsEnd, end, 1)
}

func (p *planner) planCCFG(l *Layout) {
	ccfg, _ := p.table.Lookup(RegionCCFG)
	_, sec := p.output(cursor{addr: ccfg.Origin}, p.group("ccfg"), l.Symbols)
	l.Sections = append(l.Sections, sec)
}

package kernlayout

// Boundary symbols read by the boot code and the process loader.
const (
	SymStackStart     = "_sstack"
	SymStackEnd       = "_estack"
	SymTextStart      = "_stext"
	SymTextEnd        = "_etext"
	SymRodataEnd      = "_erodata"
	SymTextStartAlias = "_textstart"
	SymTextEndAlias   = "_textend"
	SymTrapStart      = "_strap"
	SymRelocateStart  = "_srelocate"
	SymRelocateEnd    = "_erelocate"
	SymZeroStart      = "_szero"
	SymZeroEnd        = "_ezero"
	SymAppsStart      = "_sapps"
	SymAppsEnd        = "_eapps"
	SymAppMemStart    = "_sappmem"
	SymAppMemEnd      = "_eappmem"
	SymStorageStart   = "_sstorage"
	SymStorageEnd     = "_estorage"
	SymManifest       = "_manifest"
	SymManifestEnd    = "_emanifest"
	SymCCFGStart      = "_sccfg"
	SymCCFGEnd        = "_eccfg"
	SymExidxStart     = "__exidx_start"
	SymExidxEnd       = "__exidx_end"
	SymGlobalPointer  = "__global_pointer$"
)

// GlobalPointerOffset places the RISC-V gp so that signed 12-bit offsets
// cover the first 4KiB of initialized data.
const GlobalPointerOffset = 0x800

// RequiredSymbols are emitted for every board.
var RequiredSymbols = []string{
	SymStackStart, SymStackEnd,
	SymTextStart, SymTextEnd, SymRodataEnd,
	SymTextStartAlias, SymTextEndAlias,
	SymRelocateStart, SymRelocateEnd,
	SymZeroStart, SymZeroEnd,
	SymAppsStart, SymAppsEnd,
	SymAppMemStart, SymAppMemEnd,
	SymStorageStart, SymStorageEnd,
}

// SymbolPairs lists start/end symbols that must satisfy start <= end.
var SymbolPairs = [][2]string{
	{SymStackStart, SymStackEnd},
	{SymTextStart, SymTextEnd},
	{SymTextStartAlias, SymTextEndAlias},
	{SymRelocateStart, SymRelocateEnd},
	{SymZeroStart, SymZeroEnd},
	{SymAppsStart, SymAppsEnd},
	{SymAppMemStart, SymAppMemEnd},
	{SymStorageStart, SymStorageEnd},
	{SymManifest, SymManifestEnd},
	{SymCCFGStart, SymCCFGEnd},
	{SymExidxStart, SymExidxEnd},
	{"__preinit_array_start", "__preinit_array_end"},
	{"__init_array_start", "__init_array_end"},
	{"__fini_array_start", "__fini_array_end"},
	{"__ctors_start", "__ctors_end"},
	{"__dtors_start", "__dtors_end"},
}

// Symbol is a named address. Align is the alignment the planner
// guarantees for Addr, 1 when none.
type Symbol struct {
	Name  string
	Addr  uint64
	Align uint64
}

// SymbolTable keeps symbols in definition order.
type SymbolTable struct {
	syms  []Symbol
	index map[string]int
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{index: map[string]int{}}
}

func (t *SymbolTable) define(name string, addr, align uint64) {
	if align == 0 {
		align = 1
	}
	s := Symbol{Name: name, Addr: addr, Align: align}
	if i, ok := t.index[name]; ok {
		t.syms[i] = s
		return
	}
	t.index[name] = len(t.syms)
	t.syms = append(t.syms, s)
}

func (t *SymbolTable) Lookup(name string) (uint64, bool) {
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.syms[i].Addr, true
}

// Addr returns the address of name, or 0 when it is not defined.
func (t *SymbolTable) Addr(name string) uint64 {
	a, _ := t.Lookup(name)
	return a
}

func (t *SymbolTable) Symbol(name string) (Symbol, bool) {
	i, ok := t.index[name]
	if !ok {
		return Symbol{}, false
	}
	return t.syms[i], true
}

func (t *SymbolTable) All() []Symbol {
	out := make([]Symbol, len(t.syms))
	copy(out, t.syms)
	return out
}

func (t *SymbolTable) Len() int {
	return len(t.syms)
}

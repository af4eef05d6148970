package kernlayout

type BootStepKind int

const (
	BootCopy BootStepKind = iota
	BootZero
)

func (k BootStepKind) String() string {
	if k == BootZero {
		return "zero"
	}
	return "copy"
}

// BootStep is one phase the reset handler performs before jumping to
// the kernel. Src is unused for BootZero.
type BootStep struct {
	Kind BootStepKind
	Src  uint64
	Dst  uint64
	Len  uint64
}

// BootPlan returns the reset-time phases the symbols of l exist for, in
// the order they must run: copy the relocate image from _etext to
// _srelocate, then clear _szero.._ezero.
func (l *Layout) BootPlan() []BootStep {
	syms := l.Symbols
	return []BootStep{
		{
			Kind: BootCopy,
			Src:  syms.Addr(SymTextEnd),
			Dst:  syms.Addr(SymRelocateStart),
			Len:  span(syms, SymRelocateStart, SymRelocateEnd),
		},
		{
			Kind: BootZero,
			Dst:  syms.Addr(SymZeroStart),
			Len:  span(syms, SymZeroStart, SymZeroEnd),
		},
	}
}

type Permissions int

const (
	ReadWriteOnly Permissions = iota
	ReadExecuteOnly
)

func (p Permissions) String() string {
	if p == ReadExecuteOnly {
		return "rx"
	}
	return "rw"
}

// ProtectionRegion is a window the kernel hands to its MPU/PMP.
type ProtectionRegion struct {
	Name  string
	Start uint64
	Size  uint64
	Perm  Permissions
}

// KernelRegions derives the kernel memory protection windows from the
// boundary symbols. On manifest boards the text window starts at the
// manifest so the boot ROM's header is covered too.
func (l *Layout) KernelRegions() []ProtectionRegion {
	syms := l.Symbols
	textStart := SymTextStart
	if _, ok := syms.Lookup(SymManifest); ok {
		textStart = SymManifest
	}
	return []ProtectionRegion{
		{Name: "kernel data", Start: syms.Addr(SymStackStart), Size: span(syms, SymStackStart, SymZeroEnd), Perm: ReadWriteOnly},
		{Name: "kernel text", Start: syms.Addr(textStart), Size: span(syms, textStart, SymTextEnd), Perm: ReadExecuteOnly},
		{Name: "apps", Start: syms.Addr(SymAppsStart), Size: span(syms, SymAppsStart, SymAppsEnd), Perm: ReadWriteOnly},
		{Name: "app memory", Start: syms.Addr(SymAppMemStart), Size: span(syms, SymAppMemStart, SymAppMemEnd), Perm: ReadWriteOnly},
	}
}

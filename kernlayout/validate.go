package kernlayout

import (
	"errors"
	"fmt"
)

// Validate checks the global invariants of a planned layout. All
// violations are reported together.
func Validate(l *Layout) error {
	var errs []error
	if err := checkROMFit(l); err != nil {
		errs = append(errs, err)
	}
	if l.Capabilities.Manifest {
		if err := checkManifestOrder(l); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, checkContainment(l)...)
	errs = append(errs, checkSymbolPairs(l)...)
	return errors.Join(errs...)
}

// checkROMFit requires the text region and the flash copy of the
// relocated data to fit in rom together.
func checkROMFit(l *Layout) error {
	syms := l.Symbols
	text := span(syms, SymTextStart, SymTextEnd)
	reloc := span(syms, SymRelocateStart, SymRelocateEnd)
	rom := l.Regions.rom()
	if text+reloc >= rom.Length {
		return fmt.Errorf("%w: text %#x + relocate %#x >= rom %#x",
			ErrROMExhausted, text, reloc, rom.Length)
	}
	return nil
}

func span(syms *SymbolTable, start, end string) uint64 {
	s, e := syms.Addr(start), syms.Addr(end)
	if e < s {
		return 0
	}
	return e - s
}

// checkManifestOrder requires the kernel text, and the entry point the
// manifest advertises, to lie past the last byte of the manifest.
func checkManifestOrder(l *Layout) error {
	base, ok := l.Symbols.Lookup(SymManifest)
	if !ok {
		return fmt.Errorf("%w: no manifest section", ErrManifestOrder)
	}
	stext := l.Symbols.Addr(SymTextStart)
	end := base + ManifestSize
	if stext <= base || stext < end {
		return fmt.Errorf("%w: _stext %#x, manifest [%#x, %#x)", ErrManifestOrder, stext, base, end)
	}
	if l.Manifest != nil {
		entry := l.Manifest.EntryAddress(base, l.Capabilities.EntryPoint)
		if entry < end {
			return fmt.Errorf("%w: entry point %#x inside manifest [%#x, %#x)",
				ErrManifestOrder, entry, base, end)
		}
	}
	return nil
}

func checkContainment(l *Layout) []error {
	var errs []error
	for _, s := range l.Sections {
		r, ok := l.Regions.Lookup(s.Region)
		if !ok || !r.Contains(s.VMA, s.End()) {
			errs = append(errs, fmt.Errorf("%w: %s [%#x, %#x) outside %s",
				ErrRegionOverflow, s.Name, s.VMA, s.End(), s.Region))
			continue
		}
		if s.LoadRegion == "" || s.LoadRegion == s.Region {
			continue
		}
		lr, ok := l.Regions.Lookup(s.LoadRegion)
		if !ok || !lr.Contains(s.LMA, s.LoadEnd()) {
			errs = append(errs, fmt.Errorf("%w: load image of %s [%#x, %#x) outside %s",
				ErrRegionOverflow, s.Name, s.LMA, s.LoadEnd(), s.LoadRegion))
		}
	}
	return errs
}

func checkSymbolPairs(l *Layout) []error {
	var errs []error
	for _, pair := range SymbolPairs {
		s, ok1 := l.Symbols.Lookup(pair[0])
		e, ok2 := l.Symbols.Lookup(pair[1])
		if !ok1 || !ok2 {
			continue
		}
		if s > e {
			errs = append(errs, fmt.Errorf("%w: %s %#x > %s %#x", ErrSymbolOrder, pair[0], s, pair[1], e))
		}
	}
	return errs
}

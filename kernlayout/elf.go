package kernlayout

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

// FragmentsFromELF lists the allocatable input sections of a relocatable
// object, plus one COMMON fragment per common symbol.
func FragmentsFromELF(path string) ([]Fragment, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fragmentsFromFile(f, filepath.Base(path))
}

// ReadELFFragments is FragmentsFromELF for an object already in memory.
func ReadELFFragments(r io.ReaderAt, object string) ([]Fragment, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fragmentsFromFile(f, object)
}

func fragmentsFromFile(f *elf.File, object string) ([]Fragment, error) {
	if f.Type != elf.ET_REL {
		return nil, fmt.Errorf("elf: %s is %s, not a relocatable object", object, f.Type)
	}
	var frags []Fragment
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		frags = append(frags, Fragment{
			Name:   s.Name,
			Object: object,
			Size:   s.Size,
			Align:  s.Addralign,
		})
	}
	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, err
	}
	for _, sym := range syms {
		if sym.Section != elf.SHN_COMMON {
			continue
		}
		// st_value of a common symbol holds its alignment.
		frags = append(frags, Fragment{
			Name:   "COMMON",
			Object: object,
			Size:   sym.Size,
			Align:  sym.Value,
		})
	}
	return frags, nil
}

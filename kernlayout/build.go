package kernlayout

import (
	"context"
	"fmt"

	"github.com/q0jt/go-kernlayout/internal/ctxlog"
)

// Build runs the whole pass for one board: region table, planner,
// manifest and validation. No layout is returned when any stage fails.
func Build(ctx context.Context, b *Board) (*Layout, error) {
	logger := ctxlog.FromContext(ctx).With("board", b.Name)

	if err := b.validate(); err != nil {
		return nil, err
	}
	table, err := NewRegionTable(b.Regions, b.Reservation)
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", b.Name, err)
	}
	for _, r := range table.Regions() {
		logger.Debug("Memory region registered.", "region", r.Name, "origin", r.Origin, "length", r.Length)
	}

	l := Plan(b, table)
	logger.Debug("Sections planned.", "sections", len(l.Sections), "symbols", l.Symbols.Len())
	for _, f := range l.Orphans {
		logger.Warn("Input section matched no output section.", "section", f.String(), "size", f.Size)
	}
	if len(l.Discarded) > 0 {
		logger.Debug("Unreferenced input sections discarded.", "count", len(l.Discarded))
	}

	if b.Capabilities.Manifest {
		m, err := NewManifest(b.Manifest, l.Symbols, b.Capabilities.EntryPoint)
		if err != nil {
			return nil, fmt.Errorf("board %s: %w", b.Name, err)
		}
		l.Manifest = m
		logger.Debug("Manifest built.", "entry_point", m.EntryPoint, "mode", b.Capabilities.EntryPoint.String())
	}

	if err := Validate(l); err != nil {
		return nil, fmt.Errorf("board %s: %w", b.Name, err)
	}
	logger.Info("Layout built.",
		"text", span(l.Symbols, SymTextStart, SymTextEnd),
		"relocate", span(l.Symbols, SymRelocateStart, SymRelocateEnd),
		"rom", table.rom().Length)
	return l, nil
}

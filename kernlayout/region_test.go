package kernlayout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicRegions() []MemoryRegion {
	return []MemoryRegion{
		{Name: RegionROM, Origin: 0x20000000, Length: 0x60000},
		{Name: RegionProg, Origin: 0x20060000, Length: 0x40000},
		{Name: RegionRAM, Origin: 0x10000000, Length: 0x10000},
	}
}

func TestNewRegionTable(t *testing.T) {
	table, err := NewRegionTable(basicRegions(), nil)
	require.NoError(t, err)

	rom, ok := table.Lookup(RegionROM)
	require.True(t, ok)
	assert.Equal(t, uint64(0x20060000), rom.End())
	assert.True(t, rom.Attrs.Executable)
	assert.False(t, rom.Attrs.Writable)

	ram, ok := table.Lookup(RegionRAM)
	require.True(t, ok)
	assert.True(t, ram.Attrs.Writable)
	assert.False(t, ram.Attrs.Executable)

	assert.True(t, table.Has(RegionProg))
	assert.False(t, table.Has(RegionCCFG))

	var names []string
	for _, r := range table.Regions() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{RegionRAM, RegionROM, RegionProg}, names)
}

func TestNewRegionTable_Reservation(t *testing.T) {
	table, err := NewRegionTable(basicRegions(), &Reservation{ProgLength: 0x30000, RAMOffset: 0x650})
	require.NoError(t, err)

	ram, _ := table.Lookup(RegionRAM)
	assert.Equal(t, uint64(0x10000650), ram.Origin)
	assert.Equal(t, uint64(0x10000-0x650), ram.Length)
	assert.Equal(t, uint64(0x10010000), ram.End(), "the ram end must not move")

	prog, _ := table.Lookup(RegionProg)
	assert.Equal(t, uint64(0x20060000), prog.Origin)
	assert.Equal(t, uint64(0x30000), prog.Length)
}

func TestNewRegionTable_Errors(t *testing.T) {
	withRegion := func(extra MemoryRegion) []MemoryRegion {
		return append(basicRegions(), extra)
	}
	tests := []struct {
		name    string
		regions []MemoryRegion
		res     *Reservation
		errMsg  string
	}{
		{
			name:    "unknown region",
			regions: withRegion(MemoryRegion{Name: "flash", Origin: 0x0, Length: 0x100}),
			errMsg:  `unknown region "flash"`,
		},
		{
			name:    "duplicate region",
			regions: withRegion(MemoryRegion{Name: RegionRAM, Origin: 0x30000000, Length: 0x100}),
			errMsg:  `duplicate region "ram"`,
		},
		{
			name:    "zero length",
			regions: withRegion(MemoryRegion{Name: RegionCCFG, Origin: 0x0, Length: 0}),
			errMsg:  "non-positive length",
		},
		{
			name:    "wraps",
			regions: withRegion(MemoryRegion{Name: RegionCCFG, Origin: math.MaxUint64 - 0x10, Length: 0x100}),
			errMsg:  "wraps the address space",
		},
		{
			name:    "missing ram",
			regions: basicRegions()[:2],
			errMsg:  `missing required region "ram"`,
		},
		{
			name:    "overlap",
			regions: withRegion(MemoryRegion{Name: RegionCCFG, Origin: 0x2005ff00, Length: 0x200}),
			errMsg:  "overlaps",
		},
		{
			name:    "prog reservation too long",
			regions: basicRegions(),
			res:     &Reservation{ProgLength: 0x50000},
			errMsg:  "exceeds region length",
		},
		{
			name:    "prog reservation without prog",
			regions: []MemoryRegion{basicRegions()[0], basicRegions()[2]},
			res:     &Reservation{ProgLength: 0x1000},
			errMsg:  "without a prog region",
		},
		{
			name:    "ram offset swallows ram",
			regions: basicRegions(),
			res:     &Reservation{RAMOffset: 0x10000},
			errMsg:  "leaves no ram",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegionTable(tc.regions, tc.res)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestMemoryRegion_Contains(t *testing.T) {
	r := MemoryRegion{Name: RegionROM, Origin: 0x1000, Length: 0x1000}
	assert.True(t, r.Contains(0x1000, 0x2000))
	assert.True(t, r.Contains(0x1800, 0x1800))
	assert.False(t, r.Contains(0xfff, 0x1000))
	assert.False(t, r.Contains(0x1000, 0x2001))
	assert.False(t, r.Contains(0x1800, 0x1700))
}

package kernlayout

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/q0jt/go-kernlayout/kernlayout/config/arch"
)

func TestLoadHCLBoards(t *testing.T) {
	boards, err := LoadHCLBoards(context.Background(), "testdata")
	require.NoError(t, err)

	var names []string
	for _, b := range boards {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"opentitan", "imix", "launchxl"}, names)

	ot := boards[0]
	assert.Equal(t, arch.RiscV, ot.Arch)
	assert.True(t, ot.GCSections, "section GC defaults to on")
	assert.Equal(t, Capabilities{Manifest: true, TrapVector: true}, ot.Capabilities)
	assert.Equal(t, []MemoryRegion{
		{Name: RegionROM, Origin: 0x20000000, Length: 0x60000},
		{Name: RegionProg, Origin: 0x20060000, Length: 0x40000},
		{Name: RegionRAM, Origin: 0x10000000, Length: 0x10000},
	}, ot.Regions)
	assert.Equal(t, &Reservation{ProgLength: 0x30000, RAMOffset: 0x650}, ot.Reservation)
	assert.Equal(t, ManifestFields{Identifier: 0x4552544f, VersionMinor: 1}, ot.Manifest)
	require.Len(t, ot.Fragments, 13)
	assert.Equal(t, Fragment{Name: ".text", Object: "kernel.o", Size: 0x10000, Align: 4}, ot.Fragments[3])
	assert.True(t, ot.Fragments[4].Unreferenced)

	lx := boards[2]
	assert.Equal(t, uint64(0x2000), lx.PageSize)
	assert.Nil(t, lx.Reservation)
	assert.Equal(t, uint64(0x14000), lx.Regions[3].Length)
}

func TestLoadHCLBoards_DuplicateBoard(t *testing.T) {
	dir := t.TempDir()
	src := []byte(`
board "twin" {
  arch = "cortex-m"
}
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), src, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), src, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	_, err := LoadHCLBoards(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), `board "twin" defined in`)
}

func TestLoadHCLBoards_MissingPath(t *testing.T) {
	_, err := LoadHCLBoards(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseHCLBoards(t *testing.T) {
	src := []byte(`
board "custom" {
  arch        = "cortex-m"
  entry_point = "relative"
  gc_sections = false
  page_size   = max(256, 1024)

  region "rom" {
    origin = "0o2000"
    length = 1 * MiB
  }
  region "ram" {
    origin = "0b1"
    length = min(8 * KiB, 4 * KiB)
  }
  manifest_fields {
    timestamp = "0xffffffffff"
  }
}
`)
	boards, err := ParseHCLBoards(src, "custom.hcl")
	require.NoError(t, err)
	require.Len(t, boards, 1)

	b := boards[0]
	assert.False(t, b.GCSections)
	assert.Equal(t, EntryRelative, b.Capabilities.EntryPoint)
	assert.Equal(t, uint64(1024), b.PageSize)
	assert.Equal(t, []MemoryRegion{
		{Name: RegionROM, Origin: 0o2000, Length: 1 << 20},
		{Name: RegionRAM, Origin: 1, Length: 4 << 10},
	}, b.Regions)
	assert.Equal(t, uint64(0xffffffffff), b.Manifest.Timestamp)
}

func TestParseHCLBoards_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "unsupported arch",
			body:   `arch = "mips"`,
			errMsg: "Unsupported architecture",
		},
		{
			name: "bad entry point",
			body: `arch = "riscv"
  entry_point = "indirect"`,
			errMsg: "Invalid entry_point",
		},
		{
			name: "negative length",
			body: `arch = "riscv"
  region "rom" {
    origin = 0
    length = -4
  }`,
			errMsg: "non-negative whole number",
		},
		{
			name: "fractional size",
			body: `arch = "riscv"
  fragment ".text" {
    size = 1.5
  }`,
			errMsg: "non-negative whole number",
		},
		{
			name: "fractional region length",
			body: `arch = "riscv"
  region "ram" {
    origin = "0x10000000"
    length = 64 * KiB + 0.25
  }`,
			errMsg: "non-negative whole number",
		},
		{
			name: "address wider than 64 bits",
			body: `arch = "riscv"
  region "rom" {
    origin = 18446744073709551616
    length = 4
  }`,
			errMsg: "does not fit in 64 bits",
		},
		{
			name: "malformed address string",
			body: `arch = "riscv"
  region "rom" {
    origin = "0xZZ"
    length = 4
  }`,
			errMsg: "Invalid address or size",
		},
		{
			name: "wrong type",
			body: `arch = "riscv"
  page_size = true`,
			errMsg: "must be a number or a string",
		},
		{
			name: "identifier wider than 32 bits",
			body: `arch = "riscv"
  manifest_fields {
    identifier = "0x100000000"
  }`,
			errMsg: "fit in 32 bits",
		},
		{
			name: "unknown attribute",
			body: `arch = "riscv"
  flash = 4`,
			errMsg: "Unsupported argument",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := "board \"bad\" {\n  " + tc.body + "\n}\n"
			_, err := ParseHCLBoards([]byte(src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

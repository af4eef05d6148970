package kernlayout

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMarshalSymbols(t *testing.T) {
	l := buildBoard(t, "opentitan")

	b, err := l.MarshalSymbols()
	require.NoError(t, err)
	again, err := l.MarshalSymbols()
	require.NoError(t, err)
	assert.Equal(t, b, again, "encoding is deterministic")

	sf, err := UnmarshalSymbols(b)
	require.NoError(t, err)
	assert.Equal(t, "opentitan", sf.Board)
	assert.Equal(t, "riscv", sf.Arch)
	if diff := cmp.Diff(symbolMap(l), sf.Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalSymbols_Errors(t *testing.T) {
	noTable, err := structpb.NewStruct(map[string]any{"board": "x"})
	require.NoError(t, err)
	b, err := proto.Marshal(noTable)
	require.NoError(t, err)
	_, err = UnmarshalSymbols(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing symbol table")

	for _, addr := range []any{1024.0, "zz", "-0x4"} {
		badAddr, err := structpb.NewStruct(map[string]any{
			"symbols": map[string]any{"_stext": addr},
		})
		require.NoError(t, err)
		b, err = proto.Marshal(badAddr)
		require.NoError(t, err)
		_, err = UnmarshalSymbols(b)
		require.Error(t, err, "address %v", addr)
		assert.Contains(t, err.Error(), "_stext")
	}
}

func TestMarshalSymbols_WideAddresses(t *testing.T) {
	l := &Layout{Board: "wide", Arch: "riscv", Symbols: newSymbolTable()}
	l.Symbols.define(SymTextStart, 1<<60+1, 1)
	l.Symbols.define(SymTextEnd, 0xffffffffffffffff, 1)

	b, err := l.MarshalSymbols()
	require.NoError(t, err)
	sf, err := UnmarshalSymbols(b)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{
		SymTextStart: 1<<60 + 1,
		SymTextEnd:   0xffffffffffffffff,
	}, sf.Symbols)
}

func TestWriteJSON(t *testing.T) {
	l := buildBoard(t, "opentitan")

	var buf bytes.Buffer
	require.NoError(t, l.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"vma": "0x20000400"`)

	var got jsonLayout
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "opentitan", got.Board)
	assert.Equal(t, hexAddr(DefaultPageSize), got.PageSize)
	require.Len(t, got.Regions, 3)
	assert.Equal(t, jsonRegion{Name: RegionRAM, Origin: 0x10000650, Length: 0xf9b0}, got.Regions[0])

	var reloc *jsonSection
	for i := range got.Sections {
		if got.Sections[i].Name == ".relocate" {
			reloc = &got.Sections[i]
		}
	}
	require.NotNil(t, reloc)
	assert.Equal(t, RegionROM, reloc.LoadRegion)
	assert.Equal(t, hexAddr(0x20012a00), reloc.LMA)
	assert.Len(t, got.Symbols, l.Symbols.Len())
}

func TestHexAddr_UnmarshalJSON(t *testing.T) {
	var a hexAddr
	require.NoError(t, json.Unmarshal([]byte(`"0x1f"`), &a))
	assert.Equal(t, hexAddr(0x1f), a)
	assert.Error(t, json.Unmarshal([]byte(`"zz"`), &a))
	assert.Error(t, json.Unmarshal([]byte(`31`), &a))
}

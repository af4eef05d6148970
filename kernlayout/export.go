package kernlayout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type hexAddr uint64

func (a hexAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%#x", uint64(a)))
}

func (a *hexAddr) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return err
	}
	*a = hexAddr(n)
	return nil
}

type jsonRegion struct {
	Name   string  `json:"name"`
	Origin hexAddr `json:"origin"`
	Length hexAddr `json:"length"`
}

type jsonSection struct {
	Name       string  `json:"name"`
	Region     string  `json:"region"`
	LoadRegion string  `json:"loadRegion,omitempty"`
	VMA        hexAddr `json:"vma"`
	LMA        hexAddr `json:"lma"`
	Size       hexAddr `json:"size"`
	NoLoad     bool    `json:"noload,omitempty"`
}

type jsonSymbol struct {
	Name string  `json:"name"`
	Addr hexAddr `json:"addr"`
}

type jsonLayout struct {
	Board    string        `json:"board"`
	Arch     string        `json:"arch"`
	PageSize hexAddr       `json:"pageSize"`
	Regions  []jsonRegion  `json:"regions"`
	Sections []jsonSection `json:"sections"`
	Symbols  []jsonSymbol  `json:"symbols"`
}

// WriteJSON writes the regions, sections and symbols of l.
func (l *Layout) WriteJSON(w io.Writer) error {
	out := jsonLayout{
		Board:    l.Board,
		Arch:     l.Arch.String(),
		PageSize: hexAddr(l.PageSize),
	}
	for _, r := range l.Regions.Regions() {
		out.Regions = append(out.Regions, jsonRegion{Name: r.Name, Origin: hexAddr(r.Origin), Length: hexAddr(r.Length)})
	}
	for _, s := range l.Sections {
		out.Sections = append(out.Sections, jsonSection{
			Name:       s.Name,
			Region:     s.Region,
			LoadRegion: s.LoadRegion,
			VMA:        hexAddr(s.VMA),
			LMA:        hexAddr(s.LMA),
			Size:       hexAddr(s.Size),
			NoLoad:     s.NoLoad,
		})
	}
	for _, s := range l.Symbols.All() {
		out.Symbols = append(out.Symbols, jsonSymbol{Name: s.Name, Addr: hexAddr(s.Addr)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}

// SymbolFile is the decoded form of MarshalSymbols.
type SymbolFile struct {
	Board   string
	Arch    string
	Symbols map[string]uint64
}

// MarshalSymbols encodes the symbol table as a protobuf Struct:
// {"board": ..., "arch": ..., "symbols": {name: "0x..."}}. Addresses are
// hex strings since Struct numbers are doubles.
func (l *Layout) MarshalSymbols() ([]byte, error) {
	syms := make(map[string]any, l.Symbols.Len())
	for _, s := range l.Symbols.All() {
		syms[s.Name] = fmt.Sprintf("%#x", s.Addr)
	}
	st, err := structpb.NewStruct(map[string]any{
		"board":   l.Board,
		"arch":    l.Arch.String(),
		"symbols": syms,
	})
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(st)
}

func UnmarshalSymbols(b []byte) (*SymbolFile, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	fields := st.GetFields()
	syms := fields["symbols"].GetStructValue()
	if syms == nil {
		return nil, errors.New("symbols: missing symbol table")
	}
	out := &SymbolFile{
		Board:   fields["board"].GetStringValue(),
		Arch:    fields["arch"].GetStringValue(),
		Symbols: make(map[string]uint64, len(syms.GetFields())),
	}
	for name, v := range syms.GetFields() {
		str, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("symbols: %s is not an address", name)
		}
		n, err := strconv.ParseUint(str.StringValue, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("symbols: %s: %w", name, err)
		}
		out.Symbols[name] = n
	}
	return out, nil
}

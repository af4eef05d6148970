package kernlayout

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/q0jt/go-kernlayout/internal/ctxlog"
	"github.com/q0jt/go-kernlayout/kernlayout/config/arch"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

type hclRoot struct {
	Boards []*hclBoard `hcl:"board,block"`
}

type hclBoard struct {
	Name           string         `hcl:"name,label"`
	Arch           string         `hcl:"arch"`
	PageSize       hcl.Expression `hcl:"page_size,optional"`
	Manifest       bool           `hcl:"manifest,optional"`
	TrapVector     bool           `hcl:"trap_vector,optional"`
	EntryPoint     string         `hcl:"entry_point,optional"`
	GCSections     *bool          `hcl:"gc_sections,optional"`
	Regions        []*hclRegion   `hcl:"region,block"`
	Reserve        *hclReserve    `hcl:"reserve,block"`
	ManifestFields *hclManifest   `hcl:"manifest_fields,block"`
	Fragments      []*hclFragment `hcl:"fragment,block"`
}

type hclRegion struct {
	Name   string         `hcl:"name,label"`
	Origin hcl.Expression `hcl:"origin"`
	Length hcl.Expression `hcl:"length"`
}

type hclReserve struct {
	ProgLength hcl.Expression `hcl:"prog_length,optional"`
	RAMOffset  hcl.Expression `hcl:"ram_offset,optional"`
}

type hclManifest struct {
	Identifier         hcl.Expression `hcl:"identifier,optional"`
	VersionMajor       hcl.Expression `hcl:"version_major,optional"`
	VersionMinor       hcl.Expression `hcl:"version_minor,optional"`
	SecurityVersion    hcl.Expression `hcl:"security_version,optional"`
	Timestamp          hcl.Expression `hcl:"timestamp,optional"`
	AddressTranslation hcl.Expression `hcl:"address_translation,optional"`
	MaxKeyVersion      hcl.Expression `hcl:"max_key_version,optional"`
}

type hclFragment struct {
	Name         string         `hcl:"name,label"`
	Object       string         `hcl:"object,optional"`
	Size         hcl.Expression `hcl:"size"`
	Align        hcl.Expression `hcl:"align,optional"`
	Unreferenced bool           `hcl:"unreferenced,optional"`
}

// hclEvalContext lets board files write sizes as 64 * KiB and addresses
// as "0x20000000" or parseint("20000000", 16).
func hclEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"KiB": cty.NumberIntVal(1 << 10),
			"MiB": cty.NumberIntVal(1 << 20),
		},
		Functions: map[string]function.Function{
			"parseint": stdlib.ParseIntFunc,
			"max":      stdlib.MaxFunc,
			"min":      stdlib.MinFunc,
		},
	}
}

// LoadHCLBoards reads every board block found in the given files and
// directories.
func LoadHCLBoards(ctx context.Context, paths ...string) ([]*Board, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL board files.", "count", len(files))

	parser := hclparse.NewParser()
	var boards []*Board
	seen := map[string]string{}
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		bs, err := decodeHCLBoards(f.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		for _, b := range bs {
			if prev, ok := seen[b.Name]; ok {
				return nil, fmt.Errorf("%w: board %q defined in %s and %s", ErrConfig, b.Name, prev, file)
			}
			seen[b.Name] = file
		}
		boards = append(boards, bs...)
	}
	logger.Debug("HCL boards loaded.", "boards", len(boards))
	return boards, nil
}

// ParseHCLBoards decodes board blocks from src.
func ParseHCLBoards(src []byte, filename string) ([]*Board, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decodeHCLBoards(f.Body)
}

func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func decodeHCLBoards(body hcl.Body) ([]*Board, error) {
	ectx := hclEvalContext()
	var root hclRoot
	if diags := gohcl.DecodeBody(body, ectx, &root); diags.HasErrors() {
		return nil, diags
	}
	var boards []*Board
	for _, hb := range root.Boards {
		b, diags := hb.board(ectx)
		if diags.HasErrors() {
			return nil, diags
		}
		boards = append(boards, b)
	}
	return boards, nil
}

func (hb *hclBoard) board(ectx *hcl.EvalContext) (*Board, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	b := &Board{
		Name:       hb.Name,
		GCSections: true,
		Capabilities: Capabilities{
			Manifest:   hb.Manifest,
			TrapVector: hb.TrapVector,
		},
	}
	if hb.GCSections != nil {
		b.GCSections = *hb.GCSections
	}
	var a arch.Arch
	if err := a.UnmarshalBinary([]byte(hb.Arch)); err != nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported architecture",
			Detail:   err.Error(),
		})
	}
	b.Arch = a

	switch hb.EntryPoint {
	case "", "absolute":
	case "relative":
		b.Capabilities.EntryPoint = EntryRelative
	default:
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid entry_point",
			Detail:   `entry_point must be "absolute" or "relative".`,
		})
	}

	b.PageSize, diags = evalUint(hb.PageSize, ectx, diags)
	for _, r := range hb.Regions {
		region := MemoryRegion{Name: r.Name}
		region.Origin, diags = evalUint(r.Origin, ectx, diags)
		region.Length, diags = evalUint(r.Length, ectx, diags)
		b.Regions = append(b.Regions, region)
	}
	if hb.Reserve != nil {
		b.Reservation = &Reservation{}
		b.Reservation.ProgLength, diags = evalUint(hb.Reserve.ProgLength, ectx, diags)
		b.Reservation.RAMOffset, diags = evalUint(hb.Reserve.RAMOffset, ectx, diags)
	}
	if m := hb.ManifestFields; m != nil {
		b.Manifest.Identifier, diags = evalUint32(m.Identifier, ectx, diags)
		b.Manifest.VersionMajor, diags = evalUint32(m.VersionMajor, ectx, diags)
		b.Manifest.VersionMinor, diags = evalUint32(m.VersionMinor, ectx, diags)
		b.Manifest.SecurityVersion, diags = evalUint32(m.SecurityVersion, ectx, diags)
		b.Manifest.Timestamp, diags = evalUint(m.Timestamp, ectx, diags)
		b.Manifest.AddressTranslation, diags = evalUint32(m.AddressTranslation, ectx, diags)
		b.Manifest.MaxKeyVersion, diags = evalUint32(m.MaxKeyVersion, ectx, diags)
	}
	for _, f := range hb.Fragments {
		frag := Fragment{Name: f.Name, Object: f.Object, Unreferenced: f.Unreferenced}
		frag.Size, diags = evalUint(f.Size, ectx, diags)
		frag.Align, diags = evalUint(f.Align, ectx, diags)
		b.Fragments = append(b.Fragments, frag)
	}
	return b, diags
}

// exprDefined reports whether expr was written in the source. Omitted
// optional attributes decode to zero-width placeholder expressions.
func exprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

// evalUint evaluates an address or size. Numbers must be whole and
// non-negative; strings are parsed with their base prefix (0x, 0o, 0b).
func evalUint(expr hcl.Expression, ectx *hcl.EvalContext, diags hcl.Diagnostics) (uint64, hcl.Diagnostics) {
	if !exprDefined(expr) {
		return 0, diags
	}
	v, d := expr.Value(ectx)
	diags = append(diags, d...)
	if d.HasErrors() || v.IsNull() {
		return 0, diags
	}
	bad := func(detail string) (uint64, hcl.Diagnostics) {
		rng := expr.Range()
		return 0, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid address or size",
			Detail:   detail,
			Subject:  &rng,
		})
	}
	switch v.Type() {
	case cty.String:
		n, err := strconv.ParseUint(v.AsString(), 0, 64)
		if err != nil {
			return bad(err.Error())
		}
		return n, diags
	case cty.Number:
		bf := v.AsBigFloat()
		if !bf.IsInt() || bf.Sign() < 0 {
			return bad("The value must be a non-negative whole number.")
		}
		n, acc := bf.Uint64()
		if acc != big.Exact {
			return bad("The value does not fit in 64 bits.")
		}
		return n, diags
	}
	return bad("The value must be a number or a string.")
}

func evalUint32(expr hcl.Expression, ectx *hcl.EvalContext, diags hcl.Diagnostics) (uint32, hcl.Diagnostics) {
	n, diags := evalUint(expr, ectx, diags)
	if n > math.MaxUint32 {
		rng := expr.Range()
		return 0, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Value out of range",
			Detail:   "The value must fit in 32 bits.",
			Subject:  &rng,
		})
	}
	return uint32(n), diags
}

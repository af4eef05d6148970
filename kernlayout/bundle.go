package kernlayout

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

const (
	bundleIndexName  = "manifest.json"
	bundleSymbols    = "symbols.pb"
	bundleImage      = "image.hex"
	bundleScript     = "layout.ld"
	bundleLayoutJSON = "layout.json"
)

var ErrBundleDigest = errors.New("bundle file digest mismatch")

type BundleContents struct {
	Layout BundleLayout `json:"layout"`
}

type BundleLayout struct {
	Board       string            `json:"board"`
	Arch        string            `json:"arch"`
	Manifest    hexAddr           `json:"manifest,omitempty"`
	SymbolsFile string            `json:"symbols_file"`
	HexFile     string            `json:"hex_file"`
	ScriptFile  string            `json:"script_file"`
	LayoutFile  string            `json:"layout_file"`
	Digests     map[string]string `json:"sha256"`
}

func sha256Sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// WriteBundle writes a zip with the symbol table, Intel HEX image,
// linker script and JSON map of l, indexed by manifest.json.
func (l *Layout) WriteBundle(w io.Writer) error {
	files := map[string]func(io.Writer) error{
		bundleSymbols: func(w io.Writer) error {
			b, err := l.MarshalSymbols()
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		},
		bundleImage:      l.WriteHex,
		bundleScript:     l.WriteLinkerScript,
		bundleLayoutJSON: l.WriteJSON,
	}
	contents := BundleContents{Layout: BundleLayout{
		Board:       l.Board,
		Arch:        l.Arch.String(),
		Manifest:    hexAddr(l.Symbols.Addr(SymManifest)),
		SymbolsFile: bundleSymbols,
		HexFile:     bundleImage,
		ScriptFile:  bundleScript,
		LayoutFile:  bundleLayoutJSON,
		Digests:     map[string]string{},
	}}

	zw := zip.NewWriter(w)
	for _, name := range []string{bundleSymbols, bundleImage, bundleScript, bundleLayoutJSON} {
		var buf bytes.Buffer
		if err := files[name](&buf); err != nil {
			return fmt.Errorf("bundle: %s: %w", name, err)
		}
		contents.Layout.Digests[name] = hex.EncodeToString(sha256Sum(buf.Bytes()))
		if err := writeZipFile(zw, name, buf.Bytes()); err != nil {
			return err
		}
	}
	index, err := json.MarshalIndent(&contents, "", "  ")
	if err != nil {
		return err
	}
	if err := writeZipFile(zw, bundleIndexName, index); err != nil {
		return err
	}
	return zw.Close()
}

func writeZipFile(zw *zip.Writer, name string, b []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	return err
}

// BundleInfo is what OpenBundle recovers from a bundle.
type BundleInfo struct {
	Contents *BundleContents
	Symbols  *SymbolFile
	Manifest *Manifest
}

// OpenBundle reads a bundle written by WriteBundle and checks the
// digest of every listed file.
func OpenBundle(name string) (*BundleInfo, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readBundle(r)
}

// ReadBundle is OpenBundle for a bundle already in memory.
func ReadBundle(b []byte) (*BundleInfo, error) {
	r, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}
	return readBundle(r)
}

func readBundle(fsys fs.FS) (*BundleInfo, error) {
	f, err := fsys.Open(bundleIndexName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	contents, err := parseBundleIndex(f)
	if err != nil {
		return nil, err
	}
	for name, digest := range contents.Layout.Digests {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		if hex.EncodeToString(sha256Sum(b)) != digest {
			return nil, fmt.Errorf("%w: %s", ErrBundleDigest, name)
		}
	}
	b, err := fs.ReadFile(fsys, contents.Layout.SymbolsFile)
	if err != nil {
		return nil, err
	}
	syms, err := UnmarshalSymbols(b)
	if err != nil {
		return nil, err
	}
	info := &BundleInfo{Contents: contents, Symbols: syms}
	if _, ok := syms.Symbols[SymManifest]; ok {
		img, err := fsys.Open(contents.Layout.HexFile)
		if err != nil {
			return nil, err
		}
		defer img.Close()
		info.Manifest, err = ReadManifestHex(img, uint64(contents.Layout.Manifest))
		if err != nil {
			return nil, err
		}
	}
	return info, nil
}

func parseBundleIndex(f fs.File) (*BundleContents, error) {
	var contents BundleContents
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(&contents); err != nil {
		return nil, err
	}
	return &contents, nil
}

// WriteBundleFile writes the bundle of l to name.
func (l *Layout) WriteBundleFile(name string) error {
	var buf bytes.Buffer
	if err := l.WriteBundle(&buf); err != nil {
		return err
	}
	return os.WriteFile(name, buf.Bytes(), 0666)
}

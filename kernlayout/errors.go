package kernlayout

import "errors"

var (
	ErrConfig         = errors.New("invalid board configuration")
	ErrUnknownBoard   = errors.New("board is not registered")
	ErrROMExhausted   = errors.New("text plus relocations exceeds the available ROM space")
	ErrManifestOrder  = errors.New("kernel text must start after the manifest")
	ErrRegionOverflow = errors.New("section does not fit in its memory region")
	ErrSymbolOrder    = errors.New("boundary symbol pair is out of order")
)

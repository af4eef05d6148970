package kernlayout

import (
	"context"
	"fmt"
	"slices"

	"github.com/q0jt/go-kernlayout/kernlayout/config"
)

// DefaultConfigPath is the Pkl board set shipped with the module.
const DefaultConfigPath = "./pkl/config.pkl"

func loadBoardConfig(ctx context.Context, path string) (*config.BoardConfig, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	conf, err := config.LoadFromPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadBoards evaluates the Pkl board set at path.
func LoadBoards(ctx context.Context, path string) ([]*Board, error) {
	conf, err := loadBoardConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(conf.Boards))
	for name := range conf.Boards {
		names = append(names, name)
	}
	slices.Sort(names)
	boards := make([]*Board, 0, len(names))
	for _, name := range names {
		b, err := BoardFromConfig(name, conf.Boards[name])
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// FindBoard loads the Pkl board set at path and returns the board called name.
func FindBoard(ctx context.Context, path, name string) (*Board, error) {
	conf, err := loadBoardConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	return findBoard(conf, name)
}

func findBoard(conf *config.BoardConfig, name string) (*Board, error) {
	for board, desc := range conf.Boards {
		if board != name {
			continue
		}
		return BoardFromConfig(board, desc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, name)
}

// BoardFromConfig converts an evaluated Pkl descriptor into a Board.
func BoardFromConfig(name string, desc *config.BoardDescriptor) (*Board, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: board %q has no descriptor", ErrConfig, name)
	}
	b := &Board{
		Name:       name,
		Arch:       desc.Arch,
		GCSections: desc.GcSections,
		Capabilities: Capabilities{
			Manifest:   desc.Manifest,
			TrapVector: desc.TrapVector,
		},
	}
	if desc.EntryPointRelative {
		b.Capabilities.EntryPoint = EntryRelative
	}
	if desc.PageSize != nil {
		b.PageSize = uint64(*desc.PageSize)
	}
	for _, r := range desc.Regions {
		if r == nil {
			continue
		}
		b.Regions = append(b.Regions, MemoryRegion{
			Name:   r.Name,
			Origin: uint64(r.Origin),
			Length: uint64(r.Length),
		})
	}
	if res := desc.Reservation; res != nil {
		b.Reservation = &Reservation{RAMOffset: uint64(res.RamOffset)}
		if res.ProgLength != nil {
			b.Reservation.ProgLength = uint64(*res.ProgLength)
		}
	}
	if mf := desc.ManifestFields; mf != nil {
		b.Manifest = ManifestFields{
			Identifier:         mf.Identifier,
			VersionMajor:       mf.VersionMajor,
			VersionMinor:       mf.VersionMinor,
			SecurityVersion:    mf.SecurityVersion,
			Timestamp:          uint64(mf.Timestamp),
			AddressTranslation: mf.AddressTranslation,
			MaxKeyVersion:      mf.MaxKeyVersion,
		}
	}
	for _, f := range desc.Fragments {
		if f == nil {
			continue
		}
		frag := Fragment{
			Name:         f.Name,
			Size:         uint64(f.Size),
			Align:        uint64(f.Align),
			Unreferenced: f.Unreferenced,
		}
		if f.Object != nil {
			frag.Object = *f.Object
		}
		b.Fragments = append(b.Fragments, frag)
	}
	return b, nil
}

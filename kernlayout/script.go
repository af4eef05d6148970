package kernlayout

import (
	"fmt"
	"io"
	"text/tabwriter"
	"text/template"
)

var scriptTmpl = template.Must(template.New("layout.ld").Funcs(template.FuncMap{
	"hex":  func(v uint64) string { return fmt.Sprintf("%#x", v) },
	"perm": regionPerm,
}).Parse(`/* Memory layout for board {{.Board}} ({{.Arch}}). Generated, do not edit. */

PAGE_SIZE = {{hex .PageSize}};

MEMORY
{
{{- range .Regions.Regions}}
  {{.Name}} ({{perm .}}) : ORIGIN = {{hex .Origin}}, LENGTH = {{hex .Length}}
{{- end}}
}

{{range .Symbols.All -}}
PROVIDE({{.Name}} = {{hex .Addr}});
{{end}}
ASSERT((_etext - _stext) + (_erelocate - _srelocate) < LENGTH(rom),
       "Text plus relocations exceeds the available ROM space.");
{{- if .Capabilities.Manifest}}
ASSERT(_stext - _manifest >= {{.ManifestSize}},
       "The kernel text must start after the manifest.");
{{- end}}
`))

func regionPerm(r MemoryRegion) string {
	p := "r"
	if r.Attrs.Writable {
		p += "w"
	}
	if r.Attrs.Executable {
		p += "x"
	}
	return p
}

// WriteLinkerScript writes the regions and symbols of l as a GNU ld
// script fragment, together with the build assertions.
func (l *Layout) WriteLinkerScript(w io.Writer) error {
	return scriptTmpl.Execute(w, struct {
		*Layout
		ManifestSize int
	}{l, ManifestSize})
}

// WriteText writes a human-readable map of l.
func (l *Layout) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "board\t%s\t%s\tpage %#x\n\n", l.Board, l.Arch, l.PageSize)
	fmt.Fprintln(tw, "REGION\tORIGIN\tLENGTH\t")
	for _, r := range l.Regions.Regions() {
		fmt.Fprintf(tw, "%s\t%#x\t%#x\t\n", r.Name, r.Origin, r.Length)
	}
	fmt.Fprintln(tw, "\nSECTION\tREGION\tVMA\tLMA\tSIZE\t")
	for _, s := range l.Sections {
		region := s.Region
		if s.LoadRegion != "" {
			region += " AT> " + s.LoadRegion
		}
		fmt.Fprintf(tw, "%s\t%s\t%#x\t%#x\t%#x\t\n", s.Name, region, s.VMA, s.LMA, s.Size)
	}
	fmt.Fprintln(tw, "\nSYMBOL\tADDRESS\t")
	for _, s := range l.Symbols.All() {
		fmt.Fprintf(tw, "%s\t%#x\t\n", s.Name, s.Addr)
	}
	for _, f := range l.Orphans {
		fmt.Fprintf(tw, "orphan\t%s\t%#x\t\n", f, f.Size)
	}
	return tw.Flush()
}

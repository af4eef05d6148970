package kernlayout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLinkerScript(t *testing.T) {
	t.Run("manifest board", func(t *testing.T) {
		l := buildBoard(t, "opentitan")
		var buf bytes.Buffer
		require.NoError(t, l.WriteLinkerScript(&buf))
		out := buf.String()

		assert.Contains(t, out, "PAGE_SIZE = 0x200;")
		assert.Contains(t, out, "rom (rx) : ORIGIN = 0x20000000, LENGTH = 0x60000")
		assert.Contains(t, out, "ram (rw) : ORIGIN = 0x10000650, LENGTH = 0xf9b0")
		assert.Contains(t, out, "prog (rx) : ORIGIN = 0x20060000, LENGTH = 0x30000")
		assert.Contains(t, out, "PROVIDE(_stext = 0x20000400);")
		assert.Contains(t, out, "PROVIDE(_eappmem = 0x10010000);")
		assert.Contains(t, out, "PROVIDE(__global_pointer$ = 0x10001e50);")
		assert.Contains(t, out, "LENGTH(rom)")
		assert.Contains(t, out, "ASSERT(_stext - _manifest >= 1024,")
	})

	t.Run("plain board", func(t *testing.T) {
		l := buildBoard(t, "imix")
		var buf bytes.Buffer
		require.NoError(t, l.WriteLinkerScript(&buf))
		out := buf.String()

		assert.Contains(t, out, "PROVIDE(_sapps = 0x40000);")
		assert.NotContains(t, out, "_manifest")
		assert.NotContains(t, out, "__global_pointer$")
	})
}

func TestWriteText(t *testing.T) {
	l := buildBoard(t, "opentitan")
	var buf bytes.Buffer
	require.NoError(t, l.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "opentitan")
	assert.Contains(t, out, "ram AT> rom")
	assert.Contains(t, out, "kernel.o(.weird)")
	assert.Contains(t, out, "0x20012a00")
}

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantConfig *Config
		wantExit   bool
		errMsg     string
	}{
		{
			name: "board as positional argument",
			args: []string{"opentitan"},
			wantConfig: &Config{
				ConfigPath: "./pkl/config.pkl",
				Board:      "opentitan",
				Format:     "text",
				LogFormat:  "text",
				LogLevel:   "info",
			},
		},
		{
			name: "all flags",
			args: []string{
				"-config", "boards/", "-board", "imix", "-format", "JSON",
				"-o", "layout.json", "-hex", "image.hex", "-bundle", "out.zip",
				"-elf", "a.o", "-elf", "b.o", "-log-format", "json", "-log-level", "DEBUG",
			},
			wantConfig: &Config{
				ConfigPath: "boards/",
				Board:      "imix",
				Objects:    []string{"a.o", "b.o"},
				Format:     "json",
				OutPath:    "layout.json",
				HexPath:    "image.hex",
				BundlePath: "out.zip",
				LogFormat:  "json",
				LogLevel:   "debug",
			},
		},
		{
			name: "list without board",
			args: []string{"-list"},
			wantConfig: &Config{
				ConfigPath: "./pkl/config.pkl",
				Format:     "text",
				List:       true,
				LogFormat:  "text",
				LogLevel:   "info",
			},
		},
		{
			name:     "no board prints usage",
			args:     []string{},
			wantExit: true,
		},
		{
			name:     "help",
			args:     []string{"-h"},
			wantExit: true,
		},
		{
			name:   "unknown flag",
			args:   []string{"-nope"},
			errMsg: "flag provided but not defined: -nope",
		},
		{
			name:   "bad format",
			args:   []string{"-format", "yaml", "imix"},
			errMsg: `invalid format "yaml"`,
		},
		{
			name:   "bad log format",
			args:   []string{"-log-format", "xml", "imix"},
			errMsg: "invalid log-format",
		},
		{
			name:   "bad log level",
			args:   []string{"-log-level", "trace", "imix"},
			errMsg: "invalid log-level",
		},
		{
			name:   "empty config path",
			args:   []string{"-config", "", "imix"},
			errMsg: "a board configuration path is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, shouldExit, err := Parse(tc.args, &out)
			if tc.errMsg != "" {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, 2, exitErr.Code)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, shouldExit)
			if tc.wantExit {
				assert.Nil(t, cfg)
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.wantConfig, cfg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "board", "imix")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"board":"imix"`)

	buf.Reset()
	NewLogger("debug", "text", &buf).Debug("details")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.True(t, NewLogger("error", "text", &buf).Enabled(context.Background(), slog.LevelError))
}

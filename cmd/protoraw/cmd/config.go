package cmd

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/anirudhraja/protoraw/wire"
)

// fileConfig is the protoraw.toml key mapping.
type fileConfig struct {
	MaxDepth  int      `toml:"max_depth"`
	MaxLength uint64   `toml:"max_length"`
	Format    string   `toml:"format"`
	ProtoDirs []string `toml:"proto_dirs"`
}

// settings is the effective CLI configuration: defaults, then the config
// file, then flags.
type settings struct {
	Wire      wire.Config
	Format    string
	ProtoDirs []string
}

func defaultSettings() settings {
	return settings{Wire: wire.DefaultConfig(), Format: formatText}
}

// loadConfigFile overlays the keys present in path onto s.
func loadConfigFile(path string, s settings) (settings, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("max_depth") {
		if raw.MaxDepth < 0 {
			return settings{}, fmt.Errorf("load config: max_depth must not be negative")
		}
		s.Wire.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("max_length") {
		s.Wire.MaxLength = raw.MaxLength
	}
	if meta.IsDefined("format") {
		s.Format = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("proto_dirs") {
		s.ProtoDirs = raw.ProtoDirs
	}
	return s, nil
}

// resolveSettings builds the settings for one command invocation.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	s := defaultSettings()

	flags := cmd.Flags()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		if s, err = loadConfigFile(path, s); err != nil {
			return settings{}, err
		}
	}

	if flags.Changed("max-depth") {
		s.Wire.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("max-length") {
		s.Wire.MaxLength, _ = flags.GetUint64("max-length")
	}
	if flags.Changed("proto-path") {
		s.ProtoDirs, _ = flags.GetStringSlice("proto-path")
	}
	if f := flags.Lookup("format"); f != nil && f.Changed {
		s.Format = f.Value.String()
	}

	switch s.Format {
	case formatText, formatJSON:
	default:
		return settings{}, fmt.Errorf("unknown format %q, want %s or %s", s.Format, formatText, formatJSON)
	}
	if s.Wire.MaxDepth < 0 {
		return settings{}, fmt.Errorf("max-depth must not be negative")
	}
	return s, nil
}

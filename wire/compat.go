package wire

import (
	"os"
	"strconv"
)

// DefaultMaxDepth bounds group and submessage nesting unless configured otherwise.
const DefaultMaxDepth = 100

// Config controls decoder limits.
type Config struct {
	// MaxDepth caps nested group depth during DecodeMessage and LEN
	// submessage depth in Value.AsMessage. Zero disables the check.
	MaxDepth int

	// MaxLength caps a single length-delimited payload. The check runs
	// before any allocation. Zero disables the check.
	MaxLength uint64

	// CopyBytes copies LEN payloads out of the input. When false, decoded
	// byte values alias the caller's buffer (slice sources only).
	CopyBytes bool
}

// DefaultConfig is the configuration used by NewDecoder and the package-level
// decode functions.
func DefaultConfig() Config {
	return config
}

var config = Config{
	MaxDepth:  DefaultMaxDepth,
	CopyBytes: true,
}

// SetConfig sets the global wire configuration.
func SetConfig(c Config) { config = c }

func init() {
	// Optional env toggles for test harnesses and the CLI.
	if v, err := strconv.Atoi(os.Getenv("PROTORAW_MAX_DEPTH")); err == nil && v >= 0 {
		config.MaxDepth = v
	}
	if v, err := strconv.ParseUint(os.Getenv("PROTORAW_MAX_LENGTH"), 10, 64); err == nil {
		config.MaxLength = v
	}
	if v := os.Getenv("PROTORAW_NO_COPY"); v == "1" || v == "true" {
		config.CopyBytes = false
	}
}

// Package logging builds the process logger shared by the zkhost binaries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Environment overrides, applied when the matching option is unset.
const (
	EnvLevel  = "ZKHOST_LOG_LEVEL"
	EnvJSON   = "ZKHOST_LOG_JSON"
	EnvNoTime = "ZKHOST_LOG_NOTIME"
)

type Options struct {
	// Level is a zerolog level name; empty uses $ZKHOST_LOG_LEVEL, then "info".
	Level string
	// JSON selects structured output instead of the console writer.
	JSON bool
	// NoTime drops timestamps, mostly for golden output in tests.
	NoTime bool
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (zerolog.Logger, error) {
	level := opts.Level
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), err
	}

	json := opts.JSON || envBool(EnvJSON)
	noTime := opts.NoTime || envBool(EnvNoTime)

	out := w
	if !json {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05.000"}
	}
	ctx := zerolog.New(out).Level(lvl).With()
	if !noTime {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger(), nil
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Package config loads the dispatcher host's environment-driven settings:
// where the proof-checker executable lives, where diagnostic logs go, and
// per-connection timeouts. It follows the tiered-prefix env lookup the
// teacher's LLM client uses for multi-tier credentials, applied here to a
// single AGDA_ prefix with shared fallbacks.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/agda-dispatch needs to wire a Dispatcher.
type Config struct {
	// AgdaExecutable is the path to the Agda executable (or a wrapper
	// script), from AGDA_EXECUTABLE. The in-memory reference connection
	// does not start a process and does not read it.
	AgdaExecutable string
	// LogPath is the file cmd/agda-dispatch sends the standard log output
	// to. Empty means debug.log under the user's cache directory.
	LogPath string
	// RequestTimeout is the per-request timeout from AGDA_REQUEST_TIMEOUT,
	// in whole seconds. The dispatcher and bridge do not apply it: a
	// request runs until its stream stops.
	RequestTimeout time.Duration
	// Verbose is true when AGDA_VERBOSE is "true". DEBUG lines are
	// published whatever its value.
	Verbose bool
}

const defaultRequestTimeout = 30 * time.Second

// Load reads .env (if present; a missing file is not an error, mirroring
// the teacher's startup sequence) and then the process environment under
// the AGDA_ prefix.
func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AgdaExecutable: get("EXECUTABLE", ""),
		LogPath:        get("LOG_PATH", ""),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", defaultRequestTimeout),
		Verbose:        get("VERBOSE", "") == "true",
	}
}

func get(suffix, def string) string {
	if v := os.Getenv("AGDA_" + suffix); v != "" {
		return v
	}
	return def
}

func getDuration(suffix string, def time.Duration) time.Duration {
	raw := get(suffix, "")
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}

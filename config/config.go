// Package config holds toolkit-wide tunables with environment-variable
// overrides and sane defaults, following the teacher's misc.go
// Config/GetConfig/intFromEnvDefault idiom.
package config

import (
	"os"
	"strconv"
)

// StrictMode selects how the reader and writer resolve non-conformant
// input, per the resolution table in §4.3 of the toolkit's design.
type StrictMode int

const (
	Strict StrictMode = iota
	Lenient
	Permissive
)

func (m StrictMode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	case Permissive:
		return "permissive"
	default:
		return "unknown"
	}
}

// LargeElementHandling selects the policy applied to elements whose
// declared length exceeds Config.LargeElementThreshold.
type LargeElementHandling int

const (
	LoadInMemory LargeElementHandling = iota
	LazyLoad
	Skip
	Callback
)

// PreamblePolicy selects how the top-level 128-byte preamble and magic
// prefix are handled.
type PreamblePolicy int

const (
	RequirePreamble PreamblePolicy = iota
	OptionalPreamble
	IgnorePreamble
)

// Config is the toolkit's tunable parameter set.
type Config struct {
	// BufferSize is the default read-buffer size used by the async driver.
	BufferSize int
	// Strict selects the non-conformance resolution policy.
	Strict StrictMode
	// MaxOpenFiles is loaded from OPENDCM_MAX_OPEN_FILES; no package in
	// this module reads it, so it does not limit open lazy-pixel-source
	// file handles.
	MaxOpenFiles int
	// MaxNestingDepth bounds sequence/item stack depth (invariant I5).
	MaxNestingDepth int
	// LargeElementThreshold is the byte length above which
	// LargeElementHandling applies.
	LargeElementThreshold int64
	// LargeElementHandling selects how oversized elements are handled.
	LargeElementHandling LargeElementHandling
	// Preamble selects how the top-level file wrapper is handled.
	Preamble PreamblePolicy
	// CancelCheckInterval is how many elements the async driver processes
	// between cancellation checks (in addition to checking between every
	// reader invocation).
	CancelCheckInterval int
}

// Default returns the toolkit's baseline configuration before any
// environment overrides are applied.
func Default() Config {
	return Config{
		BufferSize:            64 * 1024,
		Strict:                Lenient,
		MaxOpenFiles:          64,
		MaxNestingDepth:       50,
		LargeElementThreshold: 1 << 20,
		LargeElementHandling:  LoadInMemory,
		Preamble:              OptionalPreamble,
		CancelCheckInterval:   1000,
	}
}

// FromEnv returns Default() with any recognised OPENDCM_* environment
// variables applied on top.
func FromEnv() Config {
	c := Default()
	c.BufferSize = intFromEnvDefault("OPENDCM_BUFFER_SIZE", c.BufferSize)
	c.MaxOpenFiles = intFromEnvDefault("OPENDCM_MAX_OPEN_FILES", c.MaxOpenFiles)
	c.MaxNestingDepth = intFromEnvDefault("OPENDCM_MAX_NESTING_DEPTH", c.MaxNestingDepth)
	c.LargeElementThreshold = int64(intFromEnvDefault("OPENDCM_LARGE_ELEMENT_THRESHOLD", int(c.LargeElementThreshold)))
	c.CancelCheckInterval = intFromEnvDefault("OPENDCM_CANCEL_CHECK_INTERVAL", c.CancelCheckInterval)

	switch os.Getenv("OPENDCM_STRICT_MODE") {
	case "strict":
		c.Strict = Strict
	case "lenient":
		c.Strict = Lenient
	case "permissive":
		c.Strict = Permissive
	}
	return c
}

func intFromEnvDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

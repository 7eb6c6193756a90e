// Package manifest handles hissy.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "hissy.toml"

// Manifest represents a hissy.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Build   BuildConfig `toml:"build"`
	VM      VMConfig    `toml:"vm"`

	// Dir is the directory containing the hissy.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// BuildConfig configures compilation output.
type BuildConfig struct {
	// Strip omits debug symbols from compiled artifacts.
	Strip bool `toml:"strip"`
	// Output is where compiled artifacts are written, relative to Dir.
	Output string `toml:"output"`
	// Cache points at the compile-cache database; empty falls back to the
	// user-level cache.
	Cache string `toml:"cache"`
}

// VMConfig configures execution.
type VMConfig struct {
	MaxFrames int  `toml:"max-frames"`
	Trace     bool `toml:"trace"`
}

// Load parses a hissy.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a hissy.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the configuration used when no manifest is present.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Build.Output == "" {
		m.Build.Output = "build"
	}
	if m.VM.MaxFrames <= 0 {
		m.VM.MaxFrames = 256
	}
}

// OutputDir returns the absolute artifact output directory.
func (m *Manifest) OutputDir() string {
	if m.Dir == "" {
		return m.Build.Output
	}
	return filepath.Join(m.Dir, m.Build.Output)
}

// CachePath returns the absolute compile-cache database path, or "" when the
// manifest leaves the location to the user-level default.
func (m *Manifest) CachePath() string {
	if m.Build.Cache == "" {
		return ""
	}
	if m.Dir == "" {
		return m.Build.Cache
	}
	return filepath.Join(m.Dir, m.Build.Cache)
}

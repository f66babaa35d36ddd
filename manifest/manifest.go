// Package manifest handles fe.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/fe/vm"
)

// FileName is the name of the project configuration file.
const FileName = "fe.toml"

// Manifest represents an fe.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Machine MachineConfig `toml:"machine"`
	Output  OutputConfig  `toml:"output"`

	// Dir is the directory containing the fe.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"` // source file run when none is given
}

// MachineConfig sizes the virtual machine. Zero fields take the defaults.
type MachineConfig struct {
	StackSize  int `toml:"stack-size"`
	MemorySize int `toml:"memory-size"`
	GlobalBase int `toml:"global-base"`
	LocalBase  int `toml:"local-base"`
	HeapBase   int `toml:"heap-base"`
}

// OutputConfig selects what the driver prints besides the result.
type OutputConfig struct {
	Listing     bool `toml:"listing"`
	Fingerprint bool `toml:"fingerprint"`
}

// Default returns the manifest used when no fe.toml is found.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses an fe.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates fe.toml contents.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}

	m.applyDefaults()
	if _, err := m.Layout(); err != nil {
		return nil, err
	}
	if m.Machine.StackSize < 0 {
		return nil, fmt.Errorf("stack-size %d is negative", m.Machine.StackSize)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	mc := &m.Machine
	if mc.StackSize == 0 {
		mc.StackSize = vm.DefaultStackSize
	}
	if mc.MemorySize == 0 {
		mc.MemorySize = vm.DefaultMemorySize
	}
	if mc.GlobalBase == 0 {
		mc.GlobalBase = vm.DefaultGlobalBase
	}
	if mc.LocalBase == 0 {
		mc.LocalBase = vm.DefaultLocalBase
	}
	if mc.HeapBase == 0 {
		mc.HeapBase = vm.DefaultHeapBase
	}
}

// FindAndLoad walks up from startDir to find an fe.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
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

// Layout returns the memory partition, checking region order.
func (m *Manifest) Layout() (vm.Layout, error) {
	l := vm.Layout{
		Size:       m.Machine.MemorySize,
		GlobalBase: m.Machine.GlobalBase,
		LocalBase:  m.Machine.LocalBase,
		HeapBase:   m.Machine.HeapBase,
	}
	if err := l.Validate(); err != nil {
		return vm.Layout{}, err
	}
	return l, nil
}

// StackSize returns the evaluation stack capacity in words.
func (m *Manifest) StackSize() int {
	return m.Machine.StackSize
}

// MachineConfig returns the configuration for a new machine.
func (m *Manifest) MachineConfig() (vm.Config, error) {
	l, err := m.Layout()
	if err != nil {
		return vm.Config{}, err
	}
	return vm.Config{Layout: l, StackSize: m.StackSize()}, nil
}

// EntryPath returns the absolute path of the project entry file, or "" if
// none is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// LockFile records the fingerprint of the last build of each source file,
// so a rebuild can tell whether the generated program changed.
type LockFile struct {
	Builds []LockedBuild `toml:"build"`
}

// LockedBuild is one recorded build.
type LockedBuild struct {
	Source       string `toml:"source"` // path relative to the project dir
	Fingerprint  string `toml:"fingerprint"`
	Instructions int    `toml:"instructions"`
}

// LockFilePath returns the path to .fe/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".fe", "lock.toml")
}

// ReadLock reads a lock file. A missing file yields nil, nil.
func ReadLock(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &lf, nil
}

// WriteLock writes lf to path, creating the parent directory.
func WriteLock(path string, lf *LockFile) error {
	sort.Slice(lf.Builds, func(i, j int) bool { return lf.Builds[i].Source < lf.Builds[j].Source })

	var buf bytes.Buffer
	buf.WriteString("# Generated by fe. Do not edit.\n\n")
	if err := toml.NewEncoder(&buf).Encode(lf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// FindBuild returns the record for source, or nil.
func (lf *LockFile) FindBuild(source string) *LockedBuild {
	for i := range lf.Builds {
		if lf.Builds[i].Source == source {
			return &lf.Builds[i]
		}
	}
	return nil
}

// Record stores b, replacing any earlier record for the same source. It
// reports whether the fingerprint differs from the previous record; a
// first record counts as changed.
func (lf *LockFile) Record(b LockedBuild) bool {
	if prev := lf.FindBuild(b.Source); prev != nil {
		changed := prev.Fingerprint != b.Fingerprint
		*prev = b
		return changed
	}
	lf.Builds = append(lf.Builds, b)
	return true
}

// RecordBuild updates the project's lock file with a build of sourcePath.
// It reports whether the fingerprint changed.
func (m *Manifest) RecordBuild(sourcePath, fingerprint string, instructions int) (bool, error) {
	if abs, err := filepath.Abs(sourcePath); err == nil {
		sourcePath = abs
	}
	rel, err := filepath.Rel(m.Dir, sourcePath)
	if err != nil {
		rel = sourcePath
	}
	lf, err := ReadLock(m.LockFilePath())
	if err != nil {
		return false, err
	}
	if lf == nil {
		lf = &LockFile{}
	}
	changed := lf.Record(LockedBuild{
		Source:       filepath.ToSlash(rel),
		Fingerprint:  fingerprint,
		Instructions: instructions,
	})
	return changed, WriteLock(m.LockFilePath(), lf)
}

// Package safeio confines file access to one root directory.
package safeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var ErrOutsideRoot = errors.New("safeio: path escapes root")

// Dir resolves every name relative to a fixed root and refuses paths that
// leave it, through ".." or symlinks.
type Dir struct {
	absRoot string // absolute root with symlinks resolved
}

// Open binds a Dir to root, creating the directory when it is missing.
func Open(root string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("safeio: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("safeio: create root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &Dir{absRoot: abs}, nil
}

func (d *Dir) Root() string {
	if d == nil {
		return ""
	}
	return d.absRoot
}

// ReadFile reads name under the root. A missing file reports os.ErrNotExist.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	return os.ReadFile(p)
}

// OpenRead opens name under the root for reading.
func (d *Dir) OpenRead(name string) (*os.File, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// OpenAppend opens name under the root for appending, creating it if needed.
func (d *Dir) OpenAppend(name string) (*os.File, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// resolve joins name to the root. Symlinks are evaluated on the longest
// existing prefix so names of files not yet created still resolve.
func (d *Dir) resolve(name string) (string, error) {
	if d == nil {
		return "", errors.New("safeio: directory not configured")
	}
	if name == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "") {
		return "", fmt.Errorf("%w: absolute path %q", ErrOutsideRoot, name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	joined := filepath.Join(d.absRoot, clean)

	existing, rest := joined, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	if rest != "" {
		resolved = filepath.Join(resolved, rest)
	}
	if !hasPathPrefix(resolved, d.absRoot) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, resolved)
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}

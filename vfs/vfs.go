// Package vfs implements the in-memory virtual filesystem backing module
// loading. Paths are logical absolute paths, independent of the host
// operating system's filesystem. Every file carries per-path load metadata
// consumed by the interpreter's require machinery.
package vfs

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when a path has no readable file content.
var ErrNotFound = errors.New("vfs: file not found")

// Metadata is the per-path load record. The zero value is the lazy default:
// no native loader, not yet required.
type Metadata struct {
	// HasNativeLoader records that a host native loader is bound to the
	// path. The loader itself is held by the interpreter; the Vfs only
	// stores the binding fact.
	HasNativeLoader bool

	// AlreadyRequired records that the path has been loaded. It is
	// monotone: once true it never reverts.
	AlreadyRequired bool
}

type entry struct {
	dir        bool
	content    []byte
	hasContent bool
	meta       Metadata
}

// FS is an in-memory filesystem. It is not safe for concurrent use; like
// the interpreter state that owns it, it is confined to one logical owner.
type FS struct {
	entries map[string]*entry
}

// New creates an empty filesystem.
func New() *FS {
	return &FS{entries: make(map[string]*entry)}
}

func normalize(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("vfs: path %q is not absolute", p)
	}
	return path.Clean(p), nil
}

// mkParents creates directory entries for every ancestor of p.
func (f *FS) mkParents(p string) error {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if e, ok := f.entries[dir]; ok {
			if !e.dir {
				return fmt.Errorf("vfs: %s is a file, not a directory", dir)
			}
			continue
		}
		f.entries[dir] = &entry{dir: true}
	}
	return nil
}

// MkdirAll creates a directory entry at p along with any missing parents.
func (f *FS) MkdirAll(p string) error {
	p, err := normalize(p)
	if err != nil {
		return err
	}
	if e, ok := f.entries[p]; ok {
		if !e.dir {
			return fmt.Errorf("vfs: %s is a file, not a directory", p)
		}
		return nil
	}
	if err := f.mkParents(p); err != nil {
		return err
	}
	f.entries[p] = &entry{dir: true}
	return nil
}

// Register binds textual content to p, creating parent directories as
// needed. Re-registering replaces the content but preserves existing load
// metadata.
func (f *FS) Register(p string, content []byte) error {
	p, err := normalize(p)
	if err != nil {
		return err
	}
	e, ok := f.entries[p]
	if ok && e.dir {
		return fmt.Errorf("vfs: %s is a directory", p)
	}
	if err := f.mkParents(p); err != nil {
		return err
	}
	if !ok {
		e = &entry{}
		f.entries[p] = e
	}
	c := make([]byte, len(content))
	copy(c, content)
	e.content = c
	e.hasContent = true
	return nil
}

// RegisterLoader records a native-loader binding for p, creating the file
// entry (and parents) if necessary. Content and loader bindings are
// independent facts on the same path.
func (f *FS) RegisterLoader(p string) error {
	p, err := normalize(p)
	if err != nil {
		return err
	}
	e, ok := f.entries[p]
	if ok && e.dir {
		return fmt.Errorf("vfs: %s is a directory", p)
	}
	if err := f.mkParents(p); err != nil {
		return err
	}
	if !ok {
		e = &entry{}
		f.entries[p] = e
	}
	e.meta.HasNativeLoader = true
	return nil
}

// IsFile reports whether p names a file (not a directory, not absent).
func (f *FS) IsFile(p string) bool {
	p, err := normalize(p)
	if err != nil {
		return false
	}
	e, ok := f.entries[p]
	return ok && !e.dir
}

// ReadFile returns the content bound to p. Paths without registered
// content - including loader-only entries and directories - return
// ErrNotFound.
func (f *FS) ReadFile(p string) ([]byte, error) {
	p, err := normalize(p)
	if err != nil {
		return nil, err
	}
	e, ok := f.entries[p]
	if !ok || e.dir || !e.hasContent {
		return nil, ErrNotFound
	}
	return e.content, nil
}

// Metadata returns the load metadata for p. The boolean is false when p
// does not name a file.
func (f *FS) Metadata(p string) (Metadata, bool) {
	p, err := normalize(p)
	if err != nil {
		return Metadata{}, false
	}
	e, ok := f.entries[p]
	if !ok || e.dir {
		return Metadata{}, false
	}
	return e.meta, true
}

// SetMetadata replaces the load metadata for p. AlreadyRequired is
// monotone: an attempt to revert it to false is silently kept true.
func (f *FS) SetMetadata(p string, m Metadata) error {
	p, err := normalize(p)
	if err != nil {
		return err
	}
	e, ok := f.entries[p]
	if !ok || e.dir {
		return fmt.Errorf("vfs: %s is not a file", p)
	}
	if e.meta.AlreadyRequired {
		m.AlreadyRequired = true
	}
	e.meta = m
	return nil
}

// Package bundle packs Petal source trees into CBOR-encoded bundles that
// embedding hosts install into an interpreter's virtual filesystem.
package bundle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/petal-lang/petal/interp"
	"github.com/petal-lang/petal/manifest"
)

// FormatVersion is the current bundle wire format version.
const FormatVersion uint32 = 1

// Source is one source file in a bundle. Path is relative to the
// interpreter load root.
type Source struct {
	Path    string `cbor:"path"`
	Content []byte `cbor:"content"`
}

// Bundle is a packaged tree of Petal sources.
type Bundle struct {
	Version uint32   `cbor:"version"`
	Name    string   `cbor:"name"`
	Sources []Source `cbor:"sources"`
}

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Bundle to CBOR bytes.
func Marshal(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// Unmarshal deserializes a Bundle from CBOR bytes.
func Unmarshal(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal: %w", err)
	}
	if b.Version != FormatVersion {
		return nil, fmt.Errorf("bundle: unsupported format version %d", b.Version)
	}
	return &b, nil
}

// Build walks the manifest's source directories and packs every .rb file
// into a bundle, with paths relative to their source directory. Sources
// are sorted by path so building is deterministic.
func Build(m *manifest.Manifest) (*Bundle, error) {
	b := &Bundle{Version: FormatVersion, Name: m.Project.Name}
	for _, dir := range m.SourceDirPaths() {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, ".rb") {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			b.Sources = append(b.Sources, Source{
				Path:    filepath.ToSlash(rel),
				Content: content,
			})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("bundle: walk %s: %w", dir, err)
		}
	}
	sort.Slice(b.Sources, func(i, j int) bool {
		return b.Sources[i].Path < b.Sources[j].Path
	})
	return b, nil
}

// Install registers every bundled source into the interpreter's virtual
// filesystem under the load root.
func (b *Bundle) Install(s *interp.State) error {
	for _, src := range b.Sources {
		if err := s.RegisterSource(src.Path, src.Content); err != nil {
			return fmt.Errorf("bundle: install %s: %w", src.Path, err)
		}
	}
	return nil
}

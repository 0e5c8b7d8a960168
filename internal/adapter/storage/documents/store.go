// Package documents stores rendered documents on a filesystem.
package documents

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// Store writes documents under a root directory of an afero filesystem.
// References returned by Put are file names relative to the root.
type Store struct {
	fs   afero.Fs
	root string
}

// NewDiskStore stores documents under dir on the OS filesystem, creating it
// when missing.
func NewDiskStore(dir string) (*Store, error) {
	return New(afero.NewOsFs(), dir)
}

// New creates a store on fs.
func New(fs afero.Fs, root string) (*Store, error) {
	if err := fs.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Store{fs: fs, root: root}, nil
}

// Put writes content to name. The file is written under a temporary name
// and renamed so readers never see a partial document.
func (s *Store) Put(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	final := path.Join(s.root, name)
	tmp := final + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, content, 0o640); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("publish document: %w", err)
	}
	return name, nil
}

// Get reads a stored document back.
func (s *Store) Get(ref string) ([]byte, error) {
	if strings.ContainsAny(ref, `/\`) {
		return nil, fmt.Errorf("invalid document reference %q", ref)
	}
	return afero.ReadFile(s.fs, path.Join(s.root, ref))
}

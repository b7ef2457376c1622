// Package localfs stores objects on the local disk, for development and
// single-node deployments where the API also serves the files.
package localfs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Abraxas-365/rxintake/fsx"
)

// Store writes objects below Root
type Store struct {
	Root string
}

var _ fsx.ObjectStore = (*Store)(nil)

// New creates the root directory if needed
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fsx.ErrorRegistry.New(fsx.CodeWriteFailed).WithCause(err).WithDetail("root", root)
	}
	return &Store{Root: root}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fsx.ErrorRegistry.New(fsx.CodeWriteFailed).WithCause(err)
	}

	clean, err := fsx.CleanKey(key)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fsx.ErrorRegistry.New(fsx.CodeWriteFailed).WithCause(err).WithDetail("key", clean)
	}

	// write then rename so readers never see a half written image
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fsx.ErrorRegistry.New(fsx.CodeWriteFailed).WithCause(err).WithDetail("key", clean)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", fsx.ErrorRegistry.New(fsx.CodeWriteFailed).WithCause(err).WithDetail("key", clean)
	}
	return clean, nil
}

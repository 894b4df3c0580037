// Package workspace implements WorkspaceStore: atomic write-then-rename
// persistence of named TypeScript source artifacts.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandboxcore/core/internal/models"
)

// Store owns the workspace directory shared between the save route and the
// supervisors that read artifacts back out.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating it (mode 0700) if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk path for a codeId. Callers must have already
// validated codeId (no path separators or "..") before calling this.
func (s *Store) Path(codeID string) string {
	return filepath.Join(s.dir, codeID+".ts")
}

// Save writes code to a temp file, then atomically renames it over the
// artifact's path. Two concurrent saves of the same codeId resolve to
// whichever rename lands last; each individual save is atomic, so readers
// never observe a partially written file.
func (s *Store) Save(codeID, code string) (*models.WorkspaceSaveResult, error) {
	finalPath := s.Path(codeID)
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, []byte(code), 0o600); err != nil {
		return nil, fmt.Errorf("write temp artifact: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("rename artifact into place: %w", err)
	}

	return &models.WorkspaceSaveResult{
		CodeID:   codeID,
		FilePath: finalPath,
		Size:     len(code),
	}, nil
}

// Load reads a saved artifact's bytes back, for tests and round-trip checks.
func (s *Store) Load(codeID string) (string, error) {
	b, err := os.ReadFile(s.Path(codeID))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Exists reports whether codeId has a saved artifact.
func (s *Store) Exists(codeID string) bool {
	_, err := os.Stat(s.Path(codeID))
	return err == nil
}

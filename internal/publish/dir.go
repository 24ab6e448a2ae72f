package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/fragment"
	"github.com/specialistvlad/implgrid/internal/handoff"
	"github.com/specialistvlad/implgrid/internal/implreg"
)

// ErrInvalidPath is returned when a trait's fragment path would escape the root.
var ErrInvalidPath = errors.New("fragment path escapes output root")

// DirSink writes fragments into a directory tree.
type DirSink struct {
	root string
}

var _ handoff.Receiver = (*DirSink)(nil)

// NewDirSink returns a sink rooted at root.
func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

// Path returns the file a registry's fragment is written to.
func (s *DirSink) Path(trait implreg.TraitRef) (string, error) {
	if !implreg.ValidFragmentPath(trait.Path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, trait.Path)
	}
	return filepath.Join(s.root, Prefix, filepath.FromSlash(path.Clean(trait.Path))), nil
}

// Register renders reg and writes it to disk.
func (s *DirSink) Register(ctx context.Context, reg *implreg.Registry) error {
	logger := ctxlog.FromContext(ctx)

	target, err := s.Path(reg.Trait())
	if err != nil {
		return err
	}
	body, err := fragment.Render(reg)
	if err != nil {
		return fmt.Errorf("failed to render fragment: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if err := os.WriteFile(target, body, 0644); err != nil {
		return fmt.Errorf("failed to write fragment %s: %w", target, err)
	}

	logger.Info("Fragment written.", "trait", reg.Trait().Name, "path", target, "bytes", len(body))
	return nil
}

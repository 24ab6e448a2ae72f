package publish

import (
	"context"

	"github.com/specialistvlad/implgrid/internal/handoff"
	"github.com/specialistvlad/implgrid/internal/implreg"
)

// Multi fans a registration out to several receivers in order. It stops at
// the first failure.
type Multi []handoff.Receiver

// Register implements handoff.Receiver.
func (m Multi) Register(ctx context.Context, reg *implreg.Registry) error {
	for _, r := range m {
		if err := r.Register(ctx, reg); err != nil {
			return err
		}
	}
	return nil
}

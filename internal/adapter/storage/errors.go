package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

// storageErr tags a backend failure as domain.ErrStorageUnavailable.
// Context cancellation is passed through untagged.
func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

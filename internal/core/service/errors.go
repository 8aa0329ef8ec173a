package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

var (
	ErrEmptyRequest      = errors.New("empty request")
	ErrDuplicateDocument = errors.New("document already claimed")
)

// RunError reports a run that ended in StateFailed. Purchases listed in
// Applied were committed before the failure and are not rolled back.
type RunError struct {
	State   RunState
	Applied []domain.PurchaseAction
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed in %s after %d purchase(s): %v", e.State, len(e.Applied), e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

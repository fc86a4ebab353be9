package notify

import (
	"context"
	"errors"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Multi fans an event out to several notifiers. Every notifier is attempted;
// failures are joined.
type Multi []creative.Notifier

// Notify implements creative.Notifier.
func (m Multi) Notify(ctx context.Context, ev creative.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

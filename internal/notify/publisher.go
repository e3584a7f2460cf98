// ABOUTME: Publisher interface for alert notifications plus trivial implementations.
// ABOUTME: Publishing happens after commit; failures never roll back the record.
package notify

import (
	"context"
	"errors"

	"github.com/harperreed/drivewatch/internal/models"
)

// Publisher delivers alert events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, ev models.AlertEvent) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, models.AlertEvent) error { return nil }

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

// Publish implements Publisher. Every publisher is tried even if an earlier one fails.
func (m Multi) Publish(ctx context.Context, ev models.AlertEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

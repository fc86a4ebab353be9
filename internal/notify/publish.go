package notify

import (
	"context"
	"fmt"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Publisher is a message sink such as a Pub/Sub topic.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
}

// Published mirrors events onto a Publisher using the webhook payload shape.
type Published struct {
	pub Publisher
}

// NewPublished wraps pub.
func NewPublished(pub Publisher) *Published {
	return &Published{pub: pub}
}

// Notify implements creative.Notifier.
func (p *Published) Notify(ctx context.Context, ev creative.Event) error {
	if _, err := p.pub.Publish(ctx, string(ev.Type), Payload(ev)); err != nil {
		return creative.NewStageError(creative.ErrWebhookDelivery, creative.StageNotify, "", fmt.Errorf("publish %s: %w", ev.Type, err))
	}
	return nil
}

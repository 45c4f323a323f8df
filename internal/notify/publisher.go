package notify

import "context"

// ResetPublisher signals external meters that a new accounting day has begun
// so they can zero their cumulative energy counters.
type ResetPublisher interface {
	PublishReset(ctx context.Context) error
}

// NopPublisher satisfies ResetPublisher without doing anything. Used when
// device notification is disabled in configuration.
type NopPublisher struct{}

func (NopPublisher) PublishReset(context.Context) error { return nil }

package loader

import (
	"context"
	"github.com/Borislavv/infinite-feed/pkg/model"
)

// Source provides items beyond either edge of the buffer.
// The anchor is the current first (Older) or last (Newer) item, nil when the buffer is empty.
// Implementations must return promptly once ctx is cancelled.
type Source interface {
	Older(ctx context.Context, anchor *model.FeedItem, n int) ([]model.FeedItem, error)
	Newer(ctx context.Context, anchor *model.FeedItem, n int) ([]model.FeedItem, error)
}

// Timeline serializes buffer mutations and hosts the suspendable load tasks.
type Timeline interface {
	Go(name string, fn func(ctx context.Context)) bool
	Do(ctx context.Context, fn func()) error
}

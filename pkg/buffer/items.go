package buffer

import (
	"errors"
	"fmt"
	"github.com/Borislavv/infinite-feed/pkg/model"
)

// ErrConfiguration reports a cap that cannot hold what the feed inserts in one go.
// The buffer is left untouched whenever it is returned.
var ErrConfiguration = errors.New("buffer configuration error")

// Items is the ordered, capped sequence of feed items.
//
// Items is not safe for concurrent use: every mutation is expected to run on the feed timeline.
// Whenever a mutation grows the sequence past the cap, the surplus is cut out of the middle
// (starting at max/2) so that both ends of the feed keep their local context.
type Items struct {
	max     int
	items   []model.FeedItem
	trimmed uint64
}

// New creates a buffer with the given cap and seed items.
func New(max int, seed []model.FeedItem) (*Items, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: cap must be positive, got %d", ErrConfiguration, max)
	}
	b := &Items{max: max, items: make([]model.FeedItem, 0, max)}
	if _, err := b.Append(seed...); err != nil {
		return nil, err
	}
	return b, nil
}

// Prepend inserts items in front of the sequence preserving their order.
// Returns the number of items removed by the trim.
func (b *Items) Prepend(items ...model.FeedItem) (trimmed int, err error) {
	if len(items) == 0 {
		return 0, nil
	}
	next := make([]model.FeedItem, 0, len(items)+len(b.items))
	next = append(next, items...)
	next = append(next, b.items...)
	return b.commit(next, len(items))
}

// Append adds items to the tail of the sequence preserving their order.
// Returns the number of items removed by the trim.
func (b *Items) Append(items ...model.FeedItem) (trimmed int, err error) {
	if len(items) == 0 {
		return 0, nil
	}
	next := make([]model.FeedItem, 0, len(items)+len(b.items))
	next = append(next, b.items...)
	next = append(next, items...)
	return b.commit(next, len(items))
}

func (b *Items) commit(next []model.FeedItem, batch int) (int, error) {
	if batch > b.max {
		return 0, fmt.Errorf("%w: batch of %d items exceeds cap %d", ErrConfiguration, batch, b.max)
	}

	from, to, err := TrimRange(len(next), b.max)
	if err != nil {
		return 0, err
	}
	if to > from {
		next = append(next[:from], next[to:]...)
		b.trimmed += uint64(to - from)
	}

	b.items = next
	return to - from, nil
}

// TrimRange computes the half-open [from, to) range cut out of a sequence of the given length.
// An empty range is returned while length <= max.
func TrimRange(length, max int) (from, to int, err error) {
	if length <= max {
		return 0, 0, nil
	}
	from = max / 2
	to = from + (length - max)
	if from < 0 || to > length || from > to {
		return 0, 0, fmt.Errorf("%w: trim range [%d, %d) is out of bounds for length %d",
			ErrConfiguration, from, to, length)
	}
	return from, to, nil
}

// Get returns a copy of items within [start, end), clamped to the buffer bounds.
func (b *Items) Get(start, end int) []model.FeedItem {
	if start < 0 {
		start = 0
	}
	if end > len(b.items) {
		end = len(b.items)
	}
	if start >= end {
		return []model.FeedItem{}
	}
	out := make([]model.FeedItem, end-start)
	copy(out, b.items[start:end])
	return out
}

// At returns the item by index.
func (b *Items) At(idx int) (model.FeedItem, bool) {
	if idx < 0 || idx >= len(b.items) {
		return model.FeedItem{}, false
	}
	return b.items[idx], true
}

func (b *Items) First() (model.FeedItem, bool) { return b.At(0) }
func (b *Items) Last() (model.FeedItem, bool)  { return b.At(len(b.items) - 1) }

func (b *Items) Len() int { return len(b.items) }
func (b *Items) Cap() int { return b.max }

// Trimmed returns the total number of items evicted since creation.
func (b *Items) Trimmed() uint64 { return b.trimmed }

// Package mock provides a synthetic feed: seed items, older and newer pages and polled items.
package mock

import (
	"context"
	"fmt"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/google/uuid"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	seedPrefix  = "Item"
	olderPrefix = "Older Item"
	newPrefix   = "New Item"
)

var images = []string{"sunrise.jpg", "harbor.png", "forest.webp", "city.jpg", "desert.gif"}

// Source generates items with stable uuid ids. It is stateless apart from its configuration,
// numbers are derived from the anchor item or the feed length.
type Source struct {
	latency  time.Duration
	imageDir string
	scheme   string
	now      func() time.Time
}

func NewSource(cfg *config.Feed) *Source {
	return &Source{
		latency:  cfg.Feed.Source.Latency,
		imageDir: cfg.Feed.Source.ImageDir,
		scheme:   cfg.Feed.Assets.Scheme,
		now:      time.Now,
	}
}

// Seed returns "Item 1" .. "Item n".
func (s *Source) Seed(n int) []model.FeedItem {
	out := make([]model.FeedItem, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.item(seedPrefix, i))
	}
	return out
}

// Older returns n items counting down from the anchor's number (saturating at 0), oldest first.
func (s *Source) Older(ctx context.Context, anchor *model.FeedItem, n int) ([]model.FeedItem, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	oldest := 1
	if num, ok := number(anchor); ok {
		oldest = num
	}
	out := make([]model.FeedItem, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, s.item(olderPrefix, max(oldest-i, 0)))
	}
	return out, nil
}

// Newer returns n items counting up from the anchor's number.
func (s *Source) Newer(ctx context.Context, anchor *model.FeedItem, n int) ([]model.FeedItem, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	last := 0
	if num, ok := number(anchor); ok {
		last = num
	}
	out := make([]model.FeedItem, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.item(seedPrefix, last+i))
	}
	return out, nil
}

// Fresh returns the polled item for a feed of the given length.
func (s *Source) Fresh(length int) model.FeedItem {
	return s.item(newPrefix, length+1)
}

func (s *Source) item(prefix string, num int) model.FeedItem {
	return model.FeedItem{
		ID:       uuid.NewString(),
		Content:  prefix + " " + strconv.Itoa(num),
		ImageRef: s.imageRef(num),
		Posted:   s.now(),
	}
}

func (s *Source) imageRef(num int) string {
	return fmt.Sprintf("%s://%s", s.scheme, path.Join(s.imageDir, images[num%len(images)]))
}

func (s *Source) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// number parses the trailing integer of the item content, e.g. 7 from "Older Item 7".
func number(item *model.FeedItem) (int, bool) {
	if item == nil {
		return 0, false
	}
	idx := strings.LastIndexByte(item.Content, ' ')
	num, err := strconv.Atoi(item.Content[idx+1:])
	if err != nil {
		return 0, false
	}
	return num, true
}

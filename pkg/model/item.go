package model

import "time"

// FeedItem is a single immutable entry of the feed.
// The engine never interprets Content, ImageRef or Posted: they are passed through to the render layer.
type FeedItem struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	ImageRef string    `json:"imageRef"` // opaque locator resolved by the asset collaborator
	Posted   time.Time `json:"posted"`
}

// IDs returns ids of the given items in order (handy for logs and assertions).
func IDs(items []FeedItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Package events publishes playlist lifecycle events to the configured
// message broker. Publishing is best-effort: failures are logged and never
// surface to the request that triggered them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alphamusic/apiserver/internal/mq"
	"github.com/charmbracelet/log"
)

// Channel is the broker channel playlist events are published on.
const Channel = "playlist-events"

// Event types.
const (
	TypePlaylistCreated     = "playlist.created"
	TypePlaylistDeleted     = "playlist.deleted"
	TypePlaylistFavorited   = "playlist.favorited"
	TypePlaylistUnfavorited = "playlist.unfavorited"
)

// PlaylistEvent is the wire payload for playlist lifecycle events.
type PlaylistEvent struct {
	Type       string    `json:"type"`
	UserID     int       `json:"userId"`
	PlaylistID string    `json:"playlistId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits playlist events over a message queue. A nil Publisher is
// valid and drops every event, so callers never need to branch on whether a
// broker is configured.
type Publisher struct {
	queue  *mq.MQ
	logger *log.Logger
}

// NewPublisher constructs a Publisher over the given queue.
func NewPublisher(queue *mq.MQ, logger *log.Logger) *Publisher {
	return &Publisher{queue: queue, logger: logger}
}

// Playlist publishes a playlist event of the given type.
func (p *Publisher) Playlist(ctx context.Context, eventType string, userID int, playlistID string) {
	if p == nil || p.queue == nil {
		return
	}

	event := PlaylistEvent{
		Type:       eventType,
		UserID:     userID,
		PlaylistID: playlistID,
		OccurredAt: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logf("marshal playlist event", eventType, playlistID, err)
		return
	}

	attrs := map[string]string{"type": eventType}
	if _, err := p.queue.Publish(ctx, Channel, data, attrs); err != nil {
		p.logf("publish playlist event", eventType, playlistID, err)
	}
}

func (p *Publisher) logf(msg, eventType, playlistID string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, "type", eventType, "playlistId", playlistID, "err", err)
}

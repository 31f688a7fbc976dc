package store

import (
	"context"
	"time"
)

type CounterStore interface {
	Counter(ctx context.Context, guildID string) (*Counter, error)
	Counters(ctx context.Context) ([]*Counter, error)
	UpsertCounter(ctx context.Context, counter *Counter) error
	UpdateCount(ctx context.Context, guildID string, count int64, lastAuthorID string) error
	DeleteCounter(ctx context.Context, guildID string) error
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
}

// Counter is the durable mirror of one guild's counting channel: where the
// game runs, the webhook used to repost accepted numbers, and the last
// accepted state. LastAuthorID is empty when nobody holds the last count.
type Counter struct {
	GuildID      string    `json:"guild_id" bson:"guild_id"`
	ChannelID    string    `json:"channel_id" bson:"channel_id"`
	WebhookID    string    `json:"webhook_id" bson:"webhook_id"`
	WebhookToken string    `json:"webhook_token" bson:"webhook_token"`
	CurrentCount int64     `json:"current_count" bson:"current_count"`
	LastAuthorID string    `json:"last_author_id" bson:"last_author_id"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type HistoryEntry struct {
	GuildID   string    `json:"guild_id" bson:"guild_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Number    int64     `json:"count_number" bson:"count_number"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func DefaultCounter(guildID, channelID, webhookID, webhookToken string) *Counter {
	return &Counter{
		GuildID:      guildID,
		ChannelID:    channelID,
		WebhookID:    webhookID,
		WebhookToken: webhookToken,
		CurrentCount: 0,
		LastAuthorID: "",

		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

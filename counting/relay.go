package counting

import (
	"context"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/api/webhook"
	"github.com/diamondburned/arikawa/v3/discord"
)

// RelayTarget identifies the webhook an accepted number is reposted
// through. The client itself is built lazily per send, so a webhook that
// was deleted out from under us surfaces as a send error, not a startup
// failure.
type RelayTarget struct {
	ID    discord.WebhookID
	Token string
}

// Relay reposts content under an arbitrary display name and avatar,
// independent of the original message's lifetime.
type Relay interface {
	Send(ctx context.Context, target RelayTarget, content, username, avatarURL string) error
}

// Messenger is the slice of the Discord API the state machine needs for
// message disposition. *state.State satisfies it.
type Messenger interface {
	DeleteMessage(channelID discord.ChannelID, messageID discord.MessageID, reason api.AuditLogReason) error
	React(channelID discord.ChannelID, messageID discord.MessageID, emoji discord.APIEmoji) error
}

type webhookRelay struct{}

func NewWebhookRelay() Relay {
	return webhookRelay{}
}

func (webhookRelay) Send(ctx context.Context, target RelayTarget, content, username, avatarURL string) error {
	client := webhook.New(target.ID, target.Token).WithContext(ctx)

	return client.Execute(webhook.ExecuteData{
		Content:   content,
		Username:  username,
		AvatarURL: discord.URL(avatarURL),
	})
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/VTGare/Tally/arikawautils/embeds"
	"github.com/VTGare/Tally/bot"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/api/cmdroute"
	"github.com/diamondburned/arikawa/v3/discord"
)

// Manage Messages, Manage Webhooks, Send Messages, Add Reactions.
const invitePermissions = "274877975552"

func ping(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:        "ping",
		Description: "Get the bot's response time",
		Type:        discord.ChatInputCommand,
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		latency := b.State.Gateway().Latency().Round(time.Millisecond).String()

		eb := embeds.NewBuilder()
		eb.Title("🏓 Pong!").AddField("Latency", latency)

		return respond(eb)
	}
}

func invite(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:        "invite",
		Description: "Get the link to add the bot to your server",
		Type:        discord.ChatInputCommand,
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		me, err := b.State.Me()
		if err != nil {
			b.Log.With("error", err).Error("failed to fetch the bot user")
			return errorResponse("Something went wrong. Please try again in a bit.")
		}

		url := fmt.Sprintf(
			"https://discord.com/oauth2/authorize?client_id=%v&permissions=%v&scope=bot+applications.commands",
			me.ID, invitePermissions,
		)

		eb := embeds.NewBuilder()
		eb.Title("🔢 Add Tally to your server").
			Description(fmt.Sprintf("[Click here to invite the bot](%v)", url)).
			AddField("Required permissions", "• Send Messages\n• Manage Messages\n• Manage Webhooks\n• Add Reactions")

		return respond(eb)
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/VTGare/Tally/arikawautils/embeds"
	"github.com/VTGare/Tally/bot"
	"github.com/VTGare/Tally/counting"
	"github.com/VTGare/Tally/slices"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/api/cmdroute"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/utils/json/option"
)

const webhookName = "Tally"

const welcomeMessage = "🔢 **Welcome to the counting channel!** 🔢\n\n" +
	"Start counting from **1** and keep going! Each message must be the next number in sequence.\n\n" +
	"✅ **Rules:**\n" +
	"• Only numbers allowed\n" +
	"• Must count in order (1, 2, 3...)\n" +
	"• Wrong numbers will be deleted\n" +
	"• Same user can't count twice in a row\n\n" +
	"Let's count together! 🚀"

func setChannel(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:                     "setchannel",
		Description:              "Set the counting channel and restart the count",
		DefaultMemberPermissions: discord.NewPermissions(discord.PermissionAdministrator),
		Options: discord.CommandOptions{
			discord.NewChannelOption("channel", "The channel to count in", true),
		},
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		guildID := data.Event.GuildID
		if !guildID.IsValid() {
			return errorResponse("This command only works in a server.")
		}

		sf, err := data.Options.Find("channel").SnowflakeValue()
		if err != nil {
			return errorResponse("Please provide a valid channel.")
		}
		channelID := discord.ChannelID(sf)

		wh, err := countingWebhook(b, channelID)
		if err != nil {
			b.Log.With("guild_id", guildID, "channel_id", channelID, "error", err).
				Error("failed to prepare a counting webhook")
			return errorResponse(fmt.Sprintf(
				"I couldn't create a webhook in %v. Do I have the Manage Webhooks permission there?",
				channelID.Mention(),
			))
		}

		if err := b.Counting.Bind(ctx, guildID, channelID, wh.ID, wh.Token); err != nil {
			b.Log.With("guild_id", guildID, "channel_id", channelID, "error", err).
				Error("failed to bind a counting channel")
			return errorResponse("Something went wrong while saving the counting channel.")
		}

		relay := counting.NewWebhookRelay()
		target := counting.RelayTarget{ID: wh.ID, Token: wh.Token}
		if err := relay.Send(ctx, target, welcomeMessage, webhookName, ""); err != nil {
			b.Log.With("guild_id", guildID, "channel_id", channelID, "error", err).
				Warn("failed to send the welcome message")
		}

		eb := embeds.NewBuilder()
		eb.Title("✅ Counting channel set").
			Description(fmt.Sprintf("Counting now happens in %v.", channelID.Mention())).
			AddField("Next number", "**1**", true)

		return respond(eb)
	}
}

func removeChannel(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:                     "removechannel",
		Description:              "Remove the counting channel",
		DefaultMemberPermissions: discord.NewPermissions(discord.PermissionAdministrator),
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		guildID := data.Event.GuildID
		if !guildID.IsValid() {
			return errorResponse("This command only works in a server.")
		}

		if err := b.Counting.Unbind(ctx, guildID); err != nil {
			return serviceError(err)
		}

		eb := embeds.NewBuilder()
		eb.Title("🗑️ Counting channel removed").
			Description("The counting channel has been removed from this server.").
			Color(int(embeds.ColorRed))

		return respond(eb)
	}
}

func setCount(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:                     "setcount",
		Description:              "Set the current count",
		DefaultMemberPermissions: discord.NewPermissions(discord.PermissionAdministrator),
		Options: discord.CommandOptions{
			&discord.IntegerOption{
				OptionName:  "number",
				Description: "The number to set the count to",
				Required:    true,
				Min:         option.NewInt(0),
			},
		},
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		guildID := data.Event.GuildID
		if !guildID.IsValid() {
			return errorResponse("This command only works in a server.")
		}

		n, err := data.Options.Find("number").IntValue()
		if err != nil {
			return errorResponse("Please provide a valid number.")
		}

		if err := b.Counting.SetCount(ctx, guildID, n); err != nil {
			return serviceError(err)
		}

		eb := embeds.NewBuilder()
		eb.Title("✅ Count updated").
			Description(fmt.Sprintf("The current count has been set to **%v**.", n))

		return respond(eb)
	}
}

func resetCount(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:                     "resetcount",
		Description:              "Reset the count to 0",
		DefaultMemberPermissions: discord.NewPermissions(discord.PermissionAdministrator),
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		guildID := data.Event.GuildID
		if !guildID.IsValid() {
			return errorResponse("This command only works in a server.")
		}

		if err := b.Counting.Reset(ctx, guildID); err != nil {
			return serviceError(err)
		}

		eb := embeds.NewBuilder()
		eb.Title("🔄 Count reset").
			Description("The count has been reset to **0**.").
			Color(int(embeds.ColorYellow))

		return respond(eb)
	}
}

func count(b *bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc) {
	cmd := api.CreateCommandData{
		Name:        "count",
		Description: "Check the counting channel and the current count",
		Type:        discord.ChatInputCommand,
	}

	return cmd, func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		guildID := data.Event.GuildID
		if !guildID.IsValid() {
			return errorResponse("This command only works in a server.")
		}

		status, err := b.Counting.Status(guildID)
		if err != nil {
			return serviceError(err)
		}

		eb := embeds.NewBuilder()
		eb.Title("📊 Counting status").
			AddField("Channel", status.ChannelID.Mention(), true).
			AddField("Current count", fmt.Sprintf("**%v**", status.Count), true)

		return respond(eb)
	}
}

// countingWebhook reuses the bot-owned counting webhook in the channel if
// one survives from an earlier setup, otherwise creates a fresh one.
func countingWebhook(b *bot.Bot, channelID discord.ChannelID) (*discord.Webhook, error) {
	me, err := b.State.Me()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the bot user: %w", err)
	}

	webhooks, err := b.State.ChannelWebhooks(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	existing, ok := slices.Find(webhooks, func(wh discord.Webhook) bool {
		return wh.Name == webhookName && wh.User != nil && wh.User.ID == me.ID && wh.Token != ""
	})
	if ok {
		return &existing, nil
	}

	wh, err := b.State.CreateWebhook(channelID, api.CreateWebhookData{Name: webhookName})
	if err != nil {
		return nil, fmt.Errorf("failed to create a webhook: %w", err)
	}

	return wh, nil
}

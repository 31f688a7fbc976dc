package commands

import (
	"github.com/VTGare/Tally/arikawautils/embeds"
	"github.com/VTGare/Tally/bot"
	"github.com/VTGare/Tally/counting"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/api/cmdroute"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/pkg/errors"
)

func RegisterCommands(b *bot.Bot) {
	commands := []func(*bot.Bot) (api.CreateCommandData, cmdroute.CommandHandlerFunc){
		ping,
		invite,
		setChannel,
		removeChannel,
		setCount,
		resetCount,
		count,
	}

	for _, cmd := range commands {
		b.AddCommand(cmd)
	}
}

func respond(eb *embeds.Builder) *api.InteractionResponseData {
	return &api.InteractionResponseData{
		Embeds: &[]discord.Embed{eb.Build()},
		Flags:  discord.EphemeralMessage,
	}
}

func errorResponse(message string) *api.InteractionResponseData {
	eb := embeds.NewBuilder()
	eb.ErrorTemplate(message)

	return respond(eb)
}

func serviceError(err error) *api.InteractionResponseData {
	switch {
	case errors.Is(err, counting.ErrNotBound):
		return errorResponse("No counting channel has been set for this server. Use `/setchannel` to set one up first!")
	case errors.Is(err, counting.ErrNegativeCount):
		return errorResponse("The count must be 0 or greater.")
	default:
		return errorResponse("Something went wrong. Please try again in a bit.")
	}
}

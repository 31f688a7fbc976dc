package bot

import (
	"context"
	"fmt"

	"github.com/VTGare/Tally/counting"
	"github.com/VTGare/Tally/store"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/api/cmdroute"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

type Bot struct {
	Config   *koanf.Koanf
	State    *state.State
	Store    store.Store
	Counting *counting.Service
	Log      *zap.SugaredLogger

	router   *cmdroute.Router
	commands []api.CreateCommandData
}

func New(log *zap.SugaredLogger, config *koanf.Koanf, st store.Store) *Bot {
	var (
		r = cmdroute.NewRouter()
		s = state.New("Bot " + config.String("bot.token"))
	)

	s.AddIntents(gateway.IntentGuilds |
		gateway.IntentGuildMessages |
		gateway.IntentGuildMessageReactions |
		gateway.IntentMessageContent,
	)

	return &Bot{
		Config:   config,
		State:    s,
		Store:    st,
		Counting: counting.NewService(st, counting.NewWebhookRelay(), s, log),
		Log:      log,

		router:   r,
		commands: make([]api.CreateCommandData, 0),
	}
}

func (b *Bot) AddCommand(f func(b *Bot) (command api.CreateCommandData, handler cmdroute.CommandHandlerFunc)) {
	cmd, handler := f(b)

	b.commands = append(b.commands, cmd)
	b.router.AddFunc(cmd.Name, handler)
}

func (b *Bot) AddMiddleware(mw cmdroute.Middleware) {
	b.router.Use(mw)
}

func (b *Bot) Start(ctx context.Context) error {
	b.State.AddInteractionHandler(b.router)

	b.State.AddHandler(func(m *gateway.MessageCreateEvent) {
		b.Counting.HandleMessage(ctx, messageFromEvent(m))
	})

	b.State.AddHandler(func(*gateway.ReadyEvent) {
		err := b.State.Gateway().Send(ctx, &gateway.UpdatePresenceCommand{
			Status: discord.DoNotDisturbStatus,
			Activities: []discord.Activity{
				{Name: "Counting", Type: discord.GameActivity},
			},
		})
		if err != nil {
			b.Log.With("error", err).Warn("failed to update presence")
		}
	})

	if err := cmdroute.OverwriteCommands(b.State, b.commands); err != nil {
		return fmt.Errorf("failed to overwrite commands: %w", err)
	}

	// The cache must be warm before the gateway delivers any messages.
	if err := b.Counting.Load(ctx); err != nil {
		b.Log.With("error", err).Error("failed to load counters, all guilds start unbound")
	}

	if err := b.State.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	return nil
}

func messageFromEvent(m *gateway.MessageCreateEvent) counting.Message {
	name := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}

	return counting.Message{
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		ID:           m.ID,
		AuthorID:     m.Author.ID,
		AuthorName:   name,
		AuthorAvatar: m.Author.AvatarURL(),
		Bot:          m.Author.Bot,
		Content:      m.Content,
	}
}

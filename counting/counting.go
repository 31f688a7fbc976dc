package counting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VTGare/Tally/store"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"
)

var (
	ErrNotBound      = errors.New("no counting channel bound for this guild")
	ErrNegativeCount = errors.New("count must be zero or greater")
)

const acceptEmoji = discord.APIEmoji("✅")

// Message is the inbound slice of a gateway message event the state
// machine cares about.
type Message struct {
	GuildID      discord.GuildID
	ChannelID    discord.ChannelID
	ID           discord.MessageID
	AuthorID     discord.UserID
	AuthorName   string
	AuthorAvatar string
	Bot          bool
	Content      string
}

// Status is the read-only view handed to the status command.
type Status struct {
	ChannelID discord.ChannelID
	Count     int64
}

// guildState is the live counter for one guild. Its mutex linearizes
// every read-decide-write sequence for that guild, message evaluation and
// administrative mutations alike; unrelated guilds never contend.
type guildState struct {
	mu sync.Mutex

	channelID    discord.ChannelID
	webhookID    discord.WebhookID
	webhookToken string
	count        int64
	lastAuthor   discord.UserID
}

func (gs *guildState) bound() bool {
	return gs.channelID.IsValid()
}

// Service owns the in-memory counter state for every guild and drives all
// side effects of acceptance and rejection. The cache is authoritative
// for decisions; the store is the recovery source after restart. The two
// only diverge for the duration of a failed write, which the next
// successful write for that guild reconciles.
type Service struct {
	store store.Store
	relay Relay
	msg   Messenger
	log   *zap.SugaredLogger

	mu     sync.RWMutex
	guilds map[discord.GuildID]*guildState
}

func NewService(st store.Store, relay Relay, msg Messenger, log *zap.SugaredLogger) *Service {
	return &Service{
		store: st,
		relay: relay,
		msg:   msg,
		log:   log,

		guilds: make(map[discord.GuildID]*guildState),
	}
}

// Load populates the cache from the store. Called once before any message
// traffic is handled. Counters that fail to load are skipped: those
// guilds simply start unbound instead of blocking startup.
func (s *Service) Load(ctx context.Context) error {
	counters, err := s.store.Counters(ctx)
	if err != nil {
		return fmt.Errorf("failed to load counters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range counters {
		gs, err := restoreGuildState(c)
		if err != nil {
			s.log.With("guild_id", c.GuildID, "error", err).
				Error("failed to restore a counter, guild starts unbound")
			continue
		}

		guildID, _ := discord.ParseSnowflake(c.GuildID)
		s.guilds[discord.GuildID(guildID)] = gs

		s.log.With("guild_id", c.GuildID, "count", c.CurrentCount).
			Info("restored counting channel")
	}

	return nil
}

func restoreGuildState(c *store.Counter) (*guildState, error) {
	if _, err := discord.ParseSnowflake(c.GuildID); err != nil {
		return nil, fmt.Errorf("bad guild id: %w", err)
	}

	channelID, err := discord.ParseSnowflake(c.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("bad channel id: %w", err)
	}

	webhookID, err := discord.ParseSnowflake(c.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("bad webhook id: %w", err)
	}

	var lastAuthor discord.Snowflake
	if c.LastAuthorID != "" {
		lastAuthor, err = discord.ParseSnowflake(c.LastAuthorID)
		if err != nil {
			return nil, fmt.Errorf("bad last author id: %w", err)
		}
	}

	if c.CurrentCount < 0 {
		return nil, fmt.Errorf("negative count %d", c.CurrentCount)
	}

	return &guildState{
		channelID:    discord.ChannelID(channelID),
		webhookID:    discord.WebhookID(webhookID),
		webhookToken: c.WebhookToken,
		count:        c.CurrentCount,
		lastAuthor:   discord.UserID(lastAuthor),
	}, nil
}

// HandleMessage evaluates one inbound message and performs the effects of
// its outcome. Effect order on acceptance is deliberate: the cache and
// store are updated before the origin message is touched, so a crash
// mid-flight never loses an accepted number; a failed relay send stands
// as a reported error rather than a rollback, because re-accepting a
// number a user already saw confirmed is worse than a missing repost.
func (s *Service) HandleMessage(ctx context.Context, m Message) Outcome {
	ignore := Outcome{Verdict: VerdictIgnore}

	if m.Bot || !m.GuildID.IsValid() {
		return ignore
	}

	gs, ok := s.guild(m.GuildID)
	if !ok {
		return ignore
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	// Re-checked under the lock: the binding may have moved or vanished
	// while we waited.
	if gs.channelID != m.ChannelID {
		return ignore
	}

	out := decide(gs.count, gs.lastAuthor, m.AuthorID, m.Content)

	switch out.Verdict {
	case VerdictReject:
		s.log.With(
			"guild_id", m.GuildID,
			"author_id", m.AuthorID,
			"reason", out.Reason.String(),
			"got", out.Number,
			"expected", out.Expected,
		).Info("rejected a count")

		s.deleteOrigin(m, "rejected count")

	case VerdictAccept:
		s.accept(ctx, gs, m, out)
	}

	return out
}

func (s *Service) accept(ctx context.Context, gs *guildState, m Message, out Outcome) {
	// The first number of a fresh sequence records no author: there was
	// no previous author yet, so the same user may legally post the
	// second. From then on the poster of the current count is tracked.
	if gs.count > 0 {
		gs.lastAuthor = m.AuthorID
	} else {
		gs.lastAuthor = 0
	}
	gs.count = out.Number

	lastAuthorID := ""
	if gs.lastAuthor.IsValid() {
		lastAuthorID = gs.lastAuthor.String()
	}

	if err := s.store.UpdateCount(ctx, m.GuildID.String(), out.Number, lastAuthorID); err != nil {
		// The number was legitimately consumed; the cache stays
		// authoritative and the next successful write reconciles.
		s.log.With("guild_id", m.GuildID, "count", out.Number, "error", err).
			Error("accepted count not persisted, cache and store diverged")
	}

	if err := s.store.AppendHistory(ctx, &store.HistoryEntry{
		GuildID:   m.GuildID.String(),
		UserID:    m.AuthorID.String(),
		Number:    out.Number,
		Timestamp: time.Now(),
	}); err != nil {
		s.log.With("guild_id", m.GuildID, "count", out.Number, "error", err).
			Error("failed to append history")
	}

	// Best-effort acknowledgment before the origin goes away.
	if err := s.msg.React(m.ChannelID, m.ID, acceptEmoji); err != nil {
		s.log.With("guild_id", m.GuildID, "message_id", m.ID, "error", err).
			Debug("failed to react to an accepted count")
	}

	target := RelayTarget{ID: gs.webhookID, Token: gs.webhookToken}
	content := fmt.Sprintf("**%d**", out.Number)
	if err := s.relay.Send(ctx, target, content, m.AuthorName, m.AuthorAvatar); err != nil {
		s.log.With("guild_id", m.GuildID, "count", out.Number, "error", err).
			Error("failed to relay an accepted count")
	}

	s.deleteOrigin(m, "accepted count")

	s.log.With("guild_id", m.GuildID, "author_id", m.AuthorID, "count", out.Number).
		Info("accepted a count")
}

func (s *Service) deleteOrigin(m Message, reason string) {
	if err := s.msg.DeleteMessage(m.ChannelID, m.ID, api.AuditLogReason("counting: "+reason)); err != nil {
		s.log.With("guild_id", m.GuildID, "message_id", m.ID, "error", err).
			Error("failed to delete the origin message")
	}
}

// Bind creates or replaces the counting channel for a guild, restarting
// the count at zero. The in-memory state is applied even when the store
// write fails; the error is returned so the caller can report it.
func (s *Service) Bind(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, webhookID discord.WebhookID, webhookToken string) error {
	gs := s.lockGuild(guildID)
	defer gs.mu.Unlock()

	gs.channelID = channelID
	gs.webhookID = webhookID
	gs.webhookToken = webhookToken
	gs.count = 0
	gs.lastAuthor = 0

	counter := store.DefaultCounter(guildID.String(), channelID.String(), webhookID.String(), webhookToken)
	if err := s.store.UpsertCounter(ctx, counter); err != nil {
		return fmt.Errorf("failed to persist the binding: %w", err)
	}

	return nil
}

// Unbind removes the binding and counter for a guild. History rows in the
// store are retained.
func (s *Service) Unbind(ctx context.Context, guildID discord.GuildID) error {
	gs, ok := s.guild(guildID)
	if !ok {
		return ErrNotBound
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.bound() {
		return ErrNotBound
	}

	// An evaluation that was waiting on this lock will see the zeroed
	// binding and ignore its message.
	gs.channelID = 0
	gs.webhookID = 0
	gs.webhookToken = ""
	gs.count = 0
	gs.lastAuthor = 0

	err := s.store.DeleteCounter(ctx, guildID.String())

	// Evicted only after the store delete resolves. A concurrent Bind
	// stays parked on this guild's mutex until then, so its upsert can
	// never race the delete and leave the cache and store disagreeing
	// about whether the guild is bound.
	s.mu.Lock()
	delete(s.guilds, guildID)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to remove the binding: %w", err)
	}

	return nil
}

// SetCount overrides the current count and clears the last author, so
// anyone may post the next number.
func (s *Service) SetCount(ctx context.Context, guildID discord.GuildID, n int64) error {
	if n < 0 {
		return ErrNegativeCount
	}

	gs, ok := s.guild(guildID)
	if !ok {
		return ErrNotBound
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.bound() {
		return ErrNotBound
	}

	gs.count = n
	gs.lastAuthor = 0

	if err := s.store.UpdateCount(ctx, guildID.String(), n, ""); err != nil {
		return fmt.Errorf("failed to persist the count: %w", err)
	}

	return nil
}

func (s *Service) Reset(ctx context.Context, guildID discord.GuildID) error {
	return s.SetCount(ctx, guildID, 0)
}

func (s *Service) Status(guildID discord.GuildID) (Status, error) {
	gs, ok := s.guild(guildID)
	if !ok {
		return Status{}, ErrNotBound
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.bound() {
		return Status{}, ErrNotBound
	}

	return Status{ChannelID: gs.channelID, Count: gs.count}, nil
}

func (s *Service) guild(guildID discord.GuildID) (*guildState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gs, ok := s.guilds[guildID]
	return gs, ok
}

// lockGuild returns the guild's state with its mutex held, creating the
// entry if needed. After acquiring the mutex it re-checks that the state
// is still the one installed in the map: an unbind may have evicted it
// while we waited, and mutating the orphan would strand the binding
// outside the map. In that case the lookup starts over.
func (s *Service) lockGuild(guildID discord.GuildID) *guildState {
	for {
		s.mu.Lock()
		gs, ok := s.guilds[guildID]
		if !ok {
			gs = &guildState{}
			s.guilds[guildID] = gs
		}
		s.mu.Unlock()

		gs.mu.Lock()

		s.mu.RLock()
		installed := s.guilds[guildID]
		s.mu.RUnlock()

		if installed == gs {
			return gs
		}

		gs.mu.Unlock()
	}
}

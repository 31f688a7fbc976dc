package mongo

import (
	"context"
	"time"

	"github.com/VTGare/Tally/ctxzap"
	"github.com/VTGare/Tally/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterStore struct {
	db      *mongo.Database
	col     *mongo.Collection
	history *mongo.Collection
}

func (cs *counterStore) Counter(ctx context.Context, guildID string) (*store.Counter, error) {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	res := cs.col.FindOne(ctx, bson.M{"guild_id": guildID})

	var counter store.Counter
	err := res.Decode(&counter)
	if err != nil {
		log.With("guild_id", guildID, "error", err).
			Error("failed to decode a counter")

		return nil, handleCounterError(err)
	}

	return &counter, nil
}

func (cs *counterStore) Counters(ctx context.Context) ([]*store.Counter, error) {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	cur, err := cs.col.Find(ctx, bson.M{})
	if err != nil {
		log.With("error", err).Error("failed to find counters")
		return nil, handleCounterError(err)
	}

	defer cur.Close(ctx)

	counters := make([]*store.Counter, 0)
	for cur.Next(ctx) {
		var counter store.Counter
		if err := cur.Decode(&counter); err != nil {
			// A single undecodable document shouldn't take the
			// rest of the guilds down with it.
			log.With("error", err).Error("failed to decode a counter, skipping")
			continue
		}

		counters = append(counters, &counter)
	}

	if err := cur.Err(); err != nil {
		log.With("error", err).Error("counter cursor error")
		return counters, handleCounterError(err)
	}

	return counters, nil
}

func (cs *counterStore) UpsertCounter(ctx context.Context, counter *store.Counter) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	_, err := cs.col.ReplaceOne(ctx,
		bson.M{"guild_id": counter.GuildID},
		counter,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		log.With("counter", counter, "error", err).
			Error("failed to upsert a counter")
		return handleCounterError(err)
	}

	return nil
}

func (cs *counterStore) UpdateCount(ctx context.Context, guildID string, count int64, lastAuthorID string) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	res, err := cs.col.UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$set": bson.M{
			"current_count":  count,
			"last_author_id": lastAuthorID,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		log.With("guild_id", guildID, "count", count, "error", err).
			Error("failed to update a counter")
		return handleCounterError(err)
	}

	if res.MatchedCount == 0 {
		return store.ErrCounterNotFound
	}

	return nil
}

func (cs *counterStore) DeleteCounter(ctx context.Context, guildID string) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	_, err := cs.col.DeleteOne(ctx, bson.M{"guild_id": guildID})
	if err != nil {
		log.With("guild_id", guildID, "error", err).
			Error("failed to delete a counter")
		return handleCounterError(err)
	}

	return nil
}

func (cs *counterStore) AppendHistory(ctx context.Context, entry *store.HistoryEntry) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	_, err := cs.history.InsertOne(ctx, entry)
	if err != nil {
		log.With("entry", entry, "error", err).
			Error("failed to insert a history entry")
		return handleCounterError(err)
	}

	return nil
}

func handleCounterError(err error) error {
	switch err {
	case mongo.ErrNoDocuments:
		return store.ErrCounterNotFound
	default:
		return store.ErrInternal
	}
}

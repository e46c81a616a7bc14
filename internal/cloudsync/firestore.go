package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	"github.com/israel-dryer/greed/internal/greed"
	"github.com/israel-dryer/greed/internal/store"
)

const appPrefix = "greed"

// firestoreBatchLimit stays under the 500-write commit cap.
const firestoreBatchLimit = 450

var collections = []string{"players", "games", "turns", "settings"}

// syncDoc is the cloud document shape: the record travels as its JSON
// encoding, the same document form the local store keeps, so the two
// sides never disagree about field mapping.
type syncDoc struct {
	ID     int64  `firestore:"id"`
	Record string `firestore:"record"`
}

// Firestore syncs the local store against a Google Cloud Firestore
// project. Documents live at users/{uid}/greed-{collection}/{id}.
type Firestore struct {
	client  *firestore.Client
	store   store.Store
	uid     string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFirestore creates a syncer for the given project and user id.
func NewFirestore(ctx context.Context, st store.Store, projectID, uid string, timeout time.Duration) (*Firestore, error) {
	if uid == "" {
		return nil, fmt.Errorf("cloud sync requires a user id")
	}
	// The client outlives any single call, so it gets the raw context.
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Firestore{
		client:  client,
		store:   st,
		uid:     uid,
		timeout: timeout,
		logger:  log.With().Str("component", "cloudsync").Logger(),
	}, nil
}

// Close releases the firestore client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) collection(name string) *firestore.CollectionRef {
	return f.client.Collection("users").Doc(f.uid).Collection(appPrefix + "-" + name)
}

// withTimeoutContext configures the context to timeout when running
// the function.
func (f *Firestore) withTimeoutContext(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return fn(ctx)
}

// batcher accumulates writes and commits in chunks.
type batcher struct {
	client *firestore.Client
	batch  *firestore.WriteBatch
	n      int
}

func (b *batcher) set(ctx context.Context, ref *firestore.DocumentRef, id int64, record any) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record %d: %w", id, err)
	}
	if b.batch == nil {
		b.batch = b.client.Batch()
	}
	b.batch.Set(ref, syncDoc{ID: id, Record: string(encoded)})
	b.n++
	if b.n >= firestoreBatchLimit {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if b.batch == nil {
		return nil
	}
	_, err := b.batch.Commit(ctx)
	b.batch = nil
	b.n = 0
	return err
}

// Push implements Syncer. Every local record is uploaded whole.
func (f *Firestore) Push(ctx context.Context) error {
	batchID := uuid.NewString()
	started := time.Now()

	err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		b := &batcher{client: f.client}

		players, err := f.store.Players().List(ctx)
		if err != nil {
			return fmt.Errorf("loading players: %w", err)
		}
		for _, p := range players {
			if err := b.set(ctx, f.collection("players").Doc(docID(p.ID)), p.ID, p); err != nil {
				return err
			}
		}

		games, err := f.store.Games().List(ctx)
		if err != nil {
			return fmt.Errorf("loading games: %w", err)
		}
		for _, g := range games {
			if err := b.set(ctx, f.collection("games").Doc(docID(g.ID)), g.ID, g); err != nil {
				return err
			}
		}

		for _, g := range games {
			turns, err := f.store.Turns().ByGame(ctx, g.ID)
			if err != nil {
				return fmt.Errorf("loading turns for game %d: %w", g.ID, err)
			}
			for _, t := range turns {
				if err := b.set(ctx, f.collection("turns").Doc(docID(t.ID)), t.ID, t); err != nil {
					return err
				}
			}
		}

		settings, err := f.store.Settings().Get(ctx)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if err := b.set(ctx, f.collection("settings").Doc("1"), 1, settings); err != nil {
			return err
		}

		return b.flush(ctx)
	})
	if err != nil {
		return fmt.Errorf("pushing to cloud: %w", err)
	}

	f.logger.Info().
		Str("batch_id", batchID).
		Dur("elapsed", time.Since(started)).
		Msg("Data synced to cloud")
	return nil
}

// Pull implements Syncer. Collections with cloud data replace the
// local copies entirely; empty cloud collections leave local data
// alone.
func (f *Firestore) Pull(ctx context.Context) error {
	err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		players, err := pullRecords[greed.Player](ctx, f, "players")
		if err != nil {
			return err
		}
		games, err := pullRecords[greed.Game](ctx, f, "games")
		if err != nil {
			return err
		}
		turns, err := pullRecords[greed.Turn](ctx, f, "turns")
		if err != nil {
			return err
		}
		settingsList, err := pullRecords[greed.Settings](ctx, f, "settings")
		if err != nil {
			return err
		}

		if len(players) > 0 {
			if err := f.store.Players().Clear(ctx); err != nil {
				return err
			}
			for _, p := range players {
				if err := f.store.Players().Put(ctx, p); err != nil {
					return err
				}
			}
		}
		if len(games) > 0 {
			if err := f.store.Games().Clear(ctx); err != nil {
				return err
			}
			for _, g := range games {
				if err := f.store.Games().Put(ctx, g); err != nil {
					return err
				}
			}
		}
		if len(turns) > 0 {
			if err := f.store.Turns().Clear(ctx); err != nil {
				return err
			}
			for _, t := range turns {
				if err := f.store.Turns().Put(ctx, t); err != nil {
					return err
				}
			}
		}
		if len(settingsList) > 0 {
			if err := f.store.Settings().Update(ctx, settingsList[0]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pulling from cloud: %w", err)
	}

	f.logger.Info().Msg("Data synced from cloud")
	return nil
}

// Wipe implements Syncer.
func (f *Firestore) Wipe(ctx context.Context) error {
	err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		for _, name := range collections {
			iter := f.collection(name).Documents(ctx)
			for {
				doc, err := iter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					return err
				}
				if _, err := doc.Ref.Delete(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("wiping cloud data: %w", err)
	}

	f.logger.Info().Msg("Cloud data deleted")
	return nil
}

// pullRecords reads and decodes every document in one cloud
// collection.
func pullRecords[T any](ctx context.Context, f *Firestore, name string) ([]*T, error) {
	var out []*T
	iter := f.collection(name).Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		var sd syncDoc
		if err := doc.DataTo(&sd); err != nil {
			return nil, fmt.Errorf("reading %s document %s: %w", name, doc.Ref.ID, err)
		}
		record := new(T)
		if err := json.Unmarshal([]byte(sd.Record), record); err != nil {
			return nil, fmt.Errorf("decoding %s document %s: %w", name, doc.Ref.ID, err)
		}
		out = append(out, record)
	}
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

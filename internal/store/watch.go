package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskcolab/internal/models"
)

// Subscription is a live view on one query: an initial snapshot, then a
// fresh snapshot after every change to the underlying collection. Each
// snapshot is a wholesale replacement; nothing is patched incrementally.
// Close releases the change stream and is safe to call more than once.
type Subscription[T any] struct {
	snapshots chan []T
	errs      chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *Subscription[T]) Snapshots() <-chan []T {
	return s.snapshots
}

func (s *Subscription[T]) Errs() <-chan error {
	return s.errs
}

func (s *Subscription[T]) Close() {
	s.closeOnce.Do(s.cancel)
}

// WatchRooms subscribes to the rooms visible to uid. With ordered set the
// find is pinned by hint to the compound index backing the preferred shape;
// if that index is missing the error carries the missing-index class and
// the caller degrades to ordered=false.
func (m *Mongo) WatchRooms(ctx context.Context, uid string, ordered bool) (*Subscription[models.Room], error) {
	filter := bson.M{"members": uid}
	var opts *options.FindOptions
	if ordered {
		opts = options.Find().
			SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
			SetHint(IndexRoomsMembersUpdatedAt)
	}
	return watchCollection[models.Room](ctx, m.database.Collection(CollectionRooms), filter, opts)
}

// WatchTasks subscribes to a room's tasks: manual order ascending, then
// recency, per the preferred shape. Same degradation contract as WatchRooms.
func (m *Mongo) WatchTasks(ctx context.Context, roomID string, ordered bool) (*Subscription[models.Task], error) {
	filter := bson.M{"roomId": roomID}
	var opts *options.FindOptions
	if ordered {
		opts = options.Find().
			SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}}).
			SetHint(IndexTasksOrderCreatedAt)
	}
	return watchCollection[models.Task](ctx, m.database.Collection(CollectionTasks), filter, opts)
}

func watchCollection[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) (*Subscription[T], error) {
	wctx, cancel := context.WithCancel(ctx)

	stream, err := coll.Watch(wctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, err
	}

	// The first query runs before any events so a missing index fails the
	// subscription synchronously instead of on the first change.
	first, err := runQuery[T](wctx, coll, filter, opts)
	if err != nil {
		stream.Close(context.Background())
		cancel()
		return nil, err
	}

	sub := &Subscription[T]{
		snapshots: make(chan []T),
		errs:      make(chan error, 1),
		cancel:    cancel,
	}

	go func() {
		defer close(sub.snapshots)
		defer stream.Close(context.Background())
		defer cancel()

		if !deliver(wctx, sub.snapshots, first) {
			return
		}

		// Any event on the collection triggers a re-query of this filter;
		// delete events carry no full document to match against.
		for stream.Next(wctx) {
			snapshot, err := runQuery[T](wctx, coll, filter, opts)
			if err != nil {
				sub.errs <- err
				return
			}
			if !deliver(wctx, sub.snapshots, snapshot) {
				return
			}
		}
		if err := stream.Err(); err != nil && wctx.Err() == nil {
			sub.errs <- err
		}
	}()

	return sub, nil
}

func runQuery[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = coll.Find(ctx, filter, opts)
	} else {
		cursor, err = coll.Find(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deliver[T any](ctx context.Context, ch chan<- []T, snapshot []T) bool {
	select {
	case ch <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}

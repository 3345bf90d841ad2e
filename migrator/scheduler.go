package migrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
)

// DefaultConcurrency is the worker pool width used when none is configured.
const DefaultConcurrency = 50

// runPool calls handle for every record on at most limit goroutines. The first
// error cancels the context handed to the remaining calls and is returned once
// all started calls have finished.
func runPool[T any](ctx context.Context, limit int, records []T, handle func(context.Context, T) error) error {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		record := record
		g.Go(func() error {
			return handle(ctx, record)
		})
	}
	return g.Wait()
}

// RoomMessages is the ordered message list of one room.
type RoomMessages struct {
	RoomID   string
	Messages []rocketchat.Message
}

// GroupByRoom buckets messages by room. Rooms appear in the order of their
// first message and each bucket keeps the input order.
func GroupByRoom(messages []rocketchat.Message) []RoomMessages {
	index := make(map[string]int)
	var groups []RoomMessages
	for _, msg := range messages {
		i, ok := index[msg.RoomID]
		if !ok {
			i = len(groups)
			index[msg.RoomID] = i
			groups = append(groups, RoomMessages{RoomID: msg.RoomID})
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}
	return groups
}

// runRoomGroups processes each room's messages strictly in order, with up to
// limit rooms in flight.
func runRoomGroups(ctx context.Context, limit int, groups []RoomMessages, handle func(context.Context, rocketchat.Message) error) error {
	return runPool(ctx, limit, groups, func(ctx context.Context, group RoomMessages) error {
		for _, msg := range group.Messages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := handle(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

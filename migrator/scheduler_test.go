package migrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
)

func TestGroupByRoom(t *testing.T) {
	messages := []rocketchat.Message{
		{ID: "1", RoomID: "b"},
		{ID: "2", RoomID: "a"},
		{ID: "3", RoomID: "b"},
		{ID: "4", RoomID: "c"},
		{ID: "5", RoomID: "a"},
	}

	groups := GroupByRoom(messages)
	require.Len(t, groups, 3)

	ids := func(g RoomMessages) []string {
		var out []string
		for _, msg := range g.Messages {
			out = append(out, msg.ID)
		}
		return out
	}
	assert.Equal(t, "b", groups[0].RoomID)
	assert.Equal(t, []string{"1", "3"}, ids(groups[0]))
	assert.Equal(t, "a", groups[1].RoomID)
	assert.Equal(t, []string{"2", "5"}, ids(groups[1]))
	assert.Equal(t, "c", groups[2].RoomID)
	assert.Equal(t, []string{"4"}, ids(groups[2]))

	assert.Empty(t, GroupByRoom(nil))
}

func TestRunPoolBoundsConcurrency(t *testing.T) {
	records := make([]int, 40)
	var inFlight, peak, calls int32

	err := runPool(context.Background(), 3, records, func(context.Context, int) error {
		current := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(40), calls)
	assert.LessOrEqual(t, peak, int32(3))
}

func TestRunPoolFirstErrorCancels(t *testing.T) {
	records := make([]int, 100)
	for i := range records {
		records[i] = i
	}

	var calls int32
	err := runPool(context.Background(), 1, records, func(ctx context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 2 {
			return assert.AnError
		}
		return ctx.Err()
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Less(t, atomic.LoadInt32(&calls), int32(100))
}

func TestRunRoomGroupsKeepsRoomOrder(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string][]string)

	messages := []rocketchat.Message{
		{ID: "a1", RoomID: "a"},
		{ID: "b1", RoomID: "b"},
		{ID: "a2", RoomID: "a"},
		{ID: "b2", RoomID: "b"},
		{ID: "a3", RoomID: "a"},
	}

	err := runRoomGroups(context.Background(), 2, GroupByRoom(messages), func(_ context.Context, msg rocketchat.Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen[msg.RoomID] = append(seen[msg.RoomID], msg.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, seen["a"])
	assert.Equal(t, []string{"b1", "b2"}, seen["b"])
}

func TestRunRoomGroupsStopsRoomOnError(t *testing.T) {
	var handled []string
	messages := []rocketchat.Message{{ID: "a1", RoomID: "a"}, {ID: "a2", RoomID: "a"}, {ID: "a3", RoomID: "a"}}

	err := runRoomGroups(context.Background(), 1, GroupByRoom(messages), func(_ context.Context, msg rocketchat.Message) error {
		handled = append(handled, msg.ID)
		if msg.ID == "a2" {
			return assert.AnError
		}
		return nil
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"a1", "a2"}, handled)
}

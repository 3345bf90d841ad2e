package migrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// PinnedEvents is the ordered pinned event ids of one Matrix room.
type PinnedEvents struct {
	RoomID   string
	EventIDs []string
}

// collectPinnedEvents resolves pinned messages to their events, grouped by
// room in order of first appearance. Unmigrated rooms and messages are left
// out.
func (m *Migrator) collectPinnedEvents(ctx context.Context, messages []rocketchat.Message) ([]PinnedEvents, error) {
	index := make(map[string]int)
	var pinned []PinnedEvents
	for _, msg := range messages {
		if !msg.Pinned {
			continue
		}

		room, err := m.store.GetMapping(ctx, msg.RoomID, store.KindRoom)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up room %s", msg.RoomID)
		}
		if room == nil || room.TargetID == "" {
			m.logger.LogWarn("Room of pinned message was not migrated", "room_id", msg.RoomID, "message_id", msg.ID)
			continue
		}
		event, err := m.store.GetMapping(ctx, msg.ID, store.KindMessage)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up message %s", msg.ID)
		}
		if event == nil || event.TargetID == "" {
			m.logger.LogWarn("Pinned message was not migrated", "message_id", msg.ID)
			continue
		}

		i, ok := index[room.TargetID]
		if !ok {
			i = len(pinned)
			index[room.TargetID] = i
			pinned = append(pinned, PinnedEvents{RoomID: room.TargetID})
		}
		pinned[i].EventIDs = append(pinned[i].EventIDs, event.TargetID)
	}
	return pinned, nil
}

// reconcilePinnedMessages writes m.room.pinned_events for every room that has
// pinned messages, acting as the room creator.
func (m *Migrator) reconcilePinnedMessages(ctx context.Context, messages []rocketchat.Message) error {
	pinned, err := m.collectPinnedEvents(ctx, messages)
	if err != nil {
		return err
	}

	for _, room := range pinned {
		if err := m.pinEvents(ctx, room); err != nil {
			return err
		}
	}
	return nil
}

// pinEvents sets the pinned events as the room creator. When the creator is
// no longer allowed to, for instance after leaving the room, the admin is
// tried once and the room is skipped if that is refused too.
func (m *Migrator) pinEvents(ctx context.Context, room PinnedEvents) error {
	cred, err := m.healer.CreatorSession(ctx, room.RoomID)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve creator of %s", room.RoomID)
	}
	m.logger.LogInfo("Pinning messages", "matrix_room_id", room.RoomID, "count", len(room.EventIDs), "as", cred.UserID)

	err = m.api.SetPinnedEvents(ctx, cred, room.RoomID, room.EventIDs)
	if matrix.IsForbidden(err) && cred.UserID != m.sessions.AdminUserID() {
		m.logger.LogWarn("Creator may not pin messages, retrying as admin", "matrix_room_id", room.RoomID, "matrix_user_id", cred.UserID)
		err = m.api.SetPinnedEvents(ctx, m.sessions.SessionForAdmin(), room.RoomID, room.EventIDs)
	}
	if matrix.IsForbidden(err) {
		m.logger.LogWarn("Not allowed to pin messages, skipping room", "matrix_room_id", room.RoomID, "error", err.Error())
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to pin messages in %s", room.RoomID)
	}
	return nil
}

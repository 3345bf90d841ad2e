package migrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// reconcileMemberships removes every joined member of a migrated room that was
// not a member in Rocket.Chat, except the admin, and marks the room as read
// for the expected members.
func (m *Migrator) reconcileMemberships(ctx context.Context) error {
	rooms, err := m.store.ListByKind(ctx, store.KindRoom)
	if err != nil {
		return errors.Wrap(err, "failed to list migrated rooms")
	}

	return runPool(ctx, m.config.Concurrency, rooms, func(ctx context.Context, room store.IdMapping) error {
		if room.TargetID == "" {
			return nil
		}
		return m.reconcileRoomMembers(ctx, room)
	})
}

func (m *Migrator) reconcileRoomMembers(ctx context.Context, room store.IdMapping) error {
	m.logger.LogInfo("Checking memberships", "room_id", room.SourceID, "matrix_room_id", room.TargetID)

	expected, err := m.expectedMembers(ctx, room.SourceID)
	if err != nil {
		return err
	}

	// The creator may have left the room.
	actual, err := m.api.JoinedMembers(ctx, m.sessions.ApplicationServiceSession(""), room.TargetID)
	if err != nil {
		return err
	}

	adminID := m.sessions.AdminUserID()
	for _, member := range actual {
		if member == adminID {
			continue
		}
		memberCred, err := m.sessions.SessionForTarget(ctx, member)
		if err != nil {
			return errors.Wrapf(err, "joined member %s of %s has no access token, this is a bug", member, room.TargetID)
		}

		if _, ok := expected[member]; !ok {
			m.logger.LogWarn("Member should not be in room, removing", "matrix_user_id", member, "matrix_room_id", room.TargetID)
			if err := m.api.LeaveRoom(ctx, memberCred, room.TargetID, ""); err != nil {
				return errors.Wrapf(err, "failed to remove %s from %s", member, room.TargetID)
			}
			continue
		}

		if err := m.markRead(ctx, memberCred, room.TargetID); err != nil {
			return err
		}
	}
	return nil
}

// expectedMembers returns the Matrix ids of the migrated Rocket.Chat members of
// a room.
func (m *Migrator) expectedMembers(ctx context.Context, sourceRoomID string) (map[string]struct{}, error) {
	members, err := m.store.ListMembers(ctx, sourceRoomID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list members of %s", sourceRoomID)
	}

	expected := make(map[string]struct{}, len(members))
	for _, member := range members {
		mapping, err := m.store.GetMapping(ctx, member, store.KindUser)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up user %s", member)
		}
		if mapping != nil && mapping.TargetID != "" {
			expected[mapping.TargetID] = struct{}{}
		}
	}
	return expected, nil
}

// markRead sends a read receipt for the newest message of the room.
func (m *Migrator) markRead(ctx context.Context, cred matrix.Credential, roomID string) error {
	eventID, err := m.api.LatestMessageEventID(ctx, cred, roomID)
	if err != nil {
		return err
	}
	if eventID == "" {
		m.logger.LogInfo("No messages in room, skipping read receipt", "matrix_room_id", roomID, "matrix_user_id", cred.UserID)
		return nil
	}

	if err := m.api.SendReadReceipt(ctx, cred, roomID, eventID); err != nil {
		return errors.Wrapf(err, "failed to mark %s as read for %s", roomID, cred.UserID)
	}
	m.logger.LogDebug("Room marked as read", "matrix_room_id", roomID, "matrix_user_id", cred.UserID, "event_id", eventID)
	return nil
}

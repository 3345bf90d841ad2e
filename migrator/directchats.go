package migrator

import (
	"context"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// DirectChats maps a Matrix room id to the users joined to it.
type DirectChats map[string][]string

// UserDirectChats is the m.direct content of each user: partner -> room ids.
type UserDirectChats map[string]map[string][]string

// ParseDirectChats computes, for every user of every direct chat, which rooms
// they share with each other participant. rooms fixes the order in which room
// ids are added.
func ParseDirectChats(rooms []string, chats DirectChats) UserDirectChats {
	result := make(UserDirectChats)
	for _, roomID := range rooms {
		users := chats[roomID]
		for _, user := range users {
			if result[user] == nil {
				result[user] = make(map[string][]string)
			}
			for _, other := range users {
				if other == user {
					continue
				}
				if !containsString(result[user][other], roomID) {
					result[user][other] = append(result[user][other], roomID)
				}
			}
		}
	}
	return result
}

// reconcileDirectChats marks migrated direct rooms as such in every
// participant's m.direct account data. Existing account data is never
// overwritten; a differing value is logged.
func (m *Migrator) reconcileDirectChats(ctx context.Context, rooms []rocketchat.Room) error {
	chats := make(DirectChats)
	var order []string
	for _, room := range rooms {
		if room.Kind() != rocketchat.RoomKindDirect {
			continue
		}
		mapping, err := m.store.GetMapping(ctx, room.ID, store.KindRoom)
		if err != nil {
			return errors.Wrapf(err, "failed to look up room %s", room.ID)
		}
		if mapping == nil || mapping.TargetID == "" {
			m.logger.LogWarn("Direct room was not migrated, not marking it as direct chat", "room_id", room.ID)
			continue
		}
		if _, seen := chats[mapping.TargetID]; seen {
			continue
		}

		members, err := m.api.JoinedMembers(ctx, m.sessions.ApplicationServiceSession(""), mapping.TargetID)
		if err != nil {
			return err
		}
		chats[mapping.TargetID] = members
		order = append(order, mapping.TargetID)
	}

	perUser := ParseDirectChats(order, chats)
	m.logger.LogInfo("Setting direct chats", "users", len(perUser))

	users := make([]string, 0, len(perUser))
	for user := range perUser {
		users = append(users, user)
	}
	sort.Strings(users)

	for _, user := range users {
		if err := m.setDirectChats(ctx, user, perUser[user]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) setDirectChats(ctx context.Context, user string, expected map[string][]string) error {
	cred, err := m.sessions.SessionForTarget(ctx, user)
	if IsNoCredential(err) {
		m.logger.LogWarn("Direct chat participant has no credential, skipping", "matrix_user_id", user)
		return nil
	}
	if err != nil {
		return err
	}

	current, exists, err := m.api.GetDirectChats(ctx, cred, user)
	if err != nil {
		return err
	}
	if exists && len(current) > 0 {
		if reflect.DeepEqual(current, expected) {
			m.logger.LogDebug("Direct chats already configured", "matrix_user_id", user)
		} else {
			m.logger.LogWarn("User already has different direct chats, leaving them unchanged", "matrix_user_id", user, "expected", expected, "actual", current)
		}
		return nil
	}

	if err := m.api.SetDirectChats(ctx, cred, user, expected); err != nil {
		return err
	}
	m.logger.LogDebug("Direct chats set", "matrix_user_id", user, "partners", len(expected))
	return nil
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

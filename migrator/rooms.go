package migrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// ErrUnsupportedRoomKind is returned for room types that have no Matrix
// counterpart, such as livechat rooms.
var ErrUnsupportedRoomKind = errors.New("unsupported room kind")

// RoomImporter creates Matrix rooms for Rocket.Chat rooms and fills them with
// their members.
type RoomImporter struct {
	api      MatrixAPI
	store    store.Store
	sessions *SessionProvider
	healer   *Healer
	logger   Logger
}

func newRoomImporter(m *Migrator) *RoomImporter {
	return &RoomImporter{
		api:      m.api,
		store:    m.store,
		sessions: m.sessions,
		healer:   m.healer,
		logger:   m.logger,
	}
}

// roomPlan is the creation request for a room and the Rocket.Chat user who
// should own it.
type roomPlan struct {
	request   matrix.CreateRoomRequest
	creatorID string
}

// planRoom maps a Rocket.Chat room onto a createRoom request.
func planRoom(room rocketchat.Room) (roomPlan, error) {
	plan := roomPlan{
		request: matrix.CreateRoomRequest{
			Name:            room.Name,
			RoomAliasName:   room.Name,
			Topic:           room.Description,
			CreationContent: map[string]any{"m.federate": false},
		},
	}

	switch kind := room.Kind(); kind {
	case rocketchat.RoomKindDirect:
		plan.request.IsDirect = true
		plan.request.Preset = matrix.PresetTrustedPrivateChat
		if len(room.UIDs) > 0 {
			plan.creatorID = room.UIDs[0]
		}
	case rocketchat.RoomKindChannel:
		plan.request.Preset = matrix.PresetPublicChat
		plan.request.Visibility = matrix.VisibilityPublic
		if room.Owner != nil {
			plan.creatorID = room.Owner.ID
		}
	case rocketchat.RoomKindPrivate:
		plan.request.Preset = matrix.PresetPrivateChat
		if room.Owner != nil {
			plan.creatorID = room.Owner.ID
		}
	case rocketchat.RoomKindLive, rocketchat.RoomKindUnknown:
		return plan, errors.Wrapf(ErrUnsupportedRoomKind, "room %s has type %q (%s)", room.ID, room.Type, kind)
	default:
		return plan, errors.Wrapf(ErrUnsupportedRoomKind, "room %s has type %q", room.ID, room.Type)
	}
	return plan, nil
}

// Handle migrates one room.
func (i *RoomImporter) Handle(ctx context.Context, room rocketchat.Room) error {
	mapping, err := i.store.GetMapping(ctx, room.ID, store.KindRoom)
	if err != nil {
		return errors.Wrapf(err, "failed to look up room %s", room.ID)
	}
	if mapping != nil && mapping.TargetID != "" {
		i.logger.LogDebug("Room already migrated", "room_id", room.ID, "matrix_room_id", mapping.TargetID)
		return nil
	}

	plan, err := planRoom(room)
	if errors.Is(err, ErrUnsupportedRoomKind) {
		i.logger.LogWarn("Skipping room", "room_id", room.ID, "error", err.Error())
		return nil
	}
	if err != nil {
		return err
	}
	if room.Kind() == rocketchat.RoomKindDirect && len(room.UIDs) == 0 {
		i.logger.LogWarn("Direct room has no participants, skipping", "room_id", room.ID)
		return nil
	}

	creator := i.creatorSession(ctx, room, plan.creatorID)

	roomID, err := i.api.CreateRoom(ctx, creator, plan.request)
	if err != nil {
		return errors.Wrapf(err, "failed to create room for %s", room.ID)
	}
	if err := i.store.Save(ctx, store.IdMapping{SourceID: room.ID, Kind: store.KindRoom, TargetID: roomID}); err != nil {
		return errors.Wrapf(err, "failed to save mapping for room %s", room.ID)
	}
	i.healer.RememberCreator(roomID, creator.UserID)
	i.logger.LogInfo("Room migrated", "room_id", room.ID, "name", room.Name, "kind", room.Kind().String(), "matrix_room_id", roomID)

	if room.Kind() == rocketchat.RoomKindDirect {
		for _, uid := range uniqueStrings(room.UIDs) {
			if err := i.store.CreateMembership(ctx, room.ID, uid); err != nil {
				return errors.Wrapf(err, "failed to record membership of %s in %s", uid, room.ID)
			}
		}
	}

	return i.addMembers(ctx, room.ID, roomID, creator)
}

// creatorSession resolves the room owner's credential, falling back to the
// admin when the owner is unknown or was not migrated.
func (i *RoomImporter) creatorSession(ctx context.Context, room rocketchat.Room, creatorID string) matrix.Credential {
	if creatorID == "" {
		i.logger.LogWarn("Room creator could not be determined, creating as admin", "room_id", room.ID, "name", room.Name)
		return i.sessions.SessionForAdmin()
	}
	cred, err := i.sessions.SessionFor(ctx, creatorID)
	if err != nil {
		i.logger.LogWarn("Room creator has no credential, creating as admin", "room_id", room.ID, "creator_id", creatorID, "error", err.Error())
		return i.sessions.SessionForAdmin()
	}
	return cred
}

// addMembers invites every recorded member of the room that was migrated and
// lets them join.
func (i *RoomImporter) addMembers(ctx context.Context, sourceRoomID, roomID string, creator matrix.Credential) error {
	members, err := i.store.ListMembers(ctx, sourceRoomID)
	if err != nil {
		return errors.Wrapf(err, "failed to list members of %s", sourceRoomID)
	}

	for _, member := range members {
		cred, err := i.sessions.SessionFor(ctx, member)
		if IsNoCredential(err) {
			i.logger.LogDebug("Member was not migrated, not inviting", "room_id", sourceRoomID, "user_id", member)
			continue
		}
		if err != nil {
			return err
		}
		if cred.UserID == creator.UserID {
			continue
		}

		if err := i.healer.InviteAndJoin(ctx, creator, roomID, cred); err != nil {
			return err
		}
	}
	return nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}

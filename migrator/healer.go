package migrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
)

// Healer runs homeserver requests and repairs the case where the acting user
// is not (yet) a member of the target room.
//
// A request that fails with 403 M_FORBIDDEN on a room-scoped endpoint is
// healed by having the room creator, or the admin when the creator is
// unknown, invite the actor, after which the actor joins with its own
// credential. The request is then retried exactly once.
type Healer struct {
	api      MatrixAPI
	sessions *SessionProvider
	creators *CreatorCache
	logger   Logger
}

// NewHealer creates a Healer.
func NewHealer(api MatrixAPI, sessions *SessionProvider, creators *CreatorCache, logger Logger) *Healer {
	if logger == nil {
		logger = nopLogger{}
	}
	if creators == nil {
		creators = NewCreatorCache()
	}
	return &Healer{
		api:      api,
		sessions: sessions,
		creators: creators,
		logger:   logger,
	}
}

// Execute runs fn. A duplicate annotation counts as success.
func (h *Healer) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if matrix.IsDuplicateAnnotation(err) {
		h.logger.LogDebug("Annotation already exists, skipping", "error", err.Error())
		return nil
	}

	userID, roomID, ok := matrix.ActorNotInRoom(err)
	if !ok {
		return err
	}

	actor, credErr := h.sessions.SessionForTarget(ctx, userID)
	if credErr != nil {
		h.logger.LogWarn("Cannot heal missing room member without credential", "user_id", userID, "room_id", roomID, "error", credErr.Error())
		return err
	}

	h.logger.LogInfo("Actor is not in room, inviting and retrying", "user_id", userID, "room_id", roomID)
	inviter, healErr := h.CreatorSession(ctx, roomID)
	if healErr != nil {
		return errors.Wrapf(healErr, "failed to heal membership of %s in %s", userID, roomID)
	}
	if healErr := h.InviteAndJoin(ctx, inviter, roomID, actor); healErr != nil {
		return errors.Wrapf(healErr, "failed to heal membership of %s in %s", userID, roomID)
	}

	err = fn(ctx)
	if matrix.IsDuplicateAnnotation(err) {
		h.logger.LogDebug("Annotation already exists, skipping", "error", err.Error())
		return nil
	}
	return err
}

// InviteAndJoin has inviter invite invitee into roomID and then joins the room
// as invitee. A refused invitation is logged and the join is still attempted,
// since the invitee may already be a member.
func (h *Healer) InviteAndJoin(ctx context.Context, inviter matrix.Credential, roomID string, invitee matrix.Credential) error {
	if err := h.api.InviteUser(ctx, inviter, roomID, invitee.UserID); err != nil {
		if !matrix.IsForbidden(err) {
			return errors.Wrapf(err, "failed to invite %s to %s", invitee.UserID, roomID)
		}
		h.logger.LogWarn("Invitation refused, trying to join anyway", "room_id", roomID, "inviter", inviter.UserID, "invitee", invitee.UserID, "error", err.Error())
	}

	h.logger.LogDebug("Accepting invitation", "room_id", roomID, "user_id", invitee.UserID)
	if err := h.api.JoinRoom(ctx, invitee, roomID); err != nil {
		return errors.Wrapf(err, "failed to join %s as %s", roomID, invitee.UserID)
	}
	return nil
}

// CreatorSession returns the credential of the room's creator, falling back to
// the admin credential when the creator is unknown or was not migrated.
func (h *Healer) CreatorSession(ctx context.Context, roomID string) (matrix.Credential, error) {
	creator, cached := h.creators.Get(roomID)
	if !cached {
		var err error
		creator, err = h.api.RoomCreator(ctx, h.sessions.SessionForAdmin(), roomID)
		if err != nil {
			return matrix.Credential{}, err
		}
		if creator != "" {
			if err := h.creators.Put(roomID, creator); err != nil {
				h.logger.LogDebug("Room creator not cached", "room_id", roomID, "error", err.Error())
			}
		}
	}

	if creator == "" {
		h.logger.LogWarn("Could not determine room creator, using admin credentials", "room_id", roomID)
		return h.sessions.SessionForAdmin(), nil
	}

	cred, err := h.sessions.SessionForTarget(ctx, creator)
	if IsNoCredential(err) {
		h.logger.LogWarn("Room creator has no credential, using admin credentials", "room_id", roomID, "creator", creator)
		return h.sessions.SessionForAdmin(), nil
	}
	if err != nil {
		return matrix.Credential{}, err
	}
	return cred, nil
}

// RememberCreator records the creator of a room created by this process.
func (h *Healer) RememberCreator(roomID, creatorUserID string) {
	if err := h.creators.Put(roomID, creatorUserID); err != nil {
		h.logger.LogDebug("Room creator not cached", "room_id", roomID, "error", err.Error())
	}
}

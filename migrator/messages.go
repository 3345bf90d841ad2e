package migrator

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// MessageImporter sends Rocket.Chat messages as backdated Matrix events.
//
// Messages are sent with the application service token impersonating the
// author, which lets the homeserver honour the original timestamp. The
// Rocket.Chat message id is the transaction id, so a resend after a crash is
// deduplicated by the homeserver.
type MessageImporter struct {
	api        MatrixAPI
	store      store.Store
	sessions   *SessionProvider
	healer     *Healer
	reactions  *reactionImporter
	logger     Logger
	serverName string
}

func newMessageImporter(m *Migrator) *MessageImporter {
	return &MessageImporter{
		api:        m.api,
		store:      m.store,
		sessions:   m.sessions,
		healer:     m.healer,
		reactions:  newReactionImporter(m),
		logger:     m.logger,
		serverName: m.config.ServerName,
	}
}

// Handle migrates one message.
func (i *MessageImporter) Handle(ctx context.Context, msg rocketchat.Message) error {
	mapping, err := i.store.GetMapping(ctx, msg.ID, store.KindMessage)
	if err != nil {
		return errors.Wrapf(err, "failed to look up message %s", msg.ID)
	}
	if mapping != nil && mapping.TargetID != "" {
		i.logger.LogDebug("Message already migrated", "message_id", msg.ID, "event_id", mapping.TargetID)
		return nil
	}

	roomID, err := i.targetID(ctx, msg.RoomID, store.KindRoom)
	if err != nil {
		return err
	}
	if roomID == "" {
		i.logger.LogWarn("Room of message was not migrated, skipping", "message_id", msg.ID, "room_id", msg.RoomID)
		return nil
	}

	switch msg.Kind() {
	case rocketchat.MessageKindRegular:
	case rocketchat.MessageKindLeave:
		return i.handleLeave(ctx, msg, roomID)
	case rocketchat.MessageKindNoState:
		i.logger.LogWarn("Message type has no initial state in the export, skipping", "message_id", msg.ID, "type", msg.Type)
		return nil
	default:
		i.logger.LogWarn("Message type is not handled, skipping", "message_id", msg.ID, "type", msg.Type)
		return nil
	}

	authorID, err := i.targetID(ctx, msg.User.ID, store.KindUser)
	if err != nil {
		return err
	}
	if authorID == "" {
		i.logger.LogWarn("Author of message was not migrated, skipping", "message_id", msg.ID, "author", msg.User.Username)
		return nil
	}

	content, ok, err := i.buildContent(ctx, msg, roomID)
	if err != nil || !ok {
		return err
	}

	var eventID string
	author := i.sessions.ApplicationServiceSession(authorID)
	err = i.healer.Execute(ctx, func(ctx context.Context) error {
		var sendErr error
		eventID, sendErr = i.api.SendMessage(ctx, author, roomID, msg.ID, msg.Timestamp.UnixMilli(), content)
		return sendErr
	})
	if err != nil {
		return errors.Wrapf(err, "failed to send message %s", msg.ID)
	}

	if err := i.store.Save(ctx, store.IdMapping{SourceID: msg.ID, Kind: store.KindMessage, TargetID: eventID}); err != nil {
		return errors.Wrapf(err, "failed to save mapping for message %s", msg.ID)
	}
	i.logger.LogDebug("Message migrated", "message_id", msg.ID, "event_id", eventID)

	return i.reactions.handle(ctx, msg, roomID, eventID)
}

// buildContent assembles the event content. ok is false when the message has
// to be skipped.
func (i *MessageImporter) buildContent(ctx context.Context, msg rocketchat.Message, roomID string) (matrix.MessageContent, bool, error) {
	content := matrix.MessageContent{MsgType: matrix.MsgTypeText}

	if msg.ThreadID != "" {
		parentID, err := i.targetID(ctx, msg.ThreadID, store.KindMessage)
		if err != nil {
			return content, false, err
		}
		if parentID == "" {
			i.logger.LogWarn("Thread parent was not migrated, skipping", "message_id", msg.ID, "thread_id", msg.ThreadID)
			return content, false, nil
		}
		content.RelatesTo = threadRelation(parentID)
	}

	text := msg.Msg
	quote, err := i.resolveQuote(ctx, msg, roomID)
	if err != nil {
		return content, false, err
	}
	if quote != nil {
		text = stripMessageLinks(text)
	}
	if msg.File != nil && msg.File.Name != "" {
		text = joinLines(text, fileMarker(msg.File.Name))
	}
	if strings.TrimSpace(text) == "" && quote == nil {
		i.logger.LogWarn("Message has no text, skipping", "message_id", msg.ID)
		return content, false, nil
	}

	content.Body = text
	if formatted := formatText(text); formatted != "" {
		content.Format = matrix.FormatCustomHTML
		content.FormattedBody = formatted
	}

	if quote != nil {
		content.Body = joinLines(quote.fallback(), text)
		formatted := content.FormattedBody
		if formatted == "" {
			formatted = renderMarkdown(text)
		}
		content.Format = matrix.FormatCustomHTML
		content.FormattedBody = quote.replyHTML(i.serverName) + formatted
		if quote.eventID != "" {
			if content.RelatesTo == nil {
				content.RelatesTo = &matrix.RelatesTo{}
			}
			if content.RelatesTo.RelType != matrix.RelTypeThread {
				content.RelatesTo.InReplyTo = &matrix.InReplyTo{EventID: quote.eventID}
			}
		}
	}

	mentions, err := i.mentions(ctx, msg)
	if err != nil {
		return content, false, err
	}
	if len(mentions) > 0 {
		content.Mentions = &matrix.Mentions{UserIDs: mentions}
	}
	return content, true, nil
}

// resolveQuote returns the message quoted by msg, if any.
func (i *MessageImporter) resolveQuote(ctx context.Context, msg rocketchat.Message, roomID string) (*quotedMessage, error) {
	quotedID, ok := quotedMessageID(msg.Msg)
	if !ok {
		return nil, nil
	}

	for _, attachment := range msg.Attachments {
		if !attachment.IsQuote() {
			continue
		}

		quote := &quotedMessage{roomID: roomID, text: stripMessageLinks(attachment.Text)}

		eventID, err := i.targetID(ctx, quotedID, store.KindMessage)
		if err != nil {
			return nil, err
		}
		if eventID == "" {
			i.logger.LogWarn("Quoted message was not migrated", "message_id", msg.ID, "quoted_id", quotedID)
		}
		quote.eventID = eventID

		if username, ok := avatarUsername(attachment.AuthorIcon); ok {
			author, err := i.store.GetUserByName(ctx, username)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to look up quoted author %s", username)
			}
			if author != nil {
				quote.authorID = author.TargetID
			} else {
				i.logger.LogWarn("Quoted author was not migrated", "message_id", msg.ID, "username", username)
			}
		}
		return quote, nil
	}
	return nil, nil
}

// mentions returns the Matrix ids of the migrated users mentioned in msg.
func (i *MessageImporter) mentions(ctx context.Context, msg rocketchat.Message) ([]string, error) {
	var userIDs []string
	seen := make(map[string]struct{})
	for _, mention := range msg.Mentions {
		if mention.ID == "" || mention.Username == "all" || mention.Username == "here" {
			continue
		}
		userID, err := i.targetID(ctx, mention.ID, store.KindUser)
		if err != nil {
			return nil, err
		}
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		userIDs = append(userIDs, userID)
	}
	return userIDs, nil
}

// handleLeave replays a "user left" or "user removed" system message by
// making the named user leave the room.
func (i *MessageImporter) handleLeave(ctx context.Context, msg rocketchat.Message, roomID string) error {
	i.logger.LogInfo("Removing member from room", "message_id", msg.ID, "type", msg.Type, "username", msg.Msg, "matrix_room_id", roomID)

	members, err := i.api.JoinedMembers(ctx, i.sessions.ApplicationServiceSession(""), roomID)
	if err != nil {
		return errors.Wrapf(err, "could not determine members of room %s", roomID)
	}

	var member string
	if msg.Msg != "" {
		leaving := matrix.UserID(store.FoldName(msg.Msg), i.serverName)
		for _, candidate := range members {
			if candidate == leaving {
				member = candidate
				break
			}
		}
	}
	if member == "" {
		i.logger.LogWarn("Leaving user is not a member of the room, skipping", "message_id", msg.ID, "username", msg.Msg, "matrix_room_id", roomID)
		return nil
	}

	cred, err := i.sessions.SessionForTarget(ctx, member)
	if IsNoCredential(err) {
		i.logger.LogWarn("Leaving user has no credential, skipping", "message_id", msg.ID, "matrix_user_id", member)
		return nil
	}
	if err != nil {
		return err
	}

	if err := i.api.LeaveRoom(ctx, cred, roomID, "Event type "+msg.Type); err != nil {
		return errors.Wrapf(err, "failed to remove %s from %s", member, roomID)
	}
	return nil
}

// targetID returns the Matrix id mapped to a source id, or an empty string.
func (i *MessageImporter) targetID(ctx context.Context, sourceID string, kind store.Kind) (string, error) {
	if sourceID == "" {
		return "", nil
	}
	mapping, err := i.store.GetMapping(ctx, sourceID, kind)
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up %s %s", kind, sourceID)
	}
	if mapping == nil {
		return "", nil
	}
	return mapping.TargetID, nil
}

func joinLines(lines ...string) string {
	var nonEmpty []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

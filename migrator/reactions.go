package migrator

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// reactionNamespace scopes the deterministic reaction transaction ids.
var reactionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://rocket.chat/reactions"))

type reactionImporter struct {
	api    MatrixAPI
	store  store.Store
	healer *Healer
	logger Logger
}

func newReactionImporter(m *Migrator) *reactionImporter {
	return &reactionImporter{
		api:    m.api,
		store:  m.store,
		healer: m.healer,
		logger: m.logger,
	}
}

// reactionTxnID derives a stable transaction id for one user's reaction, so a
// repeated run reuses it.
func reactionTxnID(messageID, key, username string) string {
	return uuid.NewSHA1(reactionNamespace, []byte(messageID+"\x00"+key+"\x00"+username)).String()
}

// handle sends one annotation per emoji and reacting user. Unknown emoji and
// users without a credential are skipped.
func (r *reactionImporter) handle(ctx context.Context, msg rocketchat.Message, roomID, eventID string) error {
	if len(msg.Reactions) == 0 {
		return nil
	}

	shortcodes := make([]string, 0, len(msg.Reactions))
	for shortcode := range msg.Reactions {
		shortcodes = append(shortcodes, shortcode)
	}
	sort.Strings(shortcodes)

	for _, shortcode := range shortcodes {
		key, ok := reactionKey(shortcode)
		if !ok {
			r.logger.LogWarn("No emoji found for reaction, skipping", "reaction", shortcode, "message_id", msg.ID)
			continue
		}

		for _, username := range uniqueStrings(msg.Reactions[shortcode].Usernames) {
			if err := r.react(ctx, msg.ID, roomID, eventID, key, username); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *reactionImporter) react(ctx context.Context, messageID, roomID, eventID, key, username string) error {
	mapping, err := r.store.GetUserByName(ctx, username)
	if err != nil {
		return errors.Wrapf(err, "failed to look up user %s", username)
	}
	if mapping == nil || mapping.Credential == "" {
		r.logger.LogWarn("Reacting user was not migrated, skipping reaction", "username", username, "reaction", key, "message_id", messageID)
		return nil
	}
	cred := matrix.Credential{UserID: mapping.TargetID, AccessToken: mapping.Credential}

	txnID := reactionTxnID(messageID, key, username)
	err = r.healer.Execute(ctx, func(ctx context.Context) error {
		_, sendErr := r.api.SendReaction(ctx, cred, roomID, txnID, eventID, key)
		return sendErr
	})
	if err != nil {
		return errors.Wrapf(err, "failed to add reaction %s of %s to message %s", key, username, messageID)
	}
	r.logger.LogDebug("Reaction migrated", "message_id", messageID, "reaction", key, "username", username)
	return nil
}

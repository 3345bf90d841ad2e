package migrator

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// UserImporter registers Rocket.Chat users on the homeserver.
type UserImporter struct {
	api          MatrixAPI
	store        store.Store
	sessions     *SessionProvider
	logger       Logger
	sharedSecret string
	adminHandle  string
	excluded     map[string]struct{}
}

func newUserImporter(m *Migrator) *UserImporter {
	excluded := make(map[string]struct{}, len(m.config.ExcludedUsers))
	for _, entry := range m.config.ExcludedUsers {
		if entry = strings.TrimSpace(entry); entry != "" {
			excluded[store.FoldName(entry)] = struct{}{}
		}
	}
	return &UserImporter{
		api:          m.api,
		store:        m.store,
		sessions:     m.sessions,
		logger:       m.logger,
		sharedSecret: m.config.SharedSecret,
		adminHandle:  store.FoldName(m.config.AdminUsername),
		excluded:     excluded,
	}
}

// Handle migrates one user. Automated and excluded accounts are skipped, the
// admin handle is mapped onto the existing admin account, everyone else is
// registered with the shared secret.
func (i *UserImporter) Handle(ctx context.Context, user rocketchat.User) error {
	if user.IsAutomated() {
		i.logger.LogDebug("User is an app or bot, skipping", "user_id", user.ID, "username", user.Username)
		return nil
	}
	if i.isExcluded(user) {
		i.logger.LogInfo("User is excluded, skipping", "user_id", user.ID, "username", user.Username)
		return nil
	}

	mapping, err := i.store.GetMapping(ctx, user.ID, store.KindUser)
	if err != nil {
		return errors.Wrapf(err, "failed to look up user %s", user.ID)
	}
	if mapping != nil && mapping.TargetID != "" {
		i.logger.LogDebug("User already migrated", "user_id", user.ID, "matrix_user_id", mapping.TargetID)
		return i.recordMemberships(ctx, user)
	}

	created, err := i.create(ctx, user)
	if err != nil {
		if matrix.IsUserInUse(err) {
			i.logger.LogWarn("Matrix user already exists without a mapping, skipping", "user_id", user.ID, "username", user.Username)
			return nil
		}
		return err
	}

	if err := i.store.Save(ctx, created); err != nil {
		return errors.Wrapf(err, "failed to save mapping for user %s", user.ID)
	}
	i.logger.LogInfo("User migrated", "user_id", user.ID, "username", user.Username, "matrix_user_id", created.TargetID)

	return i.recordMemberships(ctx, user)
}

// recordMemberships stores the rooms listed in the user's __rooms. It also
// runs for users migrated earlier, since inserts are idempotent.
func (i *UserImporter) recordMemberships(ctx context.Context, user rocketchat.User) error {
	for _, roomID := range user.Rooms {
		if err := i.store.CreateMembership(ctx, roomID, user.ID); err != nil {
			return errors.Wrapf(err, "failed to record membership of %s in %s", user.ID, roomID)
		}
	}
	return nil
}

func (i *UserImporter) create(ctx context.Context, user rocketchat.User) (store.IdMapping, error) {
	mapping := store.IdMapping{SourceID: user.ID, Kind: store.KindUser}

	if i.adminHandle != "" && store.FoldName(user.Username) == i.adminHandle {
		admin := i.sessions.SessionForAdmin()
		i.logger.LogInfo("Mapping user onto the admin account", "user_id", user.ID, "matrix_user_id", admin.UserID)
		mapping.TargetID = admin.UserID
		mapping.Credential = admin.AccessToken
		return mapping, nil
	}

	if user.Username == "" {
		return mapping, errors.Errorf("user %s has no username", user.ID)
	}

	registered, err := i.api.RegisterUser(ctx, i.sharedSecret, matrix.Registration{
		Username:    store.FoldName(user.Username),
		DisplayName: user.Name,
		Admin:       user.HasRole("admin"),
	})
	if err != nil {
		return mapping, err
	}
	if registered.UserID == "" || registered.AccessToken == "" {
		return mapping, errors.Errorf("registration of %s returned no user id or access token", user.Username)
	}

	mapping.TargetID = registered.UserID
	mapping.Credential = registered.AccessToken
	return mapping, nil
}

func (i *UserImporter) isExcluded(user rocketchat.User) bool {
	if _, ok := i.excluded[store.FoldName(user.ID)]; ok {
		return true
	}
	_, ok := i.excluded[store.FoldName(user.Username)]
	return ok && user.Username != ""
}

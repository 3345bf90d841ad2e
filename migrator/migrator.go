// Package migrator moves a Rocket.Chat export into a Matrix homeserver.
//
// The import runs users, then rooms, then messages, each kind finishing before
// the next starts. Afterwards the reconciliation passes mark direct chats,
// restore pinned messages, prune members that should not be in a room and
// mark rooms as read. Every step consults the mapping store first, so a run
// can be repeated after a failure.
package migrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// Source provides the export records.
type Source interface {
	Users() ([]rocketchat.User, error)
	Rooms() ([]rocketchat.Room, error)
	Messages() ([]rocketchat.Message, error)
}

// Config contains all dependencies needed for a Migrator
type Config struct {
	API    MatrixAPI
	Store  store.Store
	Logger Logger

	// ServerName is the homeserver's server name, used in matrix.to links.
	ServerName string
	// Admin is the credential of the homeserver admin account.
	Admin matrix.Credential
	// AdminUsername is the Rocket.Chat handle that is mapped onto Admin
	// instead of being registered.
	AdminUsername string
	ASToken       string
	SharedSecret  string
	ExcludedUsers []string
	Concurrency   int
}

// Migrator runs the import and the reconciliation passes.
type Migrator struct {
	config   Config
	api      MatrixAPI
	store    store.Store
	logger   Logger
	sessions *SessionProvider
	healer   *Healer

	users    *UserImporter
	rooms    *RoomImporter
	messages *MessageImporter
}

// New creates a Migrator.
func New(config Config) (*Migrator, error) {
	if config.API == nil {
		return nil, errors.New("matrix API is required")
	}
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if config.Admin.UserID == "" || config.Admin.AccessToken == "" {
		return nil, errors.New("admin credential is required")
	}
	if config.Logger == nil {
		config.Logger = nopLogger{}
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	m := &Migrator{
		config: config,
		api:    config.API,
		store:  config.Store,
		logger: config.Logger,
	}
	m.sessions = NewSessionProvider(config.Store, config.Admin, config.ASToken)
	m.healer = NewHealer(config.API, m.sessions, NewCreatorCache(), config.Logger)
	m.users = newUserImporter(m)
	m.rooms = newRoomImporter(m)
	m.messages = newMessageImporter(m)
	return m, nil
}

// ImportUsers migrates users on the worker pool.
func (m *Migrator) ImportUsers(ctx context.Context, users []rocketchat.User) error {
	m.logger.LogInfo("Importing users", "count", len(users))
	if err := runPool(ctx, m.config.Concurrency, users, m.users.Handle); err != nil {
		return errors.Wrap(err, "user import failed")
	}
	return nil
}

// ImportRooms migrates rooms on the worker pool. Users must be imported first.
func (m *Migrator) ImportRooms(ctx context.Context, rooms []rocketchat.Room) error {
	m.logger.LogInfo("Importing rooms", "count", len(rooms))
	if err := runPool(ctx, m.config.Concurrency, rooms, m.rooms.Handle); err != nil {
		return errors.Wrap(err, "room import failed")
	}
	return nil
}

// ImportMessages migrates messages. Rooms are processed in parallel, the
// messages of one room strictly in export order.
func (m *Migrator) ImportMessages(ctx context.Context, messages []rocketchat.Message) error {
	groups := GroupByRoom(messages)
	m.logger.LogInfo("Importing messages", "count", len(messages), "rooms", len(groups))
	if err := runRoomGroups(ctx, m.config.Concurrency, groups, m.messages.Handle); err != nil {
		return errors.Wrap(err, "message import failed")
	}
	return nil
}

// Reconcile runs the post-import passes.
func (m *Migrator) Reconcile(ctx context.Context, rooms []rocketchat.Room, messages []rocketchat.Message) error {
	m.logger.LogInfo("Reconciling direct chats")
	if err := m.reconcileDirectChats(ctx, rooms); err != nil {
		return errors.Wrap(err, "direct chat reconciliation failed")
	}

	m.logger.LogInfo("Reconciling pinned messages")
	if err := m.reconcilePinnedMessages(ctx, messages); err != nil {
		return errors.Wrap(err, "pinned message reconciliation failed")
	}

	m.logger.LogInfo("Reconciling room memberships")
	if err := m.reconcileMemberships(ctx); err != nil {
		return errors.Wrap(err, "membership reconciliation failed")
	}
	return nil
}

// Run performs the complete migration of src.
func (m *Migrator) Run(ctx context.Context, src Source) error {
	users, err := src.Users()
	if err != nil {
		return errors.Wrap(err, "failed to load users")
	}
	if err := m.ImportUsers(ctx, users); err != nil {
		return err
	}

	rooms, err := src.Rooms()
	if err != nil {
		return errors.Wrap(err, "failed to load rooms")
	}
	if err := m.ImportRooms(ctx, rooms); err != nil {
		return err
	}

	messages, err := src.Messages()
	if err != nil {
		return errors.Wrap(err, "failed to load messages")
	}
	if err := m.ImportMessages(ctx, messages); err != nil {
		return err
	}

	if err := m.Reconcile(ctx, rooms, messages); err != nil {
		return err
	}
	m.logger.LogInfo("Migration finished", "users", len(users), "rooms", len(rooms), "messages", len(messages))
	return nil
}

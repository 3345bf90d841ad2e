package migrator

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/migrator/mocks"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

const testServerName = "example.com"

var testAdmin = matrix.Credential{UserID: "@admin:example.com", AccessToken: "admin_token"}

// testLogger implements Logger interface for testing
type testLogger struct {
	t *testing.T
}

func (l *testLogger) LogDebug(message string, keyValuePairs ...any) {
	if l.t != nil {
		l.t.Logf("[DEBUG] %s %v", message, keyValuePairs)
	}
}

func (l *testLogger) LogInfo(message string, keyValuePairs ...any) {
	if l.t != nil {
		l.t.Logf("[INFO] %s %v", message, keyValuePairs)
	}
}

func (l *testLogger) LogWarn(message string, keyValuePairs ...any) {
	if l.t != nil {
		l.t.Logf("[WARN] %s %v", message, keyValuePairs)
	}
}

func (l *testLogger) LogError(message string, keyValuePairs ...any) {
	if l.t != nil {
		l.t.Logf("[ERROR] %s %v", message, keyValuePairs)
	}
}

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	_, err = st.Migrate(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestMigrator(t *testing.T, api MatrixAPI, st store.Store) *Migrator {
	t.Helper()
	m, err := New(Config{
		API:           api,
		Store:         st,
		Logger:        &testLogger{t: t},
		ServerName:    testServerName,
		Admin:         testAdmin,
		AdminUsername: "admin",
		ASToken:       "as_token",
		SharedSecret:  "shared_secret",
		Concurrency:   4,
	})
	require.NoError(t, err)
	return m
}

// newMockMigrator wires a Migrator to a gomock MatrixAPI and an in-memory store.
func newMockMigrator(t *testing.T) (*Migrator, *mocks.MockMatrixAPI, *store.SQLStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	api := mocks.NewMockMatrixAPI(ctrl)
	st := newTestStore(t)
	return newTestMigrator(t, api, st), api, st
}

func saveUser(t *testing.T, st store.Store, sourceID, userID, token string) matrix.Credential {
	t.Helper()
	require.NoError(t, st.Save(context.Background(), store.IdMapping{
		SourceID:   sourceID,
		Kind:       store.KindUser,
		TargetID:   userID,
		Credential: token,
	}))
	return matrix.Credential{UserID: userID, AccessToken: token}
}

func saveMapping(t *testing.T, st store.Store, sourceID string, kind store.Kind, targetID string) {
	t.Helper()
	require.NoError(t, st.Save(context.Background(), store.IdMapping{SourceID: sourceID, Kind: kind, TargetID: targetID}))
}

func forbidden(userID, roomID string) error {
	return &matrix.Error{
		StatusCode: 403,
		ErrCode:    matrix.ErrCodeForbidden,
		Message:    "User not in room",
		UserID:     userID,
		RoomID:     roomID,
	}
}

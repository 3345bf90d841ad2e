package migrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

func TestNewValidatesConfig(t *testing.T) {
	st := newTestStore(t)
	_, client := newFakeHomeserver(t)

	tests := []struct {
		name   string
		config Config
		errMsg string
	}{
		{name: "missing api", config: Config{Store: st, Admin: testAdmin}, errMsg: "matrix API is required"},
		{name: "missing store", config: Config{API: client, Admin: testAdmin}, errMsg: "store is required"},
		{name: "missing admin token", config: Config{API: client, Store: st, Admin: matrix.Credential{UserID: "@admin:example.com"}}, errMsg: "admin credential is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	m, err := New(Config{API: client, Store: st, Admin: testAdmin})
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, m.config.Concurrency)
}

const (
	scenarioUsers = `{"_id":"u0","username":"admin","name":"Admin","roles":["admin","user"]}
{"_id":"u1","username":"alice","name":"Alice","roles":["user"],"__rooms":["r1","u1u2"]}
{"_id":"u2","username":"Bob","name":"Bob","roles":["user"],"__rooms":["r1","u1u2"]}
{"_id":"u3","username":"carol","name":"Carol","roles":["user"]}
{"_id":"u9","username":"rocket.cat","name":"Rocket.Cat","roles":["bot"]}
`
	scenarioRooms = `{"_id":"r1","t":"c","name":"general","description":"Company wide","u":{"_id":"u1","username":"alice"}}
{"_id":"u1u2","t":"d","uids":["u1","u2"],"usernames":["alice","Bob"]}
{"_id":"l1","t":"l","name":"livechat"}
`
	scenarioMessages = `{"_id":"m1","rid":"r1","msg":"hello **world**","ts":{"$date":1672574400000},"u":{"_id":"u1","username":"alice"},"pinned":true,"reactions":{":+1:":{"usernames":["Bob","alice"]}}}
{"_id":"m2","rid":"r1","msg":"reply in thread","tmid":"m1","ts":{"$date":1672574460000},"u":{"_id":"u2","username":"Bob"}}
{"_id":"m3","rid":"r1","msg":"I was never invited","ts":{"$date":1672574520000},"u":{"_id":"u3","username":"carol"}}
{"_id":"m4","rid":"r1","msg":"orphan","tmid":"missing","ts":{"$date":1672574580000},"u":{"_id":"u1","username":"alice"}}
{"_id":"m5","rid":"u1u2","msg":"dm hello","ts":{"$date":1672574640000},"u":{"_id":"u2","username":"Bob"}}
{"_id":"m6","rid":"r1","t":"uj","msg":"Bob","ts":{"$date":1672574700000},"u":{"_id":"u2","username":"Bob"}}
{"_id":"m7","rid":"r1","t":"ru","msg":"carol","ts":{"$date":1672574760000},"u":{"_id":"u1","username":"alice"}}
{"_id":"m8","rid":"l1","msg":"help","ts":{"$date":1672574820000},"u":{"_id":"u1","username":"alice"}}
`
)

func writeScenarioExport(t *testing.T) rocketchat.Export {
	t.Helper()
	return writeExport(t, scenarioUsers, scenarioRooms, scenarioMessages)
}

func writeExport(t *testing.T, users, rooms, messages string) rocketchat.Export {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		rocketchat.UsersFile:    users,
		rocketchat.RoomsFile:    rooms,
		rocketchat.MessagesFile: messages,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return rocketchat.Export{Dir: dir}
}

func targetOf(t *testing.T, st store.Store, sourceID string, kind store.Kind) string {
	t.Helper()
	mapping, err := st.GetMapping(context.Background(), sourceID, kind)
	require.NoError(t, err)
	if mapping == nil {
		return ""
	}
	return mapping.TargetID
}

func TestRunAgainstHomeserver(t *testing.T) {
	hs, client := newFakeHomeserver(t)
	st := newTestStore(t)
	export := writeScenarioExport(t)
	ctx := context.Background()

	require.NoError(t, newTestMigrator(t, client, st).Run(ctx, export))

	const (
		alice = "@alice:example.com"
		bob   = "@bob:example.com"
		carol = "@carol:example.com"
	)

	t.Run("users", func(t *testing.T) {
		assert.Equal(t, testAdmin.UserID, targetOf(t, st, "u0", store.KindUser))
		assert.Equal(t, alice, targetOf(t, st, "u1", store.KindUser))
		assert.Equal(t, bob, targetOf(t, st, "u2", store.KindUser))
		assert.Equal(t, carol, targetOf(t, st, "u3", store.KindUser))
		assert.Empty(t, targetOf(t, st, "u9", store.KindUser))
	})

	generalID := targetOf(t, st, "r1", store.KindRoom)
	directID := targetOf(t, st, "u1u2", store.KindRoom)
	require.NotEmpty(t, generalID)
	require.NotEmpty(t, directID)
	assert.Empty(t, targetOf(t, st, "l1", store.KindRoom))

	general := hs.snapshot(generalID)
	direct := hs.snapshot(directID)

	t.Run("rooms", func(t *testing.T) {
		assert.Equal(t, alice, general.creator)
		assert.True(t, general.public)
		assert.Equal(t, alice, direct.creator)
		assert.True(t, direct.isDirect)
		assert.Equal(t, map[string]bool{alice: true, bob: true}, direct.joined)
	})

	t.Run("messages", func(t *testing.T) {
		rootID := targetOf(t, st, "m1", store.KindMessage)
		root, ok := general.event(rootID)
		require.True(t, ok)
		assert.Equal(t, alice, root.Sender)
		assert.Equal(t, int64(1672574400000), root.TS)

		reply, ok := general.event(targetOf(t, st, "m2", store.KindMessage))
		require.True(t, ok)
		var content matrix.MessageContent
		require.NoError(t, json.Unmarshal(reply.Content, &content))
		require.NotNil(t, content.RelatesTo)
		assert.Equal(t, matrix.RelTypeThread, content.RelatesTo.RelType)
		assert.Equal(t, rootID, content.RelatesTo.EventID)

		healed, ok := general.event(targetOf(t, st, "m3", store.KindMessage))
		require.True(t, ok)
		assert.Equal(t, carol, healed.Sender)

		_, ok = direct.event(targetOf(t, st, "m5", store.KindMessage))
		assert.True(t, ok)

		for _, skipped := range []string{"m4", "m6", "m7", "m8"} {
			assert.Empty(t, targetOf(t, st, skipped, store.KindMessage), skipped)
		}
	})

	t.Run("reactions", func(t *testing.T) {
		senders := map[string]bool{}
		for _, event := range general.events {
			if event.Type != matrix.EventTypeReaction {
				continue
			}
			var reaction matrix.ReactionContent
			require.NoError(t, json.Unmarshal(event.Content, &reaction))
			assert.Equal(t, "\U0001F44D", reaction.RelatesTo.Key)
			assert.Equal(t, targetOf(t, st, "m1", store.KindMessage), reaction.RelatesTo.EventID)
			senders[event.Sender] = true
		}
		assert.Equal(t, map[string]bool{alice: true, bob: true}, senders)
	})

	t.Run("reconciliation", func(t *testing.T) {
		assert.Equal(t, []string{targetOf(t, st, "m1", store.KindMessage)}, general.pinned)

		assert.Equal(t, map[string][]string{bob: {directID}}, hs.directChats(alice))
		assert.Equal(t, map[string][]string{alice: {directID}}, hs.directChats(bob))

		// Carol was removed by the "ru" message after healing let her post.
		assert.Equal(t, map[string]bool{alice: true, bob: true}, general.joined)

		latest := targetOf(t, st, "m3", store.KindMessage)
		assert.Equal(t, map[string]string{alice: latest, bob: latest}, general.receipts)
		dm := targetOf(t, st, "m5", store.KindMessage)
		assert.Equal(t, map[string]string{alice: dm, bob: dm}, direct.receipts)
	})

	t.Run("rerun is idempotent", func(t *testing.T) {
		events := hs.eventCount()

		// A fresh migrator has no cached room creators and resolves them
		// through the admin API.
		require.NoError(t, newTestMigrator(t, client, st).Run(ctx, export))

		assert.Equal(t, events, hs.eventCount())
		assert.Equal(t, generalID, targetOf(t, st, "r1", store.KindRoom))
		assert.Equal(t, map[string][]string{bob: {directID}}, hs.directChats(alice))

		mappings, err := st.ListByKind(ctx, store.KindMessage)
		require.NoError(t, err)
		assert.Len(t, mappings, 4)
	})
}

func TestRunAfterRoomOwnerLeft(t *testing.T) {
	hs, client := newFakeHomeserver(t)
	st := newTestStore(t)
	ctx := context.Background()

	export := writeExport(t,
		`{"_id":"u1","username":"alice","name":"Alice","roles":["user"],"__rooms":["r1"]}
{"_id":"u2","username":"bob","name":"Bob","roles":["user"],"__rooms":["r1"]}
`,
		`{"_id":"r1","t":"c","name":"general","u":{"_id":"u1","username":"alice"}}
`,
		`{"_id":"m1","rid":"r1","msg":"hi","pinned":true,"ts":{"$date":1672574400000},"u":{"_id":"u2","username":"bob"}}
{"_id":"m2","rid":"r1","t":"ul","msg":"alice","ts":{"$date":1672574460000},"u":{"_id":"u1","username":"alice"}}
`)

	require.NoError(t, newTestMigrator(t, client, st).Run(ctx, export))

	const bob = "@bob:example.com"
	generalID := targetOf(t, st, "r1", store.KindRoom)
	general := hs.snapshot(generalID)
	hi := targetOf(t, st, "m1", store.KindMessage)

	assert.Equal(t, "@alice:example.com", general.creator)
	assert.Equal(t, map[string]bool{bob: true}, general.joined)
	assert.Equal(t, map[string]string{bob: hi}, general.receipts)
	// Neither the departed creator nor the admin, who never joined, may pin.
	assert.Empty(t, general.pinned)

	events := hs.eventCount()
	require.NoError(t, newTestMigrator(t, client, st).Run(ctx, export))
	assert.Equal(t, events, hs.eventCount())
	assert.Equal(t, map[string]bool{bob: true}, hs.snapshot(generalID).joined)
}

func TestJoinedMembersRequiresMembership(t *testing.T) {
	hs, client := newFakeHomeserver(t)
	ctx := context.Background()

	alice, err := client.RegisterUser(ctx, hs.sharedSecret, matrix.Registration{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	aliceCred := matrix.Credential{UserID: alice.UserID, AccessToken: alice.AccessToken}

	roomID, err := client.CreateRoom(ctx, aliceCred, matrix.CreateRoomRequest{Preset: matrix.PresetPublicChat})
	require.NoError(t, err)
	require.NoError(t, client.LeaveRoom(ctx, aliceCred, roomID, ""))

	_, err = client.JoinedMembers(ctx, aliceCred, roomID)
	assert.True(t, matrix.IsForbidden(err))

	members, err := client.JoinedMembers(ctx, matrix.Credential{AccessToken: hs.asToken}, roomID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestRunStopsOnLoadError(t *testing.T) {
	_, client := newFakeHomeserver(t)
	m := newTestMigrator(t, client, newTestStore(t))

	err := m.Run(context.Background(), rocketchat.Export{Dir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to load users"))
}

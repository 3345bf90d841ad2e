package migrator

import (
	"context"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks github.com/mattermost/rocketchat-matrix-migrator/migrator MatrixAPI

// MatrixAPI is the subset of the homeserver client the migration uses.
// *matrix.Client implements it.
type MatrixAPI interface {
	RegisterUser(ctx context.Context, sharedSecret string, reg matrix.Registration) (*matrix.RegisterResponse, error)
	RoomCreator(ctx context.Context, cred matrix.Credential, roomID string) (string, error)
	CreateRoom(ctx context.Context, cred matrix.Credential, room matrix.CreateRoomRequest) (string, error)
	InviteUser(ctx context.Context, cred matrix.Credential, roomID, userID string) error
	JoinRoom(ctx context.Context, cred matrix.Credential, roomID string) error
	LeaveRoom(ctx context.Context, cred matrix.Credential, roomID, reason string) error
	SendMessage(ctx context.Context, cred matrix.Credential, roomID, txnID string, ts int64, content matrix.MessageContent) (string, error)
	SendReaction(ctx context.Context, cred matrix.Credential, roomID, txnID, eventID, key string) (string, error)
	JoinedMembers(ctx context.Context, cred matrix.Credential, roomID string) ([]string, error)
	LatestMessageEventID(ctx context.Context, cred matrix.Credential, roomID string) (string, error)
	SendReadReceipt(ctx context.Context, cred matrix.Credential, roomID, eventID string) error
	SetPinnedEvents(ctx context.Context, cred matrix.Credential, roomID string, eventIDs []string) error
	GetDirectChats(ctx context.Context, cred matrix.Credential, userID string) (map[string][]string, bool, error)
	SetDirectChats(ctx context.Context, cred matrix.Credential, userID string, direct map[string][]string) error
}

var _ MatrixAPI = (*matrix.Client)(nil)

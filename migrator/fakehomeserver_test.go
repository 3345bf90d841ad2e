package migrator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
)

type fakeEvent struct {
	ID      string
	Type    string
	Sender  string
	TS      int64
	Content json.RawMessage
}

type fakeRoom struct {
	creator  string
	public   bool
	isDirect bool
	joined   map[string]bool
	invited  map[string]bool
	events   []fakeEvent
	pinned   []string
	receipts map[string]string
}

// fakeHomeserver is an in-memory Synapse good enough for the migration flow.
// It enforces membership for sends, invites and state changes, so the healing
// path is exercised the way a real homeserver triggers it.
type fakeHomeserver struct {
	t            *testing.T
	serverName   string
	sharedSecret string
	asToken      string
	admin        matrix.Credential

	mu          sync.Mutex
	tokens      map[string]string // access token -> user id
	rooms       map[string]*fakeRoom
	txns        map[string]string // sender|txn -> event id
	accountData map[string]map[string][]string
	nextID      int
}

func newFakeHomeserver(t *testing.T) (*fakeHomeserver, *matrix.Client) {
	hs := &fakeHomeserver{
		t:            t,
		serverName:   testServerName,
		sharedSecret: "shared_secret",
		asToken:      "as_token",
		admin:        testAdmin,
		tokens:       map[string]string{testAdmin.AccessToken: testAdmin.UserID},
		rooms:        make(map[string]*fakeRoom),
		txns:         make(map[string]string),
		accountData:  make(map[string]map[string][]string),
	}

	router := mux.NewRouter()
	router.HandleFunc("/_synapse/admin/v1/register", hs.handleNonce).Methods(http.MethodGet)
	router.HandleFunc("/_synapse/admin/v1/register", hs.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/_synapse/admin/v1/rooms/{roomId}", hs.handleRoomDetails).Methods(http.MethodGet)

	client := router.PathPrefix("/_matrix/client/v3").Subrouter()
	client.HandleFunc("/createRoom", hs.handleCreateRoom).Methods(http.MethodPost)
	client.HandleFunc("/rooms/{roomId}/invite", hs.handleInvite).Methods(http.MethodPost)
	client.HandleFunc("/rooms/{roomId}/join", hs.handleJoin).Methods(http.MethodPost)
	client.HandleFunc("/rooms/{roomId}/leave", hs.handleLeave).Methods(http.MethodPost)
	client.HandleFunc("/rooms/{roomId}/send/{eventType}/{txnId}", hs.handleSend).Methods(http.MethodPut)
	client.HandleFunc("/rooms/{roomId}/joined_members", hs.handleJoinedMembers).Methods(http.MethodGet)
	client.HandleFunc("/rooms/{roomId}/messages", hs.handleMessages).Methods(http.MethodGet)
	client.HandleFunc("/rooms/{roomId}/receipt/m.read/{eventId}", hs.handleReceipt).Methods(http.MethodPost)
	client.HandleFunc("/rooms/{roomId}/state/m.room.pinned_events/", hs.handlePinned).Methods(http.MethodPut)
	client.HandleFunc("/user/{userId}/account_data/m.direct", hs.handleGetDirect).Methods(http.MethodGet)
	client.HandleFunc("/user/{userId}/account_data/m.direct", hs.handlePutDirect).Methods(http.MethodPut)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return hs, matrix.NewClient(server.URL, &testLogger{t: t}, matrix.DisabledRateLimitConfig())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMatrixError(w http.ResponseWriter, status int, errcode, message string) {
	writeJSON(w, status, map[string]string{"errcode": errcode, "error": message})
}

// caller authenticates the request. Application service requests act as the
// user_id query parameter, or as the bridge bot without one.
func (hs *fakeHomeserver) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == hs.asToken {
		if userID := r.URL.Query().Get("user_id"); userID != "" {
			return userID, true
		}
		return "@bridge:" + hs.serverName, true
	}
	userID, ok := hs.tokens[token]
	if !ok {
		writeMatrixError(w, http.StatusUnauthorized, "M_UNKNOWN_TOKEN", "Unrecognised access token")
		return "", false
	}
	return userID, true
}

func (hs *fakeHomeserver) isAppService(r *http.Request) bool {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") == hs.asToken && r.URL.Query().Get("user_id") == ""
}

func (hs *fakeHomeserver) room(w http.ResponseWriter, r *http.Request) (*fakeRoom, string, bool) {
	roomID := mux.Vars(r)["roomId"]
	room, ok := hs.rooms[roomID]
	if !ok {
		writeMatrixError(w, http.StatusNotFound, matrix.ErrCodeNotFound, "Unknown room")
		return nil, "", false
	}
	return room, roomID, true
}

func (hs *fakeHomeserver) newID(prefix string) string {
	hs.nextID++
	return fmt.Sprintf("%s%d", prefix, hs.nextID)
}

func (hs *fakeHomeserver) handleNonce(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"nonce": "nonce"})
}

func (hs *fakeHomeserver) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nonce    string `json:"nonce"`
		Username string `json:"username"`
		Password string `json:"password"`
		Admin    bool   `json:"admin"`
		Mac      string `json:"mac"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMatrixError(w, http.StatusBadRequest, "M_BAD_JSON", err.Error())
		return
	}
	expected := matrix.RegistrationMAC(hs.sharedSecret, body.Nonce, matrix.Registration{Username: body.Username, Password: body.Password, Admin: body.Admin})
	if body.Mac != expected {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "HMAC incorrect")
		return
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	userID := matrix.UserID(body.Username, hs.serverName)
	for _, existing := range hs.tokens {
		if existing == userID {
			writeMatrixError(w, http.StatusBadRequest, matrix.ErrCodeUserInUse, "User ID already taken.")
			return
		}
	}
	token := "token_" + body.Username
	hs.tokens[token] = userID
	writeJSON(w, http.StatusOK, matrix.RegisterResponse{UserID: userID, AccessToken: token, HomeServer: hs.serverName})
}

func (hs *fakeHomeserver) handleRoomDetails(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	if caller != hs.admin.UserID {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "You are not a server admin")
		return
	}
	room, roomID, ok := hs.room(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"room_id": roomID, "creator": room.creator})
}

func (hs *fakeHomeserver) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	var body matrix.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMatrixError(w, http.StatusBadRequest, "M_BAD_JSON", err.Error())
		return
	}

	roomID := "!" + hs.newID("room") + ":" + hs.serverName
	hs.rooms[roomID] = &fakeRoom{
		creator:  caller,
		public:   body.Preset == matrix.PresetPublicChat,
		isDirect: body.IsDirect,
		joined:   map[string]bool{caller: true},
		invited:  make(map[string]bool),
		receipts: make(map[string]string),
	}
	writeJSON(w, http.StatusOK, map[string]string{"room_id": roomID})
}

func (hs *fakeHomeserver) handleInvite(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, _, ok := hs.room(w, r)
	if !ok {
		return
	}
	var body struct {
		UserID string `json:"user_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if !room.joined[caller] {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "You are not in room")
		return
	}
	if room.joined[body.UserID] {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, body.UserID+" is already in the room.")
		return
	}
	room.invited[body.UserID] = true
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (hs *fakeHomeserver) handleJoin(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, roomID, ok := hs.room(w, r)
	if !ok {
		return
	}
	if !room.public && !room.invited[caller] && !room.joined[caller] {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "You are not invited to this room.")
		return
	}
	delete(room.invited, caller)
	room.joined[caller] = true
	writeJSON(w, http.StatusOK, map[string]string{"room_id": roomID})
}

func (hs *fakeHomeserver) handleLeave(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, _, ok := hs.room(w, r)
	if !ok {
		return
	}
	delete(room.joined, caller)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (hs *fakeHomeserver) handleSend(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, roomID, ok := hs.room(w, r)
	if !ok {
		return
	}
	if !room.joined[caller] {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, fmt.Sprintf("User %s not in room %s", caller, roomID))
		return
	}

	vars := mux.Vars(r)
	txnKey := caller + "|" + vars["txnId"]
	if eventID, seen := hs.txns[txnKey]; seen {
		writeJSON(w, http.StatusOK, matrix.SendEventResponse{EventID: eventID})
		return
	}

	var content json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		writeMatrixError(w, http.StatusBadRequest, "M_BAD_JSON", err.Error())
		return
	}

	if vars["eventType"] == matrix.EventTypeReaction {
		var reaction matrix.ReactionContent
		_ = json.Unmarshal(content, &reaction)
		for _, event := range room.events {
			if event.Type != matrix.EventTypeReaction || event.Sender != caller {
				continue
			}
			var existing matrix.ReactionContent
			_ = json.Unmarshal(event.Content, &existing)
			if existing.RelatesTo == reaction.RelatesTo {
				writeMatrixError(w, http.StatusBadRequest, matrix.ErrCodeDuplicateAnnotation, "Can't send same reaction twice")
				return
			}
		}
	}

	ts, _ := strconv.ParseInt(r.URL.Query().Get("ts"), 10, 64)
	event := fakeEvent{ID: "$" + hs.newID("event"), Type: vars["eventType"], Sender: caller, TS: ts, Content: content}
	room.events = append(room.events, event)
	hs.txns[txnKey] = event.ID
	writeJSON(w, http.StatusOK, matrix.SendEventResponse{EventID: event.ID})
}

// handleJoinedMembers answers the application service, or a user currently
// joined to the room, like Synapse does.
func (hs *fakeHomeserver) handleJoinedMembers(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, _, ok := hs.room(w, r)
	if !ok {
		return
	}
	if !hs.isAppService(r) && !room.joined[caller] {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "You aren't a member of the room")
		return
	}
	joined := make(map[string]any, len(room.joined))
	for userID := range room.joined {
		joined[userID] = map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"joined": joined})
}

func (hs *fakeHomeserver) handleMessages(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if _, ok := hs.caller(w, r); !ok {
		return
	}
	room, _, ok := hs.room(w, r)
	if !ok {
		return
	}
	chunk := []map[string]string{}
	for i := len(room.events) - 1; i >= 0; i-- {
		if room.events[i].Type == matrix.EventTypeRoomMessage {
			chunk = append(chunk, map[string]string{"event_id": room.events[i].ID})
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunk": chunk})
}

func (hs *fakeHomeserver) handleReceipt(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, _, ok := hs.room(w, r)
	if !ok {
		return
	}
	room.receipts[caller] = mux.Vars(r)["eventId"]
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (hs *fakeHomeserver) handlePinned(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	room, _, ok := hs.room(w, r)
	if !ok {
		return
	}
	if !room.joined[caller] {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "You are not in room")
		return
	}
	var body struct {
		Pinned []string `json:"pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMatrixError(w, http.StatusBadRequest, "M_BAD_JSON", err.Error())
		return
	}
	room.pinned = body.Pinned
	writeJSON(w, http.StatusOK, map[string]string{"event_id": "$" + hs.newID("state")})
}

func (hs *fakeHomeserver) handleGetDirect(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userId"]
	if caller != userID {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "Cannot get account data for other users.")
		return
	}
	direct, ok := hs.accountData[userID]
	if !ok {
		writeMatrixError(w, http.StatusNotFound, matrix.ErrCodeNotFound, "Account data not found")
		return
	}
	writeJSON(w, http.StatusOK, direct)
}

func (hs *fakeHomeserver) handlePutDirect(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	caller, ok := hs.caller(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userId"]
	if caller != userID {
		writeMatrixError(w, http.StatusForbidden, matrix.ErrCodeForbidden, "Cannot add account data for other users.")
		return
	}
	var direct map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&direct); err != nil {
		writeMatrixError(w, http.StatusBadRequest, "M_BAD_JSON", err.Error())
		return
	}
	hs.accountData[userID] = direct
	writeJSON(w, http.StatusOK, map[string]any{})
}

// Accessors used by assertions.

func (hs *fakeHomeserver) snapshot(roomID string) fakeRoom {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	room, ok := hs.rooms[roomID]
	if !ok {
		hs.t.Fatalf("room %s does not exist", roomID)
	}
	copied := *room
	copied.events = append([]fakeEvent(nil), room.events...)
	copied.joined = make(map[string]bool, len(room.joined))
	for k, v := range room.joined {
		copied.joined[k] = v
	}
	copied.receipts = make(map[string]string, len(room.receipts))
	for k, v := range room.receipts {
		copied.receipts[k] = v
	}
	return copied
}

func (hs *fakeHomeserver) directChats(userID string) map[string][]string {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.accountData[userID]
}

func (hs *fakeHomeserver) eventCount() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	count := 0
	for _, room := range hs.rooms {
		count += len(room.events)
	}
	return count
}

func (room fakeRoom) event(eventID string) (fakeEvent, bool) {
	for _, event := range room.events {
		if event.ID == eventID {
			return event, true
		}
	}
	return fakeEvent{}, false
}

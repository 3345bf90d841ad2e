package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Room presets and visibilities accepted by createRoom.
const (
	PresetPrivateChat        = "private_chat"
	PresetPublicChat         = "public_chat"
	PresetTrustedPrivateChat = "trusted_private_chat"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Event types and relation types the migrator emits.
const (
	EventTypeRoomMessage  = "m.room.message"
	EventTypeReaction     = "m.reaction"
	EventTypePinnedEvents = "m.room.pinned_events"
	AccountDataDirect     = "m.direct"

	RelTypeThread     = "m.thread"
	RelTypeAnnotation = "m.annotation"

	MsgTypeText        = "m.text"
	FormatCustomHTML   = "org.matrix.custom.html"
	ReceiptTypeRead    = "m.read"
	defaultHTTPTimeout = 30 * time.Second
)

// Credential is the identity a request is issued as. Every client method
// takes one explicitly.
type Credential struct {
	// UserID is the Matrix id of the acting user. It is recorded on errors
	// and, when Impersonate is set, sent as the user_id query parameter.
	UserID      string
	AccessToken string
	// Impersonate marks an application service token acting as UserID.
	Impersonate bool
}

// Client talks to a single homeserver. It holds no credentials of its own.
type Client struct {
	serverURL  string
	httpClient *http.Client
	logger     Logger
	limits     limiters
	maxRetries int
}

// MessageContent is the content of an m.room.message event.
type MessageContent struct {
	MsgType       string     `json:"msgtype"`
	Body          string     `json:"body"`
	Format        string     `json:"format,omitempty"`
	FormattedBody string     `json:"formatted_body,omitempty"`
	RelatesTo     *RelatesTo `json:"m.relates_to,omitempty"`
	Mentions      *Mentions  `json:"m.mentions,omitempty"`
}

// RelatesTo carries thread, reply and annotation relations.
type RelatesTo struct {
	RelType       string     `json:"rel_type,omitempty"`
	EventID       string     `json:"event_id,omitempty"`
	Key           string     `json:"key,omitempty"`
	IsFallingBack bool       `json:"is_falling_back,omitempty"`
	InReplyTo     *InReplyTo `json:"m.in_reply_to,omitempty"`
}

// InReplyTo points at the event being replied to.
type InReplyTo struct {
	EventID string `json:"event_id"`
}

// Mentions lists users explicitly mentioned by a message.
type Mentions struct {
	UserIDs []string `json:"user_ids,omitempty"`
}

// ReactionContent is the content of an m.reaction event.
type ReactionContent struct {
	RelatesTo RelatesTo `json:"m.relates_to"`
}

// CreateRoomRequest is the createRoom request body.
type CreateRoomRequest struct {
	Name            string         `json:"name,omitempty"`
	RoomAliasName   string         `json:"room_alias_name,omitempty"`
	Topic           string         `json:"topic,omitempty"`
	Preset          string         `json:"preset,omitempty"`
	Visibility      string         `json:"visibility,omitempty"`
	IsDirect        bool           `json:"is_direct,omitempty"`
	CreationContent map[string]any `json:"creation_content,omitempty"`
	Invite          []string       `json:"invite,omitempty"`
}

// SendEventResponse is returned by event sends.
type SendEventResponse struct {
	EventID string `json:"event_id"`
}

// NewClient creates a client for the homeserver at serverURL.
func NewClient(serverURL string, logger Logger, rateLimit RateLimitConfig) *Client {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger:     logger,
		limits:     newLimiters(rateLimit),
		maxRetries: rateLimit.MaxRetries,
	}
}

// ServerURL returns the homeserver base URL.
func (c *Client) ServerURL() string {
	return c.serverURL
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	cred    Credential
	roomID  string
	limiter *TokenBucket
}

func clientPath(segments ...string) string {
	return "/_matrix/client/v3/" + escapeSegments(segments)
}

func escapeSegments(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// do issues the request, waiting on the class limiter first and retrying
// rate limited responses up to maxRetries times.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if c.serverURL == "" {
		return errors.New("matrix client not configured")
	}

	var payload []byte
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		payload = data
	}

	query := url.Values{}
	for k, v := range r.query {
		query[k] = v
	}
	if r.cred.Impersonate && r.cred.UserID != "" {
		query.Set("user_id", r.cred.UserID)
	}
	reqURL := c.serverURL + r.path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return errors.Wrap(err, "rate limiter wait aborted")
			}
		}

		err := c.send(ctx, r, reqURL, payload, out)
		if err == nil {
			return nil
		}
		if !IsRateLimitError(err) || attempt >= c.maxRetries {
			return err
		}

		wait := RetryAfter(err)
		if wait <= 0 {
			wait = time.Duration(attempt+1) * time.Second
		}
		c.logger.LogWarn("Rate limited by homeserver, backing off", "method", r.method, "path", r.path, "retry_after", wait.String(), "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) send(ctx context.Context, r request, reqURL string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cred.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.cred.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s %s", r.method, r.path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		matrixErr := &Error{
			StatusCode: resp.StatusCode,
			Method:     r.method,
			Path:       r.path,
			UserID:     r.cred.UserID,
			RoomID:     r.roomID,
		}
		if jsonErr := json.Unmarshal(respBody, matrixErr); jsonErr != nil || (matrixErr.ErrCode == "" && matrixErr.Message == "") {
			matrixErr.Message = string(respBody)
		}
		return matrixErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrap(err, "failed to unmarshal response")
		}
	}
	return nil
}

// WhoAmI returns the user id the credential authenticates as.
func (c *Client) WhoAmI(ctx context.Context, cred Credential) (string, error) {
	var response struct {
		UserID string `json:"user_id"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: clientPath("account", "whoami"), cred: cred}, &response)
	if err != nil {
		return "", errors.Wrap(err, "whoami failed")
	}
	return response.UserID, nil
}

// CreateRoom creates a room as cred and returns the new room id.
func (c *Client) CreateRoom(ctx context.Context, cred Credential, room CreateRoomRequest) (string, error) {
	var response struct {
		RoomID string `json:"room_id"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    clientPath("createRoom"),
		body:    room,
		cred:    cred,
		limiter: c.limits.roomCreation,
	}, &response)
	if err != nil {
		return "", errors.Wrap(err, "failed to create room")
	}
	if response.RoomID == "" {
		return "", errors.New("create room response has no room_id")
	}
	return response.RoomID, nil
}

// InviteUser invites userID into roomID as cred.
func (c *Client) InviteUser(ctx context.Context, cred Credential, roomID, userID string) error {
	return c.do(ctx, request{
		method:  http.MethodPost,
		path:    clientPath("rooms", roomID, "invite"),
		body:    map[string]string{"user_id": userID},
		cred:    cred,
		roomID:  roomID,
		limiter: c.limits.invites,
	}, nil)
}

// JoinRoom joins roomID as cred.
func (c *Client) JoinRoom(ctx context.Context, cred Credential, roomID string) error {
	return c.do(ctx, request{
		method:  http.MethodPost,
		path:    clientPath("rooms", roomID, "join"),
		body:    map[string]any{},
		cred:    cred,
		roomID:  roomID,
		limiter: c.limits.invites,
	}, nil)
}

// LeaveRoom makes cred leave roomID.
func (c *Client) LeaveRoom(ctx context.Context, cred Credential, roomID, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   clientPath("rooms", roomID, "leave"),
		body:   body,
		cred:   cred,
		roomID: roomID,
	}, nil)
}

// SendMessage sends an m.room.message. A non-zero ts backdates the event,
// which the homeserver honours for application service tokens only. An empty
// txnID gets a random one.
func (c *Client) SendMessage(ctx context.Context, cred Credential, roomID, txnID string, ts int64, content MessageContent) (string, error) {
	if txnID == "" {
		txnID = uuid.New().String()
	}
	query := url.Values{}
	if ts > 0 {
		query.Set("ts", strconv.FormatInt(ts, 10))
	}

	var response SendEventResponse
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    clientPath("rooms", roomID, "send", EventTypeRoomMessage, txnID),
		query:   query,
		body:    content,
		cred:    cred,
		roomID:  roomID,
		limiter: c.limits.messages,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.EventID, nil
}

// SendReaction annotates eventID with key.
func (c *Client) SendReaction(ctx context.Context, cred Credential, roomID, txnID, eventID, key string) (string, error) {
	if txnID == "" {
		txnID = uuid.New().String()
	}
	content := ReactionContent{
		RelatesTo: RelatesTo{
			RelType: RelTypeAnnotation,
			EventID: eventID,
			Key:     key,
		},
	}

	var response SendEventResponse
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    clientPath("rooms", roomID, "send", EventTypeReaction, txnID),
		body:    content,
		cred:    cred,
		roomID:  roomID,
		limiter: c.limits.messages,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.EventID, nil
}

// JoinedMembers lists the user ids currently joined to roomID, sorted.
func (c *Client) JoinedMembers(ctx context.Context, cred Credential, roomID string) ([]string, error) {
	var response struct {
		Joined map[string]json.RawMessage `json:"joined"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   clientPath("rooms", roomID, "joined_members"),
		cred:   cred,
		roomID: roomID,
	}, &response)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list joined members of %s", roomID)
	}
	if response.Joined == nil {
		return nil, errors.Errorf("joined members of %s could not be determined", roomID)
	}

	members := make([]string, 0, len(response.Joined))
	for userID := range response.Joined {
		members = append(members, userID)
	}
	sort.Strings(members)
	return members, nil
}

// LatestMessageEventID returns the newest m.room.message event id in roomID,
// or an empty string when the room has none.
func (c *Client) LatestMessageEventID(ctx context.Context, cred Credential, roomID string) (string, error) {
	query := url.Values{}
	query.Set("dir", "b")
	query.Set("limit", "1")
	query.Set("filter", `{"types":["m.room.message"]}`)

	var response struct {
		Chunk []struct {
			EventID string `json:"event_id"`
		} `json:"chunk"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   clientPath("rooms", roomID, "messages"),
		query:  query,
		cred:   cred,
		roomID: roomID,
	}, &response)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch latest message of %s", roomID)
	}
	if len(response.Chunk) == 0 {
		return "", nil
	}
	return response.Chunk[0].EventID, nil
}

// SendReadReceipt marks eventID as read for cred.
func (c *Client) SendReadReceipt(ctx context.Context, cred Credential, roomID, eventID string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   clientPath("rooms", roomID, "receipt", ReceiptTypeRead, eventID),
		body:   map[string]any{},
		cred:   cred,
		roomID: roomID,
	}, nil)
}

// SetPinnedEvents replaces the room's pinned events state.
func (c *Client) SetPinnedEvents(ctx context.Context, cred Credential, roomID string, eventIDs []string) error {
	if eventIDs == nil {
		eventIDs = []string{}
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   clientPath("rooms", roomID, "state", EventTypePinnedEvents, ""),
		body:   map[string][]string{"pinned": eventIDs},
		cred:   cred,
		roomID: roomID,
	}, nil)
}

// GetDirectChats reads userID's m.direct account data. ok is false when the
// user has none.
func (c *Client) GetDirectChats(ctx context.Context, cred Credential, userID string) (direct map[string][]string, ok bool, err error) {
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   clientPath("user", userID, "account_data", AccountDataDirect),
		cred:   cred,
	}, &direct)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read direct chats of %s", userID)
	}
	return direct, true, nil
}

// SetDirectChats writes userID's m.direct account data.
func (c *Client) SetDirectChats(ctx context.Context, cred Credential, userID string, direct map[string][]string) error {
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   clientPath("user", userID, "account_data", AccountDataDirect),
		body:   direct,
		cred:   cred,
	}, nil)
	return errors.Wrapf(err, "failed to write direct chats of %s", userID)
}

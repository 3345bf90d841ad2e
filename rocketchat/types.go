// Package rocketchat models the records of a Rocket.Chat database export.
package rocketchat

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Export file names inside the input directory.
const (
	UsersFile    = "users.json"
	RoomsFile    = "rocketchat_room.json"
	MessagesFile = "rocketchat_message.json"
)

// UserRef is the embedded {_id, username, name} object.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// User is a line of users.json.
type User struct {
	ID       string   `json:"_id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Type     string   `json:"type,omitempty"`
	Roles    []string `json:"roles"`
	Rooms    []string `json:"__rooms"`
}

func (u User) SourceID() string { return u.ID }

// HasRole reports whether the user carries role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAutomated reports app and bot accounts, which are not migrated.
func (u User) IsAutomated() bool {
	return u.HasRole("app") || u.HasRole("bot") || u.Type == "app" || u.Type == "bot"
}

// RoomKind is the closed set of Rocket.Chat room types.
type RoomKind int

const (
	RoomKindUnknown RoomKind = iota
	RoomKindDirect
	RoomKindChannel
	RoomKindPrivate
	RoomKindLive
)

// ParseRoomKind maps the export's single letter room type.
func ParseRoomKind(t string) RoomKind {
	switch t {
	case "d":
		return RoomKindDirect
	case "c":
		return RoomKindChannel
	case "p":
		return RoomKindPrivate
	case "l":
		return RoomKindLive
	default:
		return RoomKindUnknown
	}
}

func (k RoomKind) String() string {
	switch k {
	case RoomKindDirect:
		return "direct"
	case RoomKindChannel:
		return "channel"
	case RoomKindPrivate:
		return "private"
	case RoomKindLive:
		return "live"
	default:
		return "unknown"
	}
}

// Room is a line of rocketchat_room.json.
type Room struct {
	ID          string   `json:"_id"`
	Type        string   `json:"t"`
	UIDs        []string `json:"uids,omitempty"`
	Usernames   []string `json:"usernames,omitempty"`
	Name        string   `json:"name,omitempty"`
	FName       string   `json:"fname,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Description string   `json:"description,omitempty"`
	Owner       *UserRef `json:"u,omitempty"`
}

func (r Room) SourceID() string { return r.ID }

// Kind returns the parsed room type.
func (r Room) Kind() RoomKind {
	return ParseRoomKind(r.Type)
}

// Reaction lists who reacted with one emoji.
type Reaction struct {
	Usernames []string `json:"usernames"`
}

// Attachment is a message attachment. Quotes of other messages carry a
// MessageLink; uploaded files carry a Type and title.
type Attachment struct {
	Text        string `json:"text,omitempty"`
	MessageLink string `json:"message_link,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorIcon  string `json:"author_icon,omitempty"`
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	TitleLink   string `json:"title_link,omitempty"`
}

// IsQuote reports an attachment that quotes another message.
func (a Attachment) IsQuote() bool {
	return a.Type == "" && a.MessageLink != ""
}

// File is the uploaded file descriptor of a message.
type File struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Message is a line of rocketchat_message.json.
type Message struct {
	ID          string              `json:"_id"`
	Type        string              `json:"t,omitempty"`
	RoomID      string              `json:"rid"`
	Msg         string              `json:"msg"`
	ThreadID    string              `json:"tmid,omitempty"`
	Timestamp   Date                `json:"ts"`
	User        UserRef             `json:"u"`
	Pinned      bool                `json:"pinned,omitempty"`
	Reactions   map[string]Reaction `json:"reactions,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
	Mentions    []UserRef           `json:"mentions,omitempty"`
	File        *File               `json:"file,omitempty"`
}

func (m Message) SourceID() string { return m.ID }

// MessageKind classifies a message by its system type.
type MessageKind int

const (
	// MessageKindRegular is authored content.
	MessageKindRegular MessageKind = iota
	// MessageKindLeave removes the user named in Msg from the room.
	MessageKindLeave
	// MessageKindNoState is a system event whose prior state the export does
	// not contain, so it cannot be replayed.
	MessageKindNoState
	// MessageKindUnhandled is any other system type.
	MessageKindUnhandled
)

// Kind classifies m by its "t" field.
func (m Message) Kind() MessageKind {
	switch m.Type {
	case "":
		return MessageKindRegular
	case "ru", "ul", "ult", "removed-user-from-team":
		return MessageKindLeave
	case "uj", "ujt", "ut", "au", "added-user-to-team", "r", "rm":
		return MessageKindNoState
	default:
		return MessageKindUnhandled
	}
}

// Date decodes the extended JSON forms mongoexport emits for dates:
// {"$date": "<RFC 3339>"}, {"$date": <millis>} and
// {"$date": {"$numberLong": "<millis>"}}. A bare string or number is accepted
// as well.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var wrapper struct {
		Date json.RawMessage `json:"$date"`
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return errors.Wrap(err, "invalid date object")
		}
		data = wrapper.Date
	}

	raw := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(raw, "{"):
		var long struct {
			NumberLong string `json:"$numberLong"`
		}
		if err := json.Unmarshal(data, &long); err != nil {
			return errors.Wrap(err, "invalid $numberLong date")
		}
		return d.setMillis(long.NumberLong)
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "invalid date string")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return errors.Wrapf(err, "invalid date %q", s)
		}
		d.Time = t
		return nil
	default:
		return d.setMillis(raw)
	}
}

func (d *Date) setMillis(s string) error {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid millisecond date %q", s)
	}
	d.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"$date": d.UTC().Format(time.RFC3339Nano)})
}

// UnixMilli returns the timestamp in milliseconds, or 0 when unset.
func (d Date) UnixMilli() int64 {
	if d.IsZero() {
		return 0
	}
	return d.Time.UnixMilli()
}

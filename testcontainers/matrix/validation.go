package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EventValidation provides helpers for validating migrated events in tests
type EventValidation struct {
	t            *testing.T
	serverDomain string
}

// NewEventValidation creates a new validation helper
func NewEventValidation(t *testing.T, serverDomain string) *EventValidation {
	return &EventValidation{
		t:            t,
		serverDomain: serverDomain,
	}
}

// UserID returns the Matrix id of a local user.
func (v *EventValidation) UserID(localpart string) string {
	return "@" + localpart + ":" + v.serverDomain
}

// ValidateMessageEvent checks sender, body and the original timestamp of a
// migrated message.
func (v *EventValidation) ValidateMessageEvent(event map[string]any, localpart, body string, timestamp int64) {
	require.NotNil(v.t, event, "Message %q should exist", body)
	assert.Equal(v.t, "m.room.message", event["type"], "Event should be a message")
	assert.Equal(v.t, v.UserID(localpart), event["sender"], "Message should be sent by its author")
	assert.Equal(v.t, float64(timestamp), event["origin_server_ts"], "Message should keep its original timestamp")

	content, ok := GetEventContent(event)
	require.True(v.t, ok, "Event should have content")
	assert.Equal(v.t, "m.text", content["msgtype"], "Should be text message")
	assert.Equal(v.t, body, content["body"], "Should have message body")
}

// ValidateThreadedMessage validates the thread relation of a reply
func (v *EventValidation) ValidateThreadedMessage(event map[string]any, parentEventID string) {
	content, ok := GetEventContent(event)
	require.True(v.t, ok, "Event should have content")

	relatesTo, hasRelation := content["m.relates_to"].(map[string]any)
	require.True(v.t, hasRelation, "Threaded message should have m.relates_to")

	assert.Equal(v.t, "m.thread", relatesTo["rel_type"], "Should use thread relation type")
	assert.Equal(v.t, parentEventID, relatesTo["event_id"], "Should reference parent event")
}

// ValidateReactionEvent validates a Matrix reaction event
func (v *EventValidation) ValidateReactionEvent(event map[string]any, targetEventID, expectedEmoji string) {
	assert.Equal(v.t, "m.reaction", event["type"], "Event should be a reaction")

	content, ok := GetEventContent(event)
	require.True(v.t, ok, "Event should have content")

	relatesTo, hasRelation := content["m.relates_to"].(map[string]any)
	require.True(v.t, hasRelation, "Reaction should have m.relates_to")

	assert.Equal(v.t, "m.annotation", relatesTo["rel_type"], "Should use annotation relation type")
	assert.Equal(v.t, targetEventID, relatesTo["event_id"], "Should reference target event")
	assert.Equal(v.t, expectedEmoji, relatesTo["key"], "Should have correct emoji")
}

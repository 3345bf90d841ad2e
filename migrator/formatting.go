package migrator

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
)

var (
	// messageLinkRegex matches the empty markdown link Rocket.Chat prepends to a
	// message that quotes another one and captures the quoted message id.
	messageLinkRegex = regexp.MustCompile(`\[ \]\(https:\/[^?]+\?msg=([^)]+)\)`)
	avatarRegex      = regexp.MustCompile(`/avatar/([^?/]+)`)
)

// quotedMessage is a resolved quote attachment.
type quotedMessage struct {
	roomID   string
	eventID  string
	authorID string
	text     string
}

// quotedMessageID returns the id of the message quoted by text.
func quotedMessageID(text string) (string, bool) {
	match := messageLinkRegex.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// stripMessageLinks removes quote links from text.
func stripMessageLinks(text string) string {
	return strings.TrimSpace(messageLinkRegex.ReplaceAllString(text, ""))
}

// avatarUsername extracts the username from an attachment's author icon URL.
func avatarUsername(authorIcon string) (string, bool) {
	match := avatarRegex.FindStringSubmatch(authorIcon)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// replyHTML renders the quote as a rich reply block.
func (q quotedMessage) replyHTML(serverName string) string {
	var sb strings.Builder
	sb.WriteString("<mx-reply><blockquote>")
	fmt.Fprintf(&sb, `<a href="https://matrix.to/#/%s/%s?via=%s">In reply to</a>`, q.roomID, q.eventID, serverName)
	if q.authorID != "" {
		fmt.Fprintf(&sb, ` <a href="https://matrix.to/#/%s">%s</a>`, q.authorID, q.authorID)
	}
	sb.WriteString("<br>")
	if rendered := renderMarkdown(q.text); rendered != "" {
		sb.WriteString(rendered)
	}
	sb.WriteString("</blockquote></mx-reply>")
	return sb.String()
}

// fallback renders the quote as the "> <@author> text" plain text block
// clients without rich reply support display.
func (q quotedMessage) fallback() string {
	var inner strings.Builder
	if q.authorID != "" {
		inner.WriteString(html.EscapeString("<" + q.authorID + "> "))
	}
	inner.WriteString(renderMarkdown(q.text))

	converter := md.NewConverter("", true, nil)
	plain, err := converter.ConvertString("<blockquote>" + inner.String() + "</blockquote>")
	if err != nil || strings.TrimSpace(plain) == "" {
		return "> " + strings.ReplaceAll(q.text, "\n", "\n> ")
	}
	return strings.TrimSpace(plain)
}

// fileMarker is the body line standing in for an uploaded file.
func fileMarker(name string) string {
	return fmt.Sprintf("[file: %s]", name)
}

// threadRelation marks a message as part of the thread rooted at eventID.
// Clients without thread support show it as a reply to the root.
func threadRelation(eventID string) *matrix.RelatesTo {
	return &matrix.RelatesTo{
		RelType:       matrix.RelTypeThread,
		EventID:       eventID,
		IsFallingBack: true,
		InReplyTo:     &matrix.InReplyTo{EventID: eventID},
	}
}

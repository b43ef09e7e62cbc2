package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/giftcircle/internal/models"
)

// Contact is what a notification needs to reach a user.
type Contact struct {
	ID       uuid.UUID
	Username string
	Name     string
	Email    string
}

func (c Contact) Public() models.PublicUser {
	return models.PublicUser{ID: c.ID, Username: c.Username, Name: c.Name}
}

type Notifier interface {
	FriendRequestReceived(ctx context.Context, to Contact, from models.PublicUser) error
	FriendRequestAccepted(ctx context.Context, to Contact, by models.PublicUser) error
}

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailNotifier struct {
	sender  EmailSender
	baseURL string
}

func NewEmailNotifier(sender EmailSender, baseURL string) *EmailNotifier {
	return &EmailNotifier{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

func (n *EmailNotifier) FriendRequestReceived(ctx context.Context, to Contact, from models.PublicUser) error {
	link := n.baseURL + "/friends"
	subject := fmt.Sprintf("%s wants to be friends", from.Name)
	text := fmt.Sprintf("Hi %s,\n\n%s (@%s) sent you a friend request.\n\nReview it at %s\n", to.Name, from.Name, from.Username, link)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p><strong>%s</strong> (@%s) sent you a friend request.</p><p><a href="%s">Review request</a></p>`,
		html.EscapeString(to.Name), html.EscapeString(from.Name), html.EscapeString(from.Username), html.EscapeString(link),
	)
	return n.send(ctx, to, subject, body, text)
}

func (n *EmailNotifier) FriendRequestAccepted(ctx context.Context, to Contact, by models.PublicUser) error {
	link := n.baseURL + "/feed"
	subject := fmt.Sprintf("%s accepted your friend request", by.Name)
	text := fmt.Sprintf("Hi %s,\n\n%s (@%s) accepted your friend request. Their items and wishes now show up in your feed.\n\n%s\n", to.Name, by.Name, by.Username, link)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p><strong>%s</strong> (@%s) accepted your friend request. Their items and wishes now show up in your feed.</p><p><a href="%s">Open your feed</a></p>`,
		html.EscapeString(to.Name), html.EscapeString(by.Name), html.EscapeString(by.Username), html.EscapeString(link),
	)
	return n.send(ctx, to, subject, body, text)
}

func (n *EmailNotifier) send(ctx context.Context, to Contact, subject, body, text string) error {
	if to.Email == "" {
		return fmt.Errorf("contact %s has no email", to.ID)
	}
	return n.sender.Send(ctx, EmailMessage{To: to.Email, Subject: subject, HTML: body, Text: text})
}

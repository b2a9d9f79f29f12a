// Package notify sends account messages by email or SMS depending on the
// contact the user signed up with.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/StormyOasis/linsta-sub001/internal/validate"
)

// Notifier routes account messages to the right channel.
type Notifier struct {
	email    EmailSender
	sms      SMSSender
	resetURL string
}

func NewNotifier(email EmailSender, sms SMSSender, resetURL string) *Notifier {
	if email == nil {
		email = LogSender{}
	}
	if sms == nil {
		sms = LogSender{}
	}
	return &Notifier{email: email, sms: sms, resetURL: resetURL}
}

// SendConfirmCode sends the account confirmation code.
func (n *Notifier) SendConfirmCode(ctx context.Context, contact, userName, code string) error {
	return n.send(ctx, contact, confirmMessage, templateData{UserName: userName, Code: code})
}

// SendResetLink sends a link carrying the password reset token.
func (n *Notifier) SendResetLink(ctx context.Context, contact, userName, token string) error {
	return n.send(ctx, contact, resetMessage, templateData{UserName: userName, Link: n.ResetLink(token)})
}

// SendPasswordChanged tells the user their password changed.
func (n *Notifier) SendPasswordChanged(ctx context.Context, contact, userName string) error {
	return n.send(ctx, contact, changedMessage, templateData{UserName: userName})
}

// ResetLink builds the frontend URL for a reset token.
func (n *Notifier) ResetLink(token string) string {
	sep := "?"
	if strings.Contains(n.resetURL, "?") {
		sep = "&"
	}
	return n.resetURL + sep + "token=" + url.QueryEscape(token)
}

func (n *Notifier) send(ctx context.Context, contact string, msg message, data templateData) error {
	switch validate.Contact(contact) {
	case validate.ContactEmail:
		body, err := render(msg.body, data)
		if err != nil {
			return err
		}
		return n.email.SendEmail(ctx, strings.TrimSpace(contact), msg.subject, body)
	case validate.ContactPhone:
		body, err := render(msg.sms, data)
		if err != nil {
			return err
		}
		return n.sms.SendSMS(ctx, validate.NormalizePhone(contact), body)
	default:
		return fmt.Errorf("unsupported contact %q", contact)
	}
}
